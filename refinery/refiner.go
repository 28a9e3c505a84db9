package refinery

import "maps"

// Refiner is one configured instance of a Definition. It carries the
// attachments chosen by Bring, an optional filter used when a parent
// refiner resolves it as an attachment, and the shared attributes.
//
// Instances are cheap and short-lived. The engine builds a fresh nested
// Refiner for every attachment it resolves, so filter and attachment state
// never leaks between sibling branches or between collection elements.
type Refiner struct {
	def         *Definition
	attachments []binding
	filter      Filter
	attributes  map[string]any
	depth       int
}

// Definition returns the definition the refiner was built from.
func (r *Refiner) Definition() *Definition { return r.def }

// With replaces the shared attributes. They are readable from the template
// through Attribute and are copied into every nested refiner.
func (r *Refiner) With(attrs map[string]any) *Refiner {
	r.attributes = maps.Clone(attrs)
	return r
}

// Attribute returns the shared attribute stored under key.
func (r *Refiner) Attribute(key string) (any, bool) {
	v, ok := r.attributes[key]
	return v, ok
}

// Attributes returns a copy of the shared attributes.
func (r *Refiner) Attributes() map[string]any {
	return maps.Clone(r.attributes)
}

// SetFilter installs the filter applied to this refiner's source data when
// it is resolved as an attachment. The last call wins.
func (r *Refiner) SetFilter(f Filter) *Refiner {
	r.filter = f
	return r
}

// Filter is an alias for SetFilter.
func (r *Refiner) Filter(f Filter) *Refiner {
	return r.SetFilter(f)
}

func (r *Refiner) HasFilter() bool {
	return r.filter != nil
}

// Depth is the nesting level of this refiner; zero at the top.
func (r *Refiner) Depth() int { return r.depth }

// Brought lists the attachment names registered by the last Bring call,
// in registration order.
func (r *Refiner) Brought() []string {
	names := make([]string, len(r.attachments))
	for i, b := range r.attachments {
		names[i] = b.name
	}
	return names
}
