package refinery

import (
	"fmt"
	"sort"

	"github.com/vk/refinery/record"
)

// DefaultMaxDepth bounds nested refining when a definition does not set
// its own limit.
const DefaultMaxDepth = 64

// Template maps one raw item to its base refined shape. It runs exactly
// once per item and never sees attachment data.
type Template func(r *Refiner, item record.Item) (any, error)

// Handler declares an attachment. It is called by Bring on the refiner
// being configured and usually returns r.Attach(...).
type Handler func(r *Refiner) (Attachment, error)

// Resolver looks up definitions by name. It backs attachments whose target
// is given as a string.
type Resolver interface {
	Lookup(name string) (*Definition, bool)
}

// Definition describes one refined shape: its template and the
// attachments that can be brought along with it. A Definition is built
// once and hands out fresh Refiner instances through New.
type Definition struct {
	name     string
	template Template
	handlers map[string]Handler
	resolver Resolver
	maxDepth int
}

// Define creates a definition. A nil template is allowed here and reported
// by Refine as ErrTemplateNotConfigured.
func Define(name string, tmpl Template) *Definition {
	return &Definition{
		name:     name,
		template: tmpl,
		handlers: make(map[string]Handler),
	}
}

func (d *Definition) Name() string { return d.name }

// Handle registers the handler for the attachment called name. It panics
// if name is already registered.
func (d *Definition) Handle(name string, h Handler) *Definition {
	if _, exists := d.handlers[name]; exists {
		panic(fmt.Sprintf("attachment handler '%s' already registered on '%s'", name, d.name))
	}
	d.handlers[name] = h
	return d
}

// Handles reports whether an attachment called name is registered.
func (d *Definition) Handles(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Attachments lists the registered attachment names, sorted.
func (d *Definition) Attachments() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithResolver sets the resolver used for string attachment targets.
func (d *Definition) WithResolver(res Resolver) *Definition {
	d.resolver = res
	return d
}

// SetMaxDepth overrides DefaultMaxDepth for refiners of this definition.
func (d *Definition) SetMaxDepth(n int) *Definition {
	d.maxDepth = n
	return d
}

func (d *Definition) depthLimit() int {
	if d.maxDepth > 0 {
		return d.maxDepth
	}
	return DefaultMaxDepth
}

// New returns a fresh refiner with no attachments, filter or attributes.
func (d *Definition) New() *Refiner {
	return &Refiner{def: d}
}
