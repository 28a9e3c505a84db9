package refinery

import (
	"fmt"
	"strings"
)

// Relation is one entry of a Bring call: the attachment name, plus an
// optional filter for the nested refiner and optional relations the nested
// refiner should bring in turn.
type Relation struct {
	Name   string
	Filter Filter
	Nested []Relation
}

// Rel brings an attachment as declared.
func Rel(name string) Relation {
	return Relation{Name: name}
}

// Filtered brings an attachment and installs f as the nested refiner's filter.
func Filtered(name string, f Filter) Relation {
	return Relation{Name: name, Filter: f}
}

// Nested brings an attachment and makes the nested refiner bring nested.
func Nested(name string, nested ...Relation) Relation {
	return Relation{Name: name, Nested: nested}
}

// Names turns plain attachment names into relations.
func Names(names ...string) []Relation {
	rels := make([]Relation, len(names))
	for i, n := range names {
		rels[i] = Rel(n)
	}
	return rels
}

// ParseRelations builds relations from dotted paths. "posts.comments"
// brings posts, and has the posts refiner bring comments. Paths sharing a
// prefix are folded together in first-seen order.
func ParseRelations(paths ...string) ([]Relation, error) {
	var rels []Relation
	for _, p := range paths {
		parts := strings.Split(p, ".")
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				return nil, fmt.Errorf("%w: empty segment in '%s'", ErrInvalidRelation, p)
			}
		}
		rels = insertPath(rels, parts)
	}
	return rels, nil
}

func insertPath(rels []Relation, parts []string) []Relation {
	name := strings.TrimSpace(parts[0])
	for i := range rels {
		if rels[i].Name == name {
			if len(parts) > 1 {
				rels[i].Nested = insertPath(rels[i].Nested, parts[1:])
			}
			return rels
		}
	}
	rel := Rel(name)
	if len(parts) > 1 {
		rel.Nested = insertPath(nil, parts[1:])
	}
	return append(rels, rel)
}

// binding is a resolved Bring entry.
type binding struct {
	name       string
	attachment Attachment
	relation   Relation
}

// Bring replaces the set of attachments included in refined output. Each
// relation name must match a handler on the definition. Nested relations
// are checked against the target definition straight away, so a bad chain
// fails here rather than halfway through a refine. On error the previous
// set is left untouched.
func (r *Refiner) Bring(relations ...Relation) error {
	if err := r.checkDepth(); err != nil {
		return err
	}
	bindings := make([]binding, 0, len(relations))
	index := make(map[string]int, len(relations))

	for _, rel := range relations {
		att, err := r.declare(rel.Name)
		if err != nil {
			return err
		}

		if att.IsRaw() && (rel.Filter != nil || len(rel.Nested) > 0) {
			return fmt.Errorf("%w: attachment '%s' on '%s' is raw and cannot take a filter or nested relations", ErrInvalidRelation, rel.Name, r.def.name)
		}
		if !att.IsRaw() && len(rel.Nested) > 0 {
			probe := att.target.New()
			probe.depth = r.depth + 1
			if err := probe.Bring(rel.Nested...); err != nil {
				return fmt.Errorf("bringing '%s' on '%s': %w", rel.Name, r.def.name, err)
			}
		}

		b := binding{name: rel.Name, attachment: att, relation: rel}
		if i, seen := index[rel.Name]; seen {
			bindings[i] = b
			continue
		}
		index[rel.Name] = len(bindings)
		bindings = append(bindings, b)
	}

	r.attachments = bindings
	return nil
}

// BringNames is Bring for plain attachment names.
func (r *Refiner) BringNames(names ...string) error {
	return r.Bring(Names(names...)...)
}

// declare runs the handler registered for name.
func (r *Refiner) declare(name string) (Attachment, error) {
	h, ok := r.def.handlers[name]
	if !ok {
		return Attachment{}, fmt.Errorf("%w: no attachment set with the name '%s' on '%s'", ErrAttachmentHandlerNotFound, name, r.def.name)
	}
	att, err := h(r)
	if err != nil {
		return Attachment{}, fmt.Errorf("declaring attachment '%s' on '%s': %w", name, r.def.name, err)
	}
	if !att.IsRaw() && att.target == nil {
		return Attachment{}, fmt.Errorf("declaring attachment '%s' on '%s': %w", name, r.def.name, ErrAttachmentTargetNotFound)
	}
	return att, nil
}
