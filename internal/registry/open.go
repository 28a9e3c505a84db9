package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/refinery/refinery"
)

// ErrNotFound is returned by Open when a name matches neither a view nor a
// refiner.
var ErrNotFound = errors.New("no view or refiner with that name")

// Open builds a ready-to-use refiner. If name is a view, the refiner it
// names is configured with the view's attributes and relations, followed
// by extra. Otherwise name is taken as a refiner name and only extra is
// brought.
func (r *Registry) Open(name string, extra ...refinery.Relation) (*refinery.Refiner, error) {
	if v, ok := r.views[name]; ok {
		def, ok := r.definitions[v.Refiner]
		if !ok {
			return nil, fmt.Errorf("view '%s' uses refiner '%s': %w", name, v.Refiner, refinery.ErrAttachmentTargetNotFound)
		}
		ref := def.New().With(v.Attributes)
		rels := append(slices.Clone(v.Relations), extra...)
		if err := ref.Bring(rels...); err != nil {
			return nil, fmt.Errorf("opening view '%s': %w", name, err)
		}
		return ref, nil
	}

	def, ok := r.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	ref := def.New()
	if err := ref.Bring(extra...); err != nil {
		return nil, fmt.Errorf("opening refiner '%s': %w", name, err)
	}
	return ref, nil
}
