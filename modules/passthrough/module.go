// Package passthrough provides the built-in "passthrough" refiner, which
// copies every key of an item into the output unchanged. Manifests use it
// to embed related records as they are.
package passthrough

import (
	"github.com/vk/refinery/internal/registry"
	"github.com/vk/refinery/record"
	"github.com/vk/refinery/refinery"
)

// Name is the refiner name the module registers.
const Name = "passthrough"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Template copies the item's keys in the item's own key order. Items
// without keys are returned as they are.
func Template(_ *refinery.Refiner, item record.Item) (any, error) {
	keyed, ok := item.(record.Keyed)
	if !ok {
		return item.Raw(), nil
	}
	keys := keyed.Keys()
	if len(keys) == 0 {
		return item.Raw(), nil
	}

	out := refinery.NewMap()
	for _, k := range keys {
		v, _ := item.Get(k)
		out.Set(k, v)
	}
	return out, nil
}

// Register registers the refiner with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(refinery.Define(Name, Template))
}
