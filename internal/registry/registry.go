package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/refinery/internal/config"
	"github.com/vk/refinery/refinery"
)

// Module is the interface that compiled refiner packages implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all refiner definitions and views for a single application
// instance.
type Registry struct {
	definitions map[string]*refinery.Definition
	views       map[string]*config.View
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		definitions: make(map[string]*refinery.Definition),
		views:       make(map[string]*config.View),
	}
}

// Register stores def under its name and makes the registry its resolver.
// It panics if the name is already taken.
func (r *Registry) Register(def *refinery.Definition) {
	name := def.Name()
	if _, exists := r.definitions[name]; exists {
		panic(fmt.Sprintf("refiner with name '%s' already registered", name))
	}
	slog.Debug("Registering refiner.", "name", name, "attachments", def.Attachments())
	def.WithResolver(r)
	r.definitions[name] = def
}

// RegisterView stores v under its name. It panics if the name is already taken.
func (r *Registry) RegisterView(v *config.View) {
	if _, exists := r.views[v.Name]; exists {
		panic(fmt.Sprintf("view with name '%s' already registered", v.Name))
	}
	slog.Debug("Registering view.", "name", v.Name, "refiner", v.Refiner)
	r.views[v.Name] = v
}

// Lookup implements refinery.Resolver.
func (r *Registry) Lookup(name string) (*refinery.Definition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// View returns the view registered under name.
func (r *Registry) View(name string) (*config.View, bool) {
	v, ok := r.views[name]
	return v, ok
}

// Names returns the registered refiner names in sorted order.
func (r *Registry) Names() []string {
	return sortedKeys(r.definitions)
}

// ViewNames returns the registered view names in sorted order.
func (r *Registry) ViewNames() []string {
	return sortedKeys(r.views)
}

// PopulateDefinitionsFromModel registers every definition and view of the
// loaded model.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for _, def := range model.Definitions {
		r.Register(def)
	}
	for _, name := range sortedKeys(model.Views) {
		r.RegisterView(model.Views[name])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
