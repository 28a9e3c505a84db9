package config

import "github.com/vk/refinery/refinery"

// Model is the unified representation of every loaded manifest.
type Model struct {
	// Definitions are in manifest order. Names are unique.
	Definitions []*refinery.Definition
	Views       map[string]*View
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Views: make(map[string]*View)}
}

// View names a refiner together with the relations to bring and the
// attributes to share when it is opened.
type View struct {
	Name        string
	Description string
	Refiner     string
	Attributes  map[string]any
	Relations   []refinery.Relation
}
