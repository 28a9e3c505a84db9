// Package config defines the format-agnostic model that manifest loaders
// produce: the compiled refiner definitions and the named views that open
// them with a fixed set of relations and attributes.
//
// Concrete loaders, such as the HCL one, live in separate packages and are
// handed to the app through the Loader interface.
package config
