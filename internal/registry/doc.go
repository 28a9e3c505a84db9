// Package registry is the glue between compiled Go refiners and the ones
// loaded from manifests.
//
// The Registry stores every refiner definition under its name and acts as
// the name resolver for all of them, so an attachment in one manifest can
// target a refiner defined in Go or in another file. It also holds the
// views declared by manifests.
//
// During application startup the registry is populated and then validated,
// so that a misspelled attachment target or relation name fails before any
// data is refined.
package registry
