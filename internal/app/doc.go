// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the refine lifecycle: load manifests,
// register and validate refiners, then read, refine and write one document.
// It is decoupled from any specific entrypoint like a CLI.
package app
