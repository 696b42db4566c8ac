// Package app contains the core application logic: composing documents,
// applying overrides, resolving markers and running the requested actions.
// It is decoupled from any specific entrypoint like a CLI.
package app
