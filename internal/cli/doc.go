// Package cli translates command-line arguments into an app.Config.
// Positional arguments are processed in sequence and may be YAML document
// paths, dotted-path overrides ("key.path=value"), or action words.
package cli
