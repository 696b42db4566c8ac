// Package config holds the composed configuration document for one model
// invocation: the deep-merged result of every loaded YAML file plus any
// dotted-path overrides. A Config is mutable while documents are being
// accumulated; Resolve validates it and produces the final, fully
// substituted snapshot that is handed read-only to graph construction.
package config
