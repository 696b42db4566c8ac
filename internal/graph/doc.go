// Package graph turns a resolved model description into a validated
// computation graph.
//
// The builder walks the model's `graph` composition spec (`from`, `with`,
// `to`), expanding module layers recursively: each usage of a module
// template is instantiated with its own kwarg bindings, so the same
// template can appear many times with different parameters. Tensor nodes
// carry data between layers; join and split nodes mark fan-in and fan-out
// points.
//
// Validation covers dangling layer references, self-loops, fan-in into
// non-join nodes, cycles, and input-to-output connectivity. The validated
// graph exposes Pipeline, the topologically ordered list of resolved layer
// specifications ready for an external runtime to instantiate.
package graph
