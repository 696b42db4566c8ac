// Package yamldoc parses Mayo model-description documents into an immutable
// cty value tree.
//
// The loader walks the yaml.v3 node graph directly rather than unmarshalling
// into native Go containers. This keeps two guarantees that the rest of the
// pipeline relies on:
//
//   - every alias expands to a value copy of its anchor, so substitutions
//     performed on one expansion can never leak into another;
//   - merge keys (`<<`) are applied with a defined precedence: sources in
//     listed order with later entries winning ties, and explicit sibling
//     keys overriding anything merged in.
//
// Scalars tagged `!arith` are loaded as strings carrying ArithMark and are
// evaluated to numbers during resolution.
package yamldoc
