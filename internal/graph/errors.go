package graph

import "fmt"

// ValidationError reports a graph spec referencing a layer name that is not
// defined in the enclosing layers mapping. Missing holds the first
// undefined identifier found in declaration order.
type ValidationError struct {
	Missing string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("layer named %q is not defined", e.Missing)
}

// EdgeError reports an illegal connection: a self-loop, a name collision,
// or fan-in to a node that is not a join node.
type EdgeError struct {
	Msg string
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	return e.Msg
}

// CycleError reports that the composed graph is not acyclic.
type CycleError struct {
	NodeID string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("graph is not acyclic: cycle detected involving node %q", e.NodeID)
}

// ConnectivityError reports that no path exists from a model input to any
// model output.
type ConnectivityError struct {
	From string
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("no path from input %q to any model output", e.From)
}
