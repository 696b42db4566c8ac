package resolver

import (
	"fmt"
	"strings"
)

// UnresolvedMarkerError reports a marker whose target could not be found:
// a $() dotted path missing from the document, a path terminating in a
// non-scalar, or a ^() name with no supplied value and no default.
type UnresolvedMarkerError struct {
	Marker string
	Reason string
}

// Error implements the error interface.
func (e *UnresolvedMarkerError) Error() string {
	return fmt.Sprintf("cannot resolve marker %s: %s", e.Marker, e.Reason)
}

// CyclicReferenceError reports a chain of $() lookups (or a ^() binding)
// that refers back to itself.
type CyclicReferenceError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("cyclic reference: %s", strings.Join(e.Chain, " -> "))
}
