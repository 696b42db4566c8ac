package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Kind distinguishes the node flavours of the computation graph.
type Kind int

const (
	// TensorKind nodes name a value flowing between layers.
	TensorKind Kind = iota
	// LayerKind nodes carry a resolved layer specification.
	LayerKind
	// JoinKind nodes concatenate multiple inputs.
	JoinKind
	// SplitKind nodes fan one output out to multiple consumers.
	SplitKind
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case TensorKind:
		return "tensor"
	case LayerKind:
		return "layer"
	case JoinKind:
		return "join"
	case SplitKind:
		return "split"
	}
	return "unknown"
}

// Node is a single vertex of the computation graph. Params is only set for
// layer nodes and holds the fully resolved LayerSpec.
type Node struct {
	Kind   Kind
	Name   string
	Module []string
	Params cty.Value
}

// ID returns the unique identifier of the node. The kind participates so a
// tensor and a layer sharing a name within one module stay distinct.
func (n *Node) ID() string {
	return fmt.Sprintf("%s:%s", n.Kind, n.FormattedName())
}

// FormattedName renders the module-qualified name, e.g. "mobilenet/conv0".
func (n *Node) FormattedName() string {
	if len(n.Module) == 0 {
		return n.Name
	}
	return strings.Join(n.Module, "/") + "/" + n.Name
}

// Graph is the validated computation graph. Construction happens on a
// single goroutine; the mutex lets callers inspect a built graph
// concurrently.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*vertex
}

// vertex pairs a node with its adjacency sets. It is un-exported to force
// interaction through the Graph API.
type vertex struct {
	data       *Node
	deps       map[string]*vertex
	dependents map[string]*vertex
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*vertex)}
}
