package graph

import (
	"fmt"
	"sort"
)

// ensureNode adds a node to the graph if its ID is not already present and
// returns the canonical instance for that ID.
func (g *Graph) ensureNode(n *Node) *vertex {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if v, ok := g.nodes[n.ID()]; ok {
		return v
	}
	v := &vertex{
		data:       n,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
	g.nodes[n.ID()] = v
	return v
}

// addEdge creates a directed edge from one node to another, enforcing the
// structural rules of the computation graph: no self-loops, and only join
// nodes may have more than one input.
func (g *Graph) addEdge(from, to *Node) error {
	if from.ID() == to.ID() {
		return &EdgeError{Msg: fmt.Sprintf("self-loop not allowed on %q", from.FormattedName())}
	}

	fromV := g.ensureNode(from)
	toV := g.ensureNode(to)

	g.mutex.Lock()
	defer g.mutex.Unlock()

	toV.deps[from.ID()] = fromV
	fromV.dependents[to.ID()] = toV

	if to.Kind != JoinKind && len(toV.deps) > 1 {
		return &EdgeError{Msg: fmt.Sprintf(
			"node %q is not a join node but has multiple inputs", to.FormattedName())}
	}
	return nil
}

// link connects two existing vertices directly, used by optimization when
// contracting redundant tensor nodes.
func (g *Graph) link(fromID, toID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	fromV, toV := g.nodes[fromID], g.nodes[toID]
	if fromV == nil || toV == nil {
		return
	}
	toV.deps[fromID] = fromV
	fromV.dependents[toID] = toV
}

// removeNode deletes a node and all its edges.
func (g *Graph) removeNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	v, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, dep := range v.deps {
		delete(dep.dependents, id)
	}
	for _, dep := range v.dependents {
		delete(dep.deps, id)
	}
	delete(g.nodes, id)
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if v, ok := g.nodes[id]; ok {
		return v.data
	}
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns all nodes, sorted by ID for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.sortedLocked()
}

func (g *Graph) sortedLocked() []*Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.nodes[id].data)
	}
	return nodes
}

// Dependencies returns the IDs of the nodes the given node depends on.
func (g *Graph) Dependencies(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	v, ok := g.nodes[id]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(v.deps))
	for depID := range v.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps
}

// Dependents returns the IDs of the nodes that depend on the given node.
func (g *Graph) Dependents(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	v, ok := g.nodes[id]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(v.dependents))
	for depID := range v.dependents {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps
}

// hasPath reports whether any directed path exists from one node to
// another. The visited set makes traversal terminate even on cyclic input,
// since this runs before cycle detection.
func (g *Graph) hasPath(fromID, toID string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == toID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		v, ok := g.nodes[id]
		if !ok {
			return false
		}
		for depID := range v.dependents {
			if visit(depID) {
				return true
			}
		}
		return false
	}
	return visit(fromID)
}

// DetectCycles checks the graph for cycles with a classic three-colour
// depth-first search. It returns a CycleError naming a node on the first
// cycle found.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		id := v.data.ID()
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return &CycleError{NodeID: v.data.FormattedName()}
		}
		temporary[id] = true
		for _, dep := range v.dependents {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	// Iterate in sorted order so the reported node is stable.
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalOrder returns all nodes in dependency order. Ties break by
// node ID so the order is deterministic. The graph must be acyclic.
func (g *Graph) TopologicalOrder() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for id, v := range g.nodes {
		remaining[id] = len(v.deps)
	}

	var ready []string
	for id, count := range remaining {
		if count == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		v := g.nodes[id]
		order = append(order, v.data)

		var released []string
		for depID := range v.dependents {
			remaining[depID]--
			if remaining[depID] == 0 {
				released = append(released, depID)
			}
		}
		sort.Strings(released)
		ready = append(ready, released...)
	}
	return order
}

// Pipeline returns the resolved layer specifications in topological order,
// ready for an external runtime to instantiate.
func (g *Graph) Pipeline() []*Node {
	var layers []*Node
	for _, n := range g.TopologicalOrder() {
		if n.Kind == LayerKind {
			layers = append(layers, n)
		}
	}
	return layers
}
