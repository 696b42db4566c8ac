package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/ctxlog"
	"github.com/cnnpruning/mayo/internal/resolver"
	"github.com/cnnpruning/mayo/internal/yamldoc"
)

// Build constructs a complete, validated computation graph from a resolved
// document root.
func Build(ctx context.Context, root cty.Value) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	model, ok := yamldoc.Attr(root, "model")
	if !ok {
		return nil, fmt.Errorf("document has no model section")
	}
	name, _ := yamldoc.Attr(model, "name")
	moduleName := ""
	if nameU, _ := name.Unmark(); !nameU.IsNull() && nameU.Type() == cty.String {
		moduleName = nameU.AsString()
	}

	inputs, err := nameList(model, "inputs", []string{"input"})
	if err != nil {
		return nil, err
	}
	outputs, err := nameList(model, "outputs", []string{"output"})
	if err != nil {
		return nil, err
	}

	b := &builder{graph: New(), res: resolver.New(root)}
	if err := b.addModule(ctx, inputs, outputs, moduleName, model, nil); err != nil {
		return nil, err
	}
	logger.Debug("Build: node creation complete.", "node_count", b.graph.Len())

	// Connectivity is checked before optimization prunes anything, so a
	// disconnected input is reported rather than silently removed.
	if err := b.graph.ensureConnected(inputs, outputs); err != nil {
		return nil, err
	}
	b.graph.optimize(outputs)
	logger.Debug("Build: optimization complete.", "node_count", b.graph.Len())

	if err := b.graph.DetectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: graph construction successful.")
	return b.graph, nil
}

type builder struct {
	graph *Graph
	res   *resolver.Resolver
}

// connection is one entry of a `graph` composition spec.
type connection struct {
	from []string
	with []string
	to   []string
}

// addModule instantiates one module usage: kwargs are bound for this
// instantiation, the module's connections become edges, and the module
// boundary tensors are wired to the caller's from/to tensors.
func (b *builder) addModule(ctx context.Context, fromNames, toNames []string, moduleName string, params cty.Value, modulePath []string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Adding module.", "name", moduleName, "path", strings.Join(modulePath, "/"))

	expanded, err := b.res.ExpandModule(params)
	if err != nil {
		return err
	}

	submodulePath := modulePath
	if moduleName != "" {
		submodulePath = append(append([]string{}, modulePath...), moduleName)
	}

	layers, _ := yamldoc.Attr(expanded, "layers")
	conns, err := connections(expanded, moduleName)
	if err != nil {
		return err
	}
	innerInputs, err := nameList(expanded, "inputs", []string{"input"})
	if err != nil {
		return err
	}
	innerOutputs, err := nameList(expanded, "outputs", []string{"output"})
	if err != nil {
		return err
	}

	if err := validateConnections(conns, layers, innerInputs, innerOutputs); err != nil {
		return err
	}

	for _, conn := range conns {
		prev := conn.from
		segments := make([]segment, 0, len(conn.with)+1)
		for _, layerName := range conn.with {
			segments = append(segments, segment{inputs: prev, outputs: []string{layerName}, layer: layerName})
			prev = []string{layerName}
		}
		segments = append(segments, segment{inputs: prev, outputs: conn.to})

		for _, seg := range segments {
			if sameNames(seg.inputs, seg.outputs) {
				if seg.layer == "" {
					continue
				}
				return &EdgeError{Msg: fmt.Sprintf(
					"input name %q collides with output name for layer %q",
					seg.inputs[0], seg.layer)}
			}
			var layerParams cty.Value
			if seg.layer != "" {
				layerParams, _ = yamldoc.Attr(layers, seg.layer)
			}
			if err := b.addLayer(ctx, seg.inputs, seg.outputs, seg.layer, layerParams, submodulePath); err != nil {
				return err
			}
		}
	}

	// Wire the module boundary: caller tensors feed the module's declared
	// inputs and its declared outputs feed the caller tensors.
	if len(fromNames) != len(innerInputs) {
		return &EdgeError{Msg: fmt.Sprintf(
			"module %q declares %d inputs but is given %d",
			moduleName, len(innerInputs), len(fromNames))}
	}
	if len(toNames) != len(innerOutputs) {
		return &EdgeError{Msg: fmt.Sprintf(
			"module %q declares %d outputs but is given %d",
			moduleName, len(innerOutputs), len(toNames))}
	}
	for i, fromName := range fromNames {
		from := &Node{Kind: TensorKind, Name: fromName, Module: modulePath}
		to := &Node{Kind: TensorKind, Name: innerInputs[i], Module: submodulePath}
		if err := b.graph.addEdge(from, to); err != nil {
			return err
		}
	}
	for i, outName := range innerOutputs {
		from := &Node{Kind: TensorKind, Name: outName, Module: submodulePath}
		to := &Node{Kind: TensorKind, Name: toNames[i], Module: modulePath}
		if err := b.graph.addEdge(from, to); err != nil {
			return err
		}
	}
	return nil
}

type segment struct {
	inputs  []string
	outputs []string
	layer   string
}

// addLayer adds one layer application (or recurses for module layers),
// inserting join and split nodes around it as fan-in/fan-out requires.
func (b *builder) addLayer(ctx context.Context, ins, outs []string, layerName string, layerParams cty.Value, modulePath []string) error {
	if layerName != "" && isModuleSpec(layerParams) {
		return b.addModule(ctx, ins, outs, layerName, layerParams, modulePath)
	}

	inNodes := make([]*Node, 0, len(ins))
	for _, n := range ins {
		inNodes = append(inNodes, &Node{Kind: TensorKind, Name: n, Module: modulePath})
	}
	upstream := inNodes[0]
	if len(inNodes) > 1 {
		join := &Node{Kind: JoinKind, Name: multiName(ins), Module: modulePath}
		for _, in := range inNodes {
			if err := b.graph.addEdge(in, join); err != nil {
				return err
			}
		}
		upstream = join
	}

	last := upstream
	if layerName != "" {
		layer := &Node{Kind: LayerKind, Name: layerName, Module: modulePath, Params: layerParams}
		if err := b.graph.addEdge(upstream, layer); err != nil {
			return err
		}
		last = layer
	}

	if len(outs) == 1 {
		return b.graph.addEdge(last, &Node{Kind: TensorKind, Name: outs[0], Module: modulePath})
	}
	split := &Node{Kind: SplitKind, Name: multiName(outs), Module: modulePath}
	if err := b.graph.addEdge(last, split); err != nil {
		return err
	}
	for _, out := range outs {
		if err := b.graph.addEdge(split, &Node{Kind: TensorKind, Name: out, Module: modulePath}); err != nil {
			return err
		}
	}
	return nil
}

// validateConnections checks every name a module's graph spec mentions, in
// declaration order, so the first dangling reference is the one reported.
func validateConnections(conns []connection, layers cty.Value, inputs, outputs []string) error {
	produced := make(map[string]bool)
	consumed := make(map[string]bool)
	for _, conn := range conns {
		for _, n := range conn.to {
			produced[n] = true
		}
		for _, n := range conn.from {
			consumed[n] = true
		}
	}

	layerExists := func(name string) bool {
		_, ok := yamldoc.Attr(layers, name)
		return ok
	}
	for _, conn := range conns {
		for _, n := range conn.from {
			if !contains(inputs, n) && !layerExists(n) && !produced[n] {
				return &ValidationError{Missing: n}
			}
		}
		for _, n := range conn.with {
			if !layerExists(n) {
				return &ValidationError{Missing: n}
			}
		}
		for _, n := range conn.to {
			if !contains(outputs, n) && !layerExists(n) && !consumed[n] {
				return &ValidationError{Missing: n}
			}
		}
	}
	return nil
}

// ensureConnected verifies a path exists from every model input to at
// least one model output.
func (g *Graph) ensureConnected(inputs, outputs []string) error {
	outIDs := make([]string, 0, len(outputs))
	for _, out := range outputs {
		n := &Node{Kind: TensorKind, Name: out}
		outIDs = append(outIDs, n.ID())
	}
	for _, in := range inputs {
		n := &Node{Kind: TensorKind, Name: in}
		connected := false
		for _, outID := range outIDs {
			if g.hasPath(n.ID(), outID) {
				connected = true
				break
			}
		}
		if !connected {
			return &ConnectivityError{From: in}
		}
	}
	return nil
}

// optimize contracts redundant pass-through tensor nodes and prunes nodes
// with no path to any model output, repeating until a fixed point.
func (g *Graph) optimize(outputs []string) {
	outIDs := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		n := &Node{Kind: TensorKind, Name: out}
		outIDs[n.ID()] = true
	}

	for {
		changed := false
		for _, n := range g.Nodes() {
			id := n.ID()
			if n.Kind != TensorKind || outIDs[id] {
				continue
			}
			deps := g.Dependencies(id)
			dependents := g.Dependents(id)
			if len(deps) == 1 && len(dependents) == 1 {
				g.removeNode(id)
				g.link(deps[0], dependents[0])
				changed = true
			}
		}
		for _, n := range g.Nodes() {
			id := n.ID()
			if outIDs[id] {
				continue
			}
			reachesOutput := false
			for outID := range outIDs {
				if g.hasPath(id, outID) {
					reachesOutput = true
					break
				}
			}
			if !reachesOutput {
				g.removeNode(id)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func connections(params cty.Value, moduleName string) ([]connection, error) {
	raw, ok := yamldoc.Attr(params, "graph")
	if !ok {
		return nil, fmt.Errorf("module %q has no graph spec", moduleName)
	}
	raw, _ = raw.Unmark()
	entries := []cty.Value{raw}
	if !raw.IsNull() && raw.Type().IsTupleType() {
		entries = nil
		for it := raw.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			entries = append(entries, ev)
		}
	}

	conns := make([]connection, 0, len(entries))
	for _, entry := range entries {
		from, err := nameList(entry, "from", nil)
		if err != nil {
			return nil, err
		}
		to, err := nameList(entry, "to", nil)
		if err != nil {
			return nil, err
		}
		if len(from) == 0 || len(to) == 0 {
			return nil, fmt.Errorf("graph spec of module %q needs both from and to", moduleName)
		}
		with, err := nameList(entry, "with", []string{})
		if err != nil {
			return nil, err
		}
		conns = append(conns, connection{from: from, with: with, to: to})
	}
	return conns, nil
}

// nameList reads an attribute that holds either a single name or a list of
// names, falling back to a default when absent.
func nameList(v cty.Value, attrName string, fallback []string) ([]string, error) {
	raw, ok := yamldoc.Attr(v, attrName)
	if !ok {
		return fallback, nil
	}
	raw, _ = raw.Unmark()
	if raw.IsNull() {
		return fallback, nil
	}
	if raw.Type() == cty.String {
		return []string{raw.AsString()}, nil
	}
	if raw.Type().IsTupleType() {
		var names []string
		for it := raw.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			ev, _ = ev.Unmark()
			if ev.IsNull() || ev.Type() != cty.String {
				return nil, fmt.Errorf("%s must contain only names", attrName)
			}
			names = append(names, ev.AsString())
		}
		return names, nil
	}
	return nil, fmt.Errorf("%s must be a name or a list of names", attrName)
}

func isModuleSpec(v cty.Value) bool {
	t, ok := yamldoc.Attr(v, "type")
	if !ok {
		return false
	}
	t, _ = t.Unmark()
	return !t.IsNull() && t.Type() == cty.String && t.AsString() == "module"
}

func multiName(names []string) string {
	return "{" + strings.Join(names, ", ") + "}"
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
