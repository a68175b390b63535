// Package linkgraph tracks the directed edges between logic nodes' property
// trees and drives the propagation order each update() tick walks (spec.md
// §4.F "Link graph & scheduler"). It owns edge validation and topological
// ordering; evaluating a node's own run/interface/animation/timer/binding
// logic is internal/engine's job, called once this package has pulled a
// node's inputs into place.
package linkgraph

import (
	"sort"

	"scenelogic/internal/lerrors"
	"scenelogic/internal/ltypes"
	"scenelogic/internal/proptree"
)

// Edge is one directed link, strong or weak (spec.md §4.F "Edges").
type Edge struct {
	Src, Dst proptree.PropertyRef
	Weak     bool
}

// Graph is the engine-wide set of registered node property trees and the
// edges between them.
type Graph struct {
	trees     map[uint64]*proptree.Tree
	nodeOrder []uint64 // registration order, for a stable topological tie-break

	edges     []Edge
	edgeByDst map[proptree.PropertyRef]Edge

	dirtyStructure bool
	order          []uint64

	weakSnapshot map[proptree.PropertyRef]valueSnapshot
	evaluated    map[uint64]bool
}

// New builds an empty graph.
func New() *Graph {
	return &Graph{
		trees:     make(map[uint64]*proptree.Tree),
		edgeByDst: make(map[proptree.PropertyRef]Edge),
		evaluated: make(map[uint64]bool),
	}
}

// Register adds nodeID's property tree to the graph. A node with no Props
// tree (Module, DataArray) is never registered and can therefore never
// appear as a link endpoint.
func (g *Graph) Register(id uint64, tree *proptree.Tree) {
	if tree == nil {
		return
	}
	if _, exists := g.trees[id]; !exists {
		g.nodeOrder = append(g.nodeOrder, id)
	}
	g.trees[id] = tree
	g.dirtyStructure = true
}

// Unregister removes a node and every edge touching it, returning the
// removed edges. The engine façade's destroy() uses this to implement its
// implicit-unlink-then-deallocate policy (DESIGN.md open question (b)) and
// to report which links were severed.
func (g *Graph) Unregister(id uint64) []Edge {
	var removed []Edge
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Src.NodeID == id || e.Dst.NodeID == id {
			removed = append(removed, e)
			delete(g.edgeByDst, e.Dst)
			if srcTree := g.trees[e.Src.NodeID]; srcTree != nil {
				srcTree.DetachOutgoing(e.Src, e.Dst)
			}
			if dstTree := g.trees[e.Dst.NodeID]; dstTree != nil {
				dstTree.ClearIncoming(e.Dst)
			}
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept

	delete(g.trees, id)
	delete(g.evaluated, id)
	for i, n := range g.nodeOrder {
		if n == id {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}
	g.dirtyStructure = true
	return removed
}

// Link validates and records src -> dst (spec.md §4.F "Insertion").
func (g *Graph) Link(src, dst proptree.PropertyRef, weak bool) error {
	srcTree, ok := g.trees[src.NodeID]
	if !ok {
		return lerrors.New(lerrors.IllegalArgument, "link: source node %d is not registered", src.NodeID)
	}
	dstTree, ok := g.trees[dst.NodeID]
	if !ok {
		return lerrors.New(lerrors.IllegalArgument, "link: target node %d is not registered", dst.NodeID)
	}
	if src == dst {
		return lerrors.New(lerrors.IllegalArgument, "link: source and target properties are identical")
	}
	if src.NodeID == dst.NodeID {
		return lerrors.New(lerrors.IllegalArgument, "link: source and target belong to the same node")
	}
	if !isOutputSide(srcTree, src) {
		return lerrors.New(lerrors.IllegalArgument, "link: source property is not on an output frontier")
	}
	if !isInputSide(dstTree, dst) {
		return lerrors.New(lerrors.IllegalArgument, "link: target property is not on an input frontier")
	}
	if !schemaEqual(srcTree.SchemaOf(src), dstTree.SchemaOf(dst)) {
		return lerrors.New(lerrors.TypeMismatch, "link: source and target properties have different types")
	}
	if dstTree.HasIncoming(dst) {
		return lerrors.New(lerrors.DuplicateProperty, "link: target property already has an incoming link")
	}
	if !weak && g.reaches(dst.NodeID, src.NodeID) {
		return lerrors.New(lerrors.CycleDetected, "link: adding a strong edge from node %d to node %d would close a cycle", src.NodeID, dst.NodeID)
	}

	srcTree.AttachOutgoing(src, dst)
	dstTree.SetIncoming(dst, src)
	e := Edge{Src: src, Dst: dst, Weak: weak}
	g.edges = append(g.edges, e)
	g.edgeByDst[dst] = e
	g.dirtyStructure = true
	return nil
}

// Unlink removes the exact edge src -> dst (spec.md §4.F "Removal").
func (g *Graph) Unlink(src, dst proptree.PropertyRef) error {
	e, ok := g.edgeByDst[dst]
	if !ok || e.Src != src {
		return lerrors.New(lerrors.UnknownProperty, "unlink: no edge from the given source to the given target")
	}
	delete(g.edgeByDst, dst)
	for i, existing := range g.edges {
		if existing.Src == src && existing.Dst == dst {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
	if srcTree := g.trees[src.NodeID]; srcTree != nil {
		srcTree.DetachOutgoing(src, dst)
	}
	if dstTree := g.trees[dst.NodeID]; dstTree != nil {
		dstTree.ClearIncoming(dst)
	}
	g.dirtyStructure = true
	return nil
}

// IsLinked reports whether any property owned by nodeID participates in a
// link, as source or target (backs the façade's is_linked(object)).
func (g *Graph) IsLinked(nodeID uint64) bool {
	tree := g.trees[nodeID]
	if tree == nil {
		return false
	}
	for i := range tree.Props {
		if tree.Props[i].Incoming != nil || len(tree.Props[i].Outgoing) > 0 {
			return true
		}
	}
	return false
}

// Edges returns a copy of every recorded edge, for the serializer.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Order returns a stable topological order over strong edges, recomputing
// it first if the graph's structure changed since the last call (spec.md
// §4.F: "recomputed lazily when edges change").
func (g *Graph) Order() ([]uint64, error) {
	if g.dirtyStructure {
		if err := g.recomputeOrder(); err != nil {
			return nil, err
		}
	}
	out := make([]uint64, len(g.order))
	copy(out, g.order)
	return out, nil
}

func (g *Graph) recomputeOrder() error {
	indegree := make(map[uint64]int, len(g.trees))
	adj := make(map[uint64][]uint64, len(g.trees))
	for id := range g.trees {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		if e.Weak || e.Src.NodeID == e.Dst.NodeID {
			continue
		}
		adj[e.Src.NodeID] = append(adj[e.Src.NodeID], e.Dst.NodeID)
		indegree[e.Dst.NodeID]++
	}

	position := make(map[uint64]int, len(g.nodeOrder))
	for i, id := range g.nodeOrder {
		position[id] = i
	}

	var ready []uint64
	for _, id := range g.nodeOrder {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]uint64, 0, len(g.trees))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var newlyReady []uint64
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				newlyReady = append(newlyReady, next)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return position[newlyReady[i]] < position[newlyReady[j]] })
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(g.trees) {
		return lerrors.New(lerrors.CycleDetected, "link graph: strong-edge subgraph is not a DAG")
	}
	g.order = order
	g.dirtyStructure = false
	return nil
}

// reaches reports whether from can reach to by following only strong edges,
// used to reject a strong edge whose addition would close a cycle.
func (g *Graph) reaches(from, to uint64) bool {
	visited := make(map[uint64]bool)
	var dfs func(uint64) bool
	dfs = func(n uint64) bool {
		if n == to {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, e := range g.edges {
			if e.Weak || e.Src.NodeID != n {
				continue
			}
			if dfs(e.Dst.NodeID) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}

// MarkEvaluated records that nodeID has produced at least one output, so its
// outgoing weak edges start delivering snapshots on the next tick. The
// engine calls this right after a node's first successful evaluation; until
// then a weak edge sourced from it carries no value yet, and PullInputs
// leaves the destination's existing (e.g. caller pre-set) value alone
// instead of delivering a zero-default (spec.md §8 scenario 4: an explicit
// pre-tick input survives into the node's first run()).
func (g *Graph) MarkEvaluated(nodeID uint64) {
	g.evaluated[nodeID] = true
}

// BeginTick snapshots every weak edge's current source value. PullInputs
// uses these snapshots for the rest of the tick, so a weak edge always
// reads its source "as of the previous tick" regardless of whether the
// source node has already re-evaluated earlier in this same tick (spec.md
// §4.F: "the propagator snapshots weak-edge source outputs at the start of
// the tick"). A source that has never evaluated has produced nothing to
// snapshot, so its weak edges are skipped this tick rather than delivering
// a misleading zero-default.
func (g *Graph) BeginTick() {
	g.weakSnapshot = make(map[proptree.PropertyRef]valueSnapshot, len(g.edges))
	for _, e := range g.edges {
		if !e.Weak {
			continue
		}
		if !g.evaluated[e.Src.NodeID] {
			continue
		}
		srcTree := g.trees[e.Src.NodeID]
		if srcTree == nil {
			continue
		}
		g.weakSnapshot[e.Dst] = snapshotValue(srcTree, e.Src)
	}
}

// PullInputs copies every incoming edge's source value into nodeID's
// matching property: strong edges copy the source's live (this-tick)
// value, weak edges replay the BeginTick snapshot. The copy goes through
// Tree.SetInternal, which marks nodeID dirty automatically when a copied
// value actually changed — the engine uses that to decide whether nodeID
// needs to be evaluated this tick (spec.md §4.F step 2).
func (g *Graph) PullInputs(nodeID uint64) error {
	tree := g.trees[nodeID]
	if tree == nil {
		return nil
	}
	for i := range tree.Props {
		if tree.Props[i].Incoming == nil {
			continue
		}
		dst := proptree.PropertyRef{NodeID: nodeID, Index: int32(i)}
		e, ok := g.edgeByDst[dst]
		if !ok {
			continue
		}
		if e.Weak {
			snap, ok := g.weakSnapshot[dst]
			if !ok {
				continue
			}
			if err := applySnapshot(tree, dst, snap); err != nil {
				return err
			}
			continue
		}
		srcTree := g.trees[e.Src.NodeID]
		if srcTree == nil {
			continue
		}
		if err := proptree.CopyValue(srcTree, e.Src, tree, dst); err != nil {
			return err
		}
	}
	return nil
}

// valueSnapshot is a value-only mirror of a (possibly composite) property,
// detached from any Tree, used to replay a weak edge's tick-start value.
type valueSnapshot struct {
	isLeaf   bool
	leaf     ltypes.Value
	children []valueSnapshot
}

func snapshotValue(tree *proptree.Tree, ref proptree.PropertyRef) valueSnapshot {
	schema := tree.SchemaOf(ref)
	if schema.Kind.IsPrimitiveOrVector() {
		v, _ := tree.GetAny(ref)
		return valueSnapshot{isLeaf: true, leaf: v}
	}
	n := tree.ChildCount(ref)
	children := make([]valueSnapshot, n)
	for i := 0; i < n; i++ {
		child, _ := tree.ChildByIndex(ref, i)
		children[i] = snapshotValue(tree, child)
	}
	return valueSnapshot{children: children}
}

func applySnapshot(tree *proptree.Tree, ref proptree.PropertyRef, snap valueSnapshot) error {
	if snap.isLeaf {
		return tree.SetInternal(ref, snap.leaf)
	}
	n := tree.ChildCount(ref)
	for i := 0; i < n && i < len(snap.children); i++ {
		child, _ := tree.ChildByIndex(ref, i)
		if err := applySnapshot(tree, child, snap.children[i]); err != nil {
			return err
		}
	}
	return nil
}

// isOutputSide/isInputSide classify a property by which root of its own
// tree it descends from — not by Role, since an Interface node's input and
// output roots share the same RoleInterfaceField.
func isOutputSide(tree *proptree.Tree, ref proptree.PropertyRef) bool {
	return tree.OutputRoot >= 0 && ancestorRoot(tree, ref) == tree.OutputRoot
}

func isInputSide(tree *proptree.Tree, ref proptree.PropertyRef) bool {
	return tree.InputRoot >= 0 && ancestorRoot(tree, ref) == tree.InputRoot
}

func ancestorRoot(tree *proptree.Tree, ref proptree.PropertyRef) int32 {
	idx := ref.Index
	for {
		parent, ok := tree.ParentOf(proptree.PropertyRef{NodeID: tree.NodeID, Index: idx})
		if !ok {
			return idx
		}
		idx = parent.Index
	}
}

// schemaEqual compares two frozen schemas structurally (link validation's
// "same type" requirement covers both leaf types and whole-struct links).
func schemaEqual(a, b *ltypes.HierarchicalType) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ltypes.Struct:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !schemaEqual(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case ltypes.Array:
		return a.ArrayLen == b.ArrayLen && schemaEqual(a.ArrayElement, b.ArrayElement)
	default:
		return true
	}
}
