// Package graph implements a typed dependency graph: a vertex store, edge
// management, reachability traversals, and Tarjan-based cycle detection.
//
// Vertices are identified by a comparable key; the associated value is
// opaque to the graph itself but is used by package oracle as a dispatch
// tag. Edges are directed and follow the convention "dst depends on src":
// AddEdge(dst, src) records src as a prerequisite of dst.
//
// A Graph is not safe for concurrent use. Build it fully from a single
// goroutine, then treat it as read-only (package workqueue does exactly
// this).
package graph

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/distr1/buildcore"
	"golang.org/x/xerrors"
)

type vertex[K comparable, V any] struct {
	key          K
	value        V
	successors   map[K]struct{} // nodes that depend on this one
	predecessors map[K]struct{} // nodes this one depends on
}

// Graph is a directed dependency graph keyed by K with opaque payload V.
type Graph[K comparable, V any] struct {
	vertices  map[K]*vertex[K, V]
	rootNodes map[K]struct{} // no predecessors
	leafNodes map[K]struct{} // no successors

	directCyclic bool // set when any self-loop was inserted
}

// New returns an empty Graph.
func New[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{
		vertices:  make(map[K]*vertex[K, V]),
		rootNodes: make(map[K]struct{}),
		leafNodes: make(map[K]struct{}),
	}
}

// Len returns the number of vertices in the graph.
func (g *Graph[K, V]) Len() int { return len(g.vertices) }

// Contains reports whether key identifies a vertex in the graph.
func (g *Graph[K, V]) Contains(key K) bool {
	_, ok := g.vertices[key]
	return ok
}

// AddVertex inserts a fresh vertex. It fails with buildcore.ErrDuplicate if
// key already exists. The new vertex starts out as both a root and a leaf.
func (g *Graph[K, V]) AddVertex(key K, value V) error {
	if _, ok := g.vertices[key]; ok {
		return xerrors.Errorf("add vertex %v: %w", key, buildcore.ErrDuplicate)
	}
	g.vertices[key] = &vertex[K, V]{
		key:          key,
		value:        value,
		successors:   make(map[K]struct{}),
		predecessors: make(map[K]struct{}),
	}
	g.rootNodes[key] = struct{}{}
	g.leafNodes[key] = struct{}{}
	return nil
}

// Get returns the value stored for key.
func (g *Graph[K, V]) Get(key K) (V, error) {
	v, ok := g.vertices[key]
	if !ok {
		var zero V
		return zero, xerrors.Errorf("get %v: %w", key, buildcore.ErrNotFound)
	}
	return v.value, nil
}

// Set stores value for key, creating the vertex via AddVertex if it does
// not already exist. As with AddVertex, an existing key is left untouched
// and reported as buildcore.ErrDuplicate, matching the Python original's
// set() which delegates to add_vertex.
func (g *Graph[K, V]) Set(key K, value V) error {
	return g.AddVertex(key, value)
}

// AddEdge records dst as depending on each of srcs: dst acquires each src
// as a predecessor, and each src acquires dst as a successor. It fails with
// buildcore.ErrNotFound if dst or any src is missing. A self-loop (src ==
// dst) latches the graph's direct-cycle flag. Edge insertion is idempotent:
// adding the same edge twice does not inflate the adjacency sets.
func (g *Graph[K, V]) AddEdge(dst K, srcs ...K) error {
	d, ok := g.vertices[dst]
	if !ok {
		return xerrors.Errorf("add edge: dst %v: %w", dst, buildcore.ErrNotFound)
	}
	for _, src := range srcs {
		s, ok := g.vertices[src]
		if !ok {
			return xerrors.Errorf("add edge %v -> %v: src: %w", dst, src, buildcore.ErrNotFound)
		}
		if src == dst {
			g.directCyclic = true
		}
		d.predecessors[src] = struct{}{}
		s.successors[dst] = struct{}{}
		delete(g.rootNodes, dst)
		delete(g.leafNodes, src)
	}
	return nil
}

// AddEdges is the bulk form of AddEdge.
func (g *Graph[K, V]) AddEdges(dst K, srcs []K) error {
	return g.AddEdge(dst, srcs...)
}

// AddEdgesAny accepts an untyped sequence, rejecting anything that is not a
// slice or array (e.g. a bare string) with buildcore.ErrTypeMismatch rather
// than silently treating it as a single-element sequence. Typed Go callers
// should prefer AddEdges; this exists so callers bridging from untyped
// configuration data (e.g. decoded JSON) get the same rejection.
func (g *Graph[K, V]) AddEdgesAny(dst K, seq any) error {
	rv := reflect.ValueOf(seq)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return xerrors.Errorf("add edges %v: %T is not a sequence: %w", dst, seq, buildcore.ErrTypeMismatch)
	}
	srcs := make([]K, rv.Len())
	for i := range srcs {
		v, ok := rv.Index(i).Interface().(K)
		if !ok {
			return xerrors.Errorf("add edges %v: element %d is not of the graph's key type: %w", dst, i, buildcore.ErrTypeMismatch)
		}
		srcs[i] = v
	}
	return g.AddEdge(dst, srcs...)
}

// GetDirectPredecessors returns the keys that key directly depends on.
func (g *Graph[K, V]) GetDirectPredecessors(key K) ([]K, error) {
	v, ok := g.vertices[key]
	if !ok {
		return nil, xerrors.Errorf("get direct predecessors %v: %w", key, buildcore.ErrNotFound)
	}
	return keysOf(v.predecessors), nil
}

// GetDirectSuccessors returns the keys that directly depend on key.
func (g *Graph[K, V]) GetDirectSuccessors(key K) ([]K, error) {
	v, ok := g.vertices[key]
	if !ok {
		return nil, xerrors.Errorf("get direct successors %v: %w", key, buildcore.ErrNotFound)
	}
	return keysOf(v.successors), nil
}

// GetAllPredecessors returns every node transitively reachable from key via
// predecessor edges, excluding key itself, each exactly once. The order is
// deepest-first (a post-order DFS): a node is emitted only after all of its
// own predecessors have been emitted, which is what lets workqueue's
// staleness analysis assign timestamps to prerequisites before the nodes
// that depend on them.
func (g *Graph[K, V]) GetAllPredecessors(key K) ([]K, error) {
	if _, ok := g.vertices[key]; !ok {
		return nil, xerrors.Errorf("get all predecessors %v: %w", key, buildcore.ErrNotFound)
	}
	var order []K
	seen := map[K]bool{key: true}

	// Explicit frame stack in place of recursion, the same shape as
	// strongConnect in tarjan.go, so a deep dependency chain cannot
	// overflow the host call stack.
	preds := keysOf(g.vertices[key].predecessors)
	sort.Slice(preds, func(i, j int) bool { return lessKey(preds[i], preds[j]) })
	stack := []*predFrame[K]{{succs: preds}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.succIdx >= len(top.succs) {
			stack = stack[:len(stack)-1]
			if top.node != nil {
				order = append(order, *top.node)
			}
			continue
		}
		p := top.succs[top.succIdx]
		top.succIdx++
		if seen[p] {
			continue
		}
		seen[p] = true
		ps := keysOf(g.vertices[p].predecessors)
		sort.Slice(ps, func(i, j int) bool { return lessKey(ps[i], ps[j]) })
		stack = append(stack, &predFrame[K]{node: &p, succs: ps})
	}
	return order, nil
}

// predFrame is one (would-be) stack frame of GetAllPredecessors' recursive
// formulation: node is the predecessor this frame is visiting (nil for the
// synthetic root frame seeded with key's own direct predecessors), succs is
// its own predecessors to walk, and succIdx tracks how far that walk has
// progressed.
type predFrame[K comparable] struct {
	node    *K
	succs   []K
	succIdx int
}

// GetAllSuccessors returns every node transitively reachable from key via
// successor edges, excluding key itself, each exactly once, in breadth-
// first order.
func (g *Graph[K, V]) GetAllSuccessors(key K) ([]K, error) {
	if _, ok := g.vertices[key]; !ok {
		return nil, xerrors.Errorf("get all successors %v: %w", key, buildcore.ErrNotFound)
	}
	var order []K
	seen := map[K]bool{key: true}
	queue := []K{key}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		succs := keysOf(g.vertices[k].successors)
		sort.Slice(succs, func(i, j int) bool { return lessKey(succs[i], succs[j]) })
		for _, s := range succs {
			if seen[s] {
				continue
			}
			seen[s] = true
			order = append(order, s)
			queue = append(queue, s)
		}
	}
	return order, nil
}

// Item is one (key, value) pair, returned by Items.
type Item[K comparable, V any] struct {
	Key   K
	Value V
}

// Items returns every vertex as a (key, value) pair. Order is unspecified.
func (g *Graph[K, V]) Items() []Item[K, V] {
	items := make([]Item[K, V], 0, len(g.vertices))
	for k, v := range g.vertices {
		items = append(items, Item[K, V]{Key: k, Value: v.value})
	}
	return items
}

// RootNodes returns the keys with no predecessors.
func (g *Graph[K, V]) RootNodes() []K { return keysOf(g.rootNodes) }

// LeafNodes returns the keys with no successors.
func (g *Graph[K, V]) LeafNodes() []K { return keysOf(g.leafNodes) }

func keysOf[K comparable](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// lessKey provides a deterministic (if arbitrary) total order over keys so
// traversal output does not depend on Go's randomized map iteration. It
// compares the %v formatting of the two keys, which is sufficient for
// stable test output without requiring K to implement cmp.Ordered.
func lessKey[K comparable](a, b K) bool {
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}
