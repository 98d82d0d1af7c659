package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// ToDirected builds a gonum graph.Directed mirroring this graph, so callers
// can run the wider gonum toolkit over it: topo.Sort to get a build order
// (and, on cyclic input, the offending components, as
// cmd/distri/batch.go does to break dependency cycles), or
// graph/encoding/dot to render it for inspection. This graph's own
// IsCyclic/TarjanSCC do not depend on gonum; ToDirected exists purely as an
// interop seam, and this package's tests cross-check that the two cycle
// verdicts agree.
func (g *Graph[K, V]) ToDirected() graph.Directed {
	dg := simple.NewDirectedGraph()

	ids := make(map[K]int64, len(g.vertices))
	keys := keysOf(mapAll(g.vertices))
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	for i, k := range keys {
		id := int64(i)
		ids[k] = id
		dg.AddNode(&taggedNode[K]{id: id, key: k})
	}
	for _, k := range keys {
		for succ := range g.vertices[k].successors {
			// succ depends on k ⇒ k is a prerequisite of succ ⇒ the edge
			// points from the dependent to its prerequisite, matching
			// batch.go's g.SetEdge(g.NewEdge(n, d)) ("n depends on d").
			dg.SetEdge(dg.NewEdge(dg.Node(ids[succ]), dg.Node(ids[k])))
		}
	}
	return dg
}

// taggedNode implements gonum's graph.Node while remembering the original
// key, so a caller walking the gonum graph can recover which vertex a
// gonum-assigned ID corresponds to.
type taggedNode[K comparable] struct {
	id  int64
	key K
}

func (n *taggedNode[K]) ID() int64 { return n.id }

// Key returns the original graph key this gonum node stands in for.
func (n *taggedNode[K]) Key() K { return n.key }
