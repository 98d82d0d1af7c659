package graph

import (
	"math/rand"
	"sort"

	"github.com/distr1/buildcore/internal/uniquestack"
)

// Option configures IsCyclic and TarjanSCC.
type Option func(*tarjanOpts)

type tarjanOpts struct {
	shuffle rand.Source
}

// WithShuffle reorders the outer iteration over vertices using src before
// running Tarjan's algorithm. It exists to verify that cycle detection does
// not depend on vertex insertion order: IsCyclic's boolean answer is
// unaffected, but TarjanSCC's component order, and the order within a
// component, may change.
func WithShuffle(src rand.Source) Option {
	return func(o *tarjanOpts) { o.shuffle = src }
}

// TarjanSCC partitions the graph's vertices into strongly connected
// components using an explicit work stack rather than recursion, so
// arbitrarily long dependency chains cannot overflow the host call stack
// (the textbook recursive formulation fails on chains of roughly 1000
// nodes or more; see this package's entry in DESIGN.md).
func (g *Graph[K, V]) TarjanSCC(opts ...Option) [][]K {
	var o tarjanOpts
	for _, opt := range opts {
		opt(&o)
	}

	order := keysOf(mapAll(g.vertices))
	sort.Slice(order, func(i, j int) bool { return lessKey(order[i], order[j]) })
	if o.shuffle != nil {
		r := rand.New(o.shuffle)
		r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	st := &tarjanState[K]{
		index:   make(map[K]int, len(g.vertices)),
		lowlink: make(map[K]int, len(g.vertices)),
		onStack: make(map[K]bool, len(g.vertices)),
	}
	stack, _ := uniquestack.New[K]()
	st.stack = stack

	for _, k := range order {
		if _, seen := st.index[k]; seen {
			continue
		}
		g.strongConnect(k, st)
	}
	return st.sccs
}

// IsCyclic reports whether the graph contains a cycle: either a direct
// self-loop, or a strongly connected component of size two or more.
func (g *Graph[K, V]) IsCyclic(opts ...Option) bool {
	if g.directCyclic {
		return true
	}
	return len(g.TarjanSCC(opts...)) < len(g.vertices)
}

type tarjanState[K comparable] struct {
	index   map[K]int
	lowlink map[K]int
	onStack map[K]bool
	stack   *uniquestack.Stack[K]
	next    int
	sccs    [][]K
}

// frame is one (would-be) stack frame of the recursive strongConnect(v),
// tracking how far we've iterated through v's successors so the explicit
// work stack below can resume where it left off.
type frame[K comparable] struct {
	node    K
	succs   []K
	succIdx int
}

// strongConnect runs Tarjan's algorithm starting at root using an explicit
// stack of frame values in place of recursion. Mirrors the classic
// recursive algorithm field-for-field (index, lowlink, onStack, a
// uniqueness-checked stack of visited-but-unfinished nodes); the only
// difference is that "recurse into w" becomes "push a frame for w and
// continue the outer loop".
func (g *Graph[K, V]) strongConnect(root K, st *tarjanState[K]) {
	push := func(k K) *frame[K] {
		st.index[k] = st.next
		st.lowlink[k] = st.next
		st.next++
		st.onStack[k] = true
		st.stack.Push(k)
		succs := keysOf(g.vertices[k].successors)
		sort.Slice(succs, func(i, j int) bool { return lessKey(succs[i], succs[j]) })
		return &frame[K]{node: k, succs: succs}
	}

	frames := []*frame[K]{push(root)}
	for len(frames) > 0 {
		f := frames[len(frames)-1]
		if f.succIdx < len(f.succs) {
			w := f.succs[f.succIdx]
			f.succIdx++
			if _, seen := st.index[w]; !seen {
				frames = append(frames, push(w))
				continue
			}
			if st.onStack[w] && st.index[w] < st.lowlink[f.node] {
				st.lowlink[f.node] = st.index[w]
			}
			continue
		}

		// All of f.node's successors are processed; pop its frame and fold
		// its lowlink into its caller's, exactly as a return from
		// strongConnect(f.node) would.
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := frames[len(frames)-1]
			if st.lowlink[f.node] < st.lowlink[parent.node] {
				st.lowlink[parent.node] = st.lowlink[f.node]
			}
		}
		if st.lowlink[f.node] == st.index[f.node] {
			var scc []K
			for {
				w, err := st.stack.Pop()
				if err != nil {
					// The stack was populated by push() for every node
					// on it; running out before reaching f.node would
					// mean the index/lowlink bookkeeping above is
					// inconsistent with the stack contents.
					panic("graph: tarjan stack exhausted before closing component: " + err.Error())
				}
				st.onStack[w] = false
				scc = append(scc, w)
				if w == f.node {
					break
				}
			}
			st.sccs = append(st.sccs, scc)
		}
	}
}

func mapAll[K comparable, V any](m map[K]*vertex[K, V]) map[K]struct{} {
	out := make(map[K]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
