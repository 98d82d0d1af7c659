package graph

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/distr1/buildcore"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/graph/topo"
)

func TestAddVertex(t *testing.T) {
	g := New[string, int]()
	if err := g.AddVertex("a", 1); err != nil {
		t.Fatal(err)
	}
	if !g.Contains("a") {
		t.Fatal("Contains(a) = false after AddVertex")
	}
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
	if !containsKey(g.RootNodes(), "a") || !containsKey(g.LeafNodes(), "a") {
		t.Fatal("fresh vertex must be both root and leaf")
	}
}

func TestAddVertexDuplicateFails(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("a", 1)
	if err := g.AddVertex("a", 2); !errors.Is(err, buildcore.ErrDuplicate) {
		t.Fatalf("AddVertex(duplicate) = %v, want ErrDuplicate", err)
	}
}

func TestAddEdge(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("foo", 0)
	g.AddVertex("bar", 0)
	if err := g.AddEdge("foo", "bar"); err != nil {
		t.Fatal(err)
	}
	preds, _ := g.GetDirectPredecessors("foo")
	if !containsKey(preds, "bar") {
		t.Fatal("bar should be a predecessor of foo")
	}
	succs, _ := g.GetDirectSuccessors("bar")
	if !containsKey(succs, "foo") {
		t.Fatal("foo should be a successor of bar")
	}
	if containsKey(g.RootNodes(), "foo") {
		t.Fatal("foo must no longer be a root node")
	}
	if containsKey(g.LeafNodes(), "bar") {
		t.Fatal("bar must no longer be a leaf node")
	}
}

func TestAddEdgeMissingVertexFails(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("foo", 0)
	if err := g.AddEdge("foo", "missing"); !errors.Is(err, buildcore.ErrNotFound) {
		t.Fatalf("AddEdge with missing src = %v, want ErrNotFound", err)
	}
	if err := g.AddEdge("missing", "foo"); !errors.Is(err, buildcore.ErrNotFound) {
		t.Fatalf("AddEdge with missing dst = %v, want ErrNotFound", err)
	}
}

func TestAddEdgeIdempotent(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("foo", 0)
	g.AddVertex("bar", 0)
	g.AddEdge("foo", "bar")
	g.AddEdge("foo", "bar")
	preds, _ := g.GetDirectPredecessors("foo")
	if len(preds) != 1 {
		t.Fatalf("GetDirectPredecessors(foo) = %v, want exactly one entry", preds)
	}
}

func TestAddEdgesAnyRejectsNonSequence(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("a", 0)
	if err := g.AddEdgesAny("a", "b"); !errors.Is(err, buildcore.ErrTypeMismatch) {
		t.Fatalf("AddEdgesAny(a, \"b\") = %v, want ErrTypeMismatch", err)
	}
}

func TestAddEdgesAnyAcceptsSlice(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("a", 0)
	g.AddVertex("b", 0)
	if err := g.AddEdgesAny("a", []string{"b"}); err != nil {
		t.Fatal(err)
	}
	preds, _ := g.GetDirectPredecessors("a")
	if !containsKey(preds, "b") {
		t.Fatal("AddEdgesAny should have added b as a predecessor of a")
	}
}

func TestSelfLoopIsCyclic(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("a", 0)
	if err := g.AddEdge("a", "a"); err != nil {
		t.Fatal(err)
	}
	if !g.IsCyclic() {
		t.Fatal("self-loop graph should be cyclic")
	}
}

func TestThreeCycleIsCyclic(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"a", "b", "c"} {
		g.AddVertex(k, 0)
	}
	// b depends on a, c depends on b, a depends on c
	g.AddEdge("b", "a")
	g.AddEdge("c", "b")
	g.AddEdge("a", "c")
	if !g.IsCyclic() {
		t.Fatal("three-cycle graph should be cyclic")
	}
}

func TestAcyclicGraphNotCyclic(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"foo", "foo.o", "foo.c", "foo.h"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("foo", "foo.o")
	g.AddEdge("foo.o", "foo.c")
	g.AddEdge("foo.o", "foo.h")
	if g.IsCyclic() {
		t.Fatal("acyclic three-file graph should not be cyclic")
	}
	sccs := g.TarjanSCC()
	if len(sccs) != g.Len() {
		t.Fatalf("TarjanSCC produced %d components, want %d (one per vertex)", len(sccs), g.Len())
	}
}

func TestDeepDisconnectedCycle(t *testing.T) {
	g := New[int, int]()
	const n = 100
	for i := 0; i < n; i++ {
		g.AddVertex(i, 0)
	}
	// a 100-node tree of divide-by-two edges: i depends on i/2
	for i := 1; i < n; i++ {
		g.AddEdge(i, i/2)
	}
	// a separate 3-node cycle, disjoint from the chain
	for _, k := range []int{1000, 1001, 1002} {
		g.AddVertex(k, 0)
	}
	g.AddEdge(1001, 1000)
	g.AddEdge(1002, 1001)
	g.AddEdge(1000, 1002)

	if !g.IsCyclic() {
		t.Fatal("graph containing a disjoint 3-cycle should be cyclic")
	}
}

func TestVeryLongChainDoesNotOverflow(t *testing.T) {
	g := New[int, int]()
	const n = 20000 // far beyond the ~1000-node recursive-Tarjan limit
	g.AddVertex(0, 0)
	for i := 1; i < n; i++ {
		g.AddVertex(i, 0)
		g.AddEdge(i, i-1)
	}
	if g.IsCyclic() {
		t.Fatal("long acyclic chain reported as cyclic")
	}
}

func TestIsCyclicStableUnderShuffle(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"a", "b", "c", "d"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("b", "a")
	g.AddEdge("c", "b")
	g.AddEdge("d", "c")

	want := g.IsCyclic()
	for seed := int64(0); seed < 10; seed++ {
		got := g.IsCyclic(WithShuffle(rand.NewSource(seed)))
		if got != want {
			t.Fatalf("IsCyclic with shuffle seed %d = %v, want %v", seed, got, want)
		}
	}
}

func TestGetAllPredecessors(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"foo", "foo.o", "foo.c", "foo.h"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("foo", "foo.o")
	g.AddEdge("foo.o", "foo.c")
	g.AddEdge("foo.o", "foo.h")

	got, err := g.GetAllPredecessors("foo")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{"foo.c", "foo.h", "foo.o"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetAllPredecessors(foo) diff (-want +got):\n%s", diff)
	}
}

func TestGetAllPredecessorsDeepestFirst(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"a", "b", "c"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	got, err := g.GetAllPredecessors("a")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"c", "b"} // c is deeper than b, must come first
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetAllPredecessors(a) diff (-want +got):\n%s", diff)
	}
}

func TestGetAllSuccessorsBreadthFirst(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"a", "b", "c"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("b", "a") // b depends on a: a -> b
	g.AddEdge("c", "b") // c depends on b: b -> c
	got, err := g.GetAllSuccessors("a")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetAllSuccessors(a) diff (-want +got):\n%s", diff)
	}
}

func TestGetAllPredecessorsOnCycleTerminates(t *testing.T) {
	g := New[string, int]()
	for _, k := range []string{"a", "b", "c"} {
		g.AddVertex(k, 0)
	}
	g.AddEdge("b", "a")
	g.AddEdge("c", "b")
	g.AddEdge("a", "c")
	got, err := g.GetAllPredecessors("a")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{"b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetAllPredecessors(a) on cycle diff (-want +got):\n%s", diff)
	}
}

func TestItems(t *testing.T) {
	g := New[string, int]()
	g.AddVertex("a", 1)
	g.AddVertex("b", 2)
	items := g.Items()
	got := map[string]int{}
	for _, it := range items {
		got[it.Key] = it.Value
	}
	want := map[string]int{"a": 1, "b": 2}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Items() diff (-want +got):\n%s", diff)
	}
}

func TestToDirectedAgreesWithIsCyclic(t *testing.T) {
	for _, tt := range []struct {
		name  string
		build func(g *Graph[string, int])
	}{
		{"acyclic", func(g *Graph[string, int]) {
			for _, k := range []string{"foo", "foo.o", "foo.c"} {
				g.AddVertex(k, 0)
			}
			g.AddEdge("foo", "foo.o")
			g.AddEdge("foo.o", "foo.c")
		}},
		{"cyclic", func(g *Graph[string, int]) {
			for _, k := range []string{"a", "b", "c"} {
				g.AddVertex(k, 0)
			}
			g.AddEdge("b", "a")
			g.AddEdge("c", "b")
			g.AddEdge("a", "c")
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g := New[string, int]()
			tt.build(g)
			_, sortErr := topo.Sort(g.ToDirected())
			gonumCyclic := sortErr != nil
			if got := g.IsCyclic(); got != gonumCyclic {
				t.Fatalf("IsCyclic() = %v, gonum topo.Sort disagreement (err=%v)", got, sortErr)
			}
		})
	}
}

func containsKey[K comparable](haystack []K, needle K) bool {
	for _, k := range haystack {
		if k == needle {
			return true
		}
	}
	return false
}

func ExampleGraph_threeFileBuild() {
	g := New[string, string]()
	for _, k := range []string{"foo", "foo.o", "foo.c", "foo.h"} {
		g.AddVertex(k, "file")
	}
	g.AddEdge("foo", "foo.o")
	g.AddEdge("foo.o", "foo.c")
	g.AddEdge("foo.o", "foo.h")
	preds, _ := g.GetAllPredecessors("foo")
	fmt.Println(preds)
	// Output: [foo.c foo.h foo.o]
}
