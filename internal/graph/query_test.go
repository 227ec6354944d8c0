package graph

import (
	"testing"
	"time"
)

// buildFixture assembles a snapshot directly, bypassing storage, so query
// behavior can be pinned against exact adjacency.
func buildFixture(edges map[string][]string) *Graph {
	g := &Graph{
		Nodes:      make(map[string]*Node),
		Unresolved: make(map[string]struct{}),
		BuildTime:  time.Millisecond,
	}
	ensure := func(p string) *Node {
		if n, ok := g.Nodes[p]; ok {
			return n
		}
		n := &Node{Path: p, Title: p}
		g.Nodes[p] = n
		return n
	}
	for src, targets := range edges {
		n := ensure(src)
		for _, t := range targets {
			ensure(t)
			n.Outgoing = append(n.Outgoing, t)
		}
	}
	for _, n := range g.Nodes {
		for _, t := range n.Outgoing {
			g.Nodes[t].Incoming = append(g.Nodes[t].Incoming, n.Path)
		}
	}
	return g
}

func TestOutgoingIncoming_UnknownPathEmpty(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}})
	if got := g.Outgoing("nope"); len(got) != 0 {
		t.Errorf("outgoing of unknown = %v, want empty", got)
	}
	if got := g.Incoming("nope"); len(got) != 0 {
		t.Errorf("incoming of unknown = %v, want empty", got)
	}
}

func TestNeighborhood_DepthBound(t *testing.T) {
	// Chain a -> b -> c -> d; depth 2 from a must not reach d.
	g := buildFixture(map[string][]string{
		"a": {"b"}, "b": {"c"}, "c": {"d"},
	})
	got := g.Neighborhood("a", 2, 0, DirectionOutgoing)
	paths := map[string]int{}
	for _, n := range got {
		paths[n.Node.Path] = n.Distance
	}
	if _, ok := paths["d"]; ok {
		t.Error("depth 2 expansion reached d at distance 3")
	}
	if paths["c"] != 2 || paths["b"] != 1 || paths["a"] != 0 {
		t.Errorf("distances = %v", paths)
	}
}

func TestNeighborhood_NodeCap(t *testing.T) {
	g := buildFixture(map[string][]string{
		"hub": {"s1", "s2", "s3", "s4", "s5"},
	})
	got := g.Neighborhood("hub", 1, 3, DirectionOutgoing)
	if len(got) != 3 {
		t.Errorf("len = %d, want capped at 3", len(got))
	}
}

func TestNeighborhood_DirectionFilter(t *testing.T) {
	g := buildFixture(map[string][]string{
		"a": {"b"},
		"c": {"a"},
	})
	out := g.Neighborhood("a", 1, 0, DirectionOutgoing)
	if len(out) != 2 || out[1].Node.Path != "b" {
		t.Errorf("outgoing expansion = %v", pathsOf(out))
	}
	in := g.Neighborhood("a", 1, 0, DirectionIncoming)
	if len(in) != 2 || in[1].Node.Path != "c" {
		t.Errorf("incoming expansion = %v", pathsOf(in))
	}
	both := g.Neighborhood("a", 1, 0, DirectionBoth)
	if len(both) != 3 {
		t.Errorf("both expansion = %v, want a, b, c", pathsOf(both))
	}
}

func TestNeighborhood_NoRevisit(t *testing.T) {
	// a <-> b cycle must not loop.
	g := buildFixture(map[string][]string{"a": {"b"}, "b": {"a"}})
	got := g.Neighborhood("a", 5, 0, DirectionBoth)
	if len(got) != 2 {
		t.Errorf("cycle expansion = %v, want [a b]", pathsOf(got))
	}
}

func TestFindPaths_SimpleChain(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}, "b": {"c"}})
	paths := g.FindPaths("a", "c", 0)
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want exactly one", paths)
	}
	want := []string{"a", "b", "c"}
	for i, step := range want {
		if paths[0][i] != step {
			t.Errorf("path = %v, want %v", paths[0], want)
		}
	}
}

func TestFindPaths_AllShortestReturned(t *testing.T) {
	// Two disjoint length-3 routes a-b-d and a-c-d, plus a longer a-e-f-d.
	g := buildFixture(map[string][]string{
		"a": {"b", "c", "e"},
		"b": {"d"},
		"c": {"d"},
		"e": {"f"},
		"f": {"d"},
	})
	paths := g.FindPaths("a", "d", 0)
	if len(paths) != 2 {
		t.Fatalf("got %d paths %v, want the 2 shortest", len(paths), paths)
	}
	for _, p := range paths {
		if len(p) != 3 {
			t.Errorf("path %v has length %d, want 3", p, len(p))
		}
	}
}

func TestFindPaths_UsesIncomingEdges(t *testing.T) {
	// Only c -> a and c -> b exist; the undirected search still connects
	// a to b through c.
	g := buildFixture(map[string][]string{"c": {"a", "b"}})
	paths := g.FindPaths("a", "b", 0)
	if len(paths) != 1 || len(paths[0]) != 3 || paths[0][1] != "c" {
		t.Errorf("paths = %v, want [[a c b]]", paths)
	}
}

func TestFindPaths_Trivial(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}})
	paths := g.FindPaths("a", "a", 0)
	if len(paths) != 1 || len(paths[0]) != 1 || paths[0][0] != "a" {
		t.Errorf("paths = %v, want [[a]]", paths)
	}
}

func TestFindPaths_MissingEndpoint(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}})
	if paths := g.FindPaths("a", "ghost", 0); len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}
	if paths := g.FindPaths("ghost", "a", 0); len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}
}

func TestFindPaths_RespectsMaxDepth(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"d"}})
	if paths := g.FindPaths("a", "d", 2); len(paths) != 0 {
		t.Errorf("paths = %v, want none within 2 hops", paths)
	}
	if paths := g.FindPaths("a", "d", 3); len(paths) != 1 {
		t.Errorf("paths = %v, want one within 3 hops", paths)
	}
}

func TestOrphans(t *testing.T) {
	g := buildFixture(map[string][]string{"a": {"b"}, "loner": nil})
	orphans := g.Orphans()
	if len(orphans) != 1 || orphans[0].Path != "loner" {
		t.Errorf("orphans = %v, want [loner]", pathsOfNodes(orphans))
	}
}

func TestStats(t *testing.T) {
	g := buildFixture(map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"d": nil,
	})
	s := g.Stats()
	if s.NoteCount != 4 {
		t.Errorf("notes = %d, want 4", s.NoteCount)
	}
	if s.LinkCount != 3 {
		t.Errorf("links = %d, want 3", s.LinkCount)
	}
	if s.OrphanCount != 1 {
		t.Errorf("orphans = %d, want 1", s.OrphanCount)
	}
	if s.AvgOutDegree != 0.75 {
		t.Errorf("avg out = %v, want 0.75", s.AvgOutDegree)
	}
	if s.AvgInDegree != 0.75 {
		t.Errorf("avg in = %v, want 0.75", s.AvgInDegree)
	}
	if len(s.TopIncoming) == 0 || s.TopIncoming[0].Path != "c" {
		t.Errorf("top incoming = %v, want c first", s.TopIncoming)
	}
	if len(s.TopOutgoing) == 0 || s.TopOutgoing[0].Path != "a" {
		t.Errorf("top outgoing = %v, want a first", s.TopOutgoing)
	}
}

func pathsOf(ns []Neighbor) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Node.Path
	}
	return out
}

func pathsOfNodes(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Path
	}
	return out
}
