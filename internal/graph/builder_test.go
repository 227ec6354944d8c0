package graph

import (
	"log/slog"
	"testing"

	"github.com/starford/raido/internal/testutil"
)

func testBuilder(t *testing.T, notes map[string]string) *Builder {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.Seed(t, store, notes)
	return NewBuilder(store, slog.Default())
}

func TestBuild_ResolvesLinksAndInverts(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"a.md": "links to [[b]] and [[c]]",
		"b.md": "links to [[c]]",
		"c.md": "no links",
	})
	g, err := b.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(g.Nodes))
	}

	// Inversion invariant: B in A.Outgoing iff A in B.Incoming.
	for _, n := range g.Nodes {
		for _, target := range n.Outgoing {
			if !contains(g.Nodes[target].Incoming, n.Path) {
				t.Errorf("%s -> %s missing from incoming", n.Path, target)
			}
		}
		for _, source := range n.Incoming {
			if !contains(g.Nodes[source].Outgoing, n.Path) {
				t.Errorf("%s <- %s missing from outgoing", n.Path, source)
			}
		}
	}

	if len(g.Nodes["c.md"].Incoming) != 2 {
		t.Errorf("c.md incoming = %v, want 2 entries", g.Nodes["c.md"].Incoming)
	}
}

func TestBuild_UnresolvedAreCollectedNotEdges(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"a.md": "see [[missing-note]] and [[b]]",
		"b.md": "plain",
	})
	g, err := b.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.Nodes["a.md"].Outgoing) != 1 {
		t.Errorf("outgoing = %v, want just b.md", g.Nodes["a.md"].Outgoing)
	}
	unresolved := g.UnresolvedLinks()
	if len(unresolved) != 1 || unresolved[0] != "missing-note" {
		t.Errorf("unresolved = %v, want [missing-note]", unresolved)
	}
}

func TestBuild_ResolutionFormsAndCase(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"topics/deep/target.md": "content",
		"by-stem.md":            "[[Target]]",
		"by-path.md":            "[[topics/deep/target]]",
		"by-ext.md":             "[[target.md]]",
	})
	g, _ := b.Get()
	for _, src := range []string{"by-stem.md", "by-path.md", "by-ext.md"} {
		out := g.Nodes[src].Outgoing
		if len(out) != 1 || out[0] != "topics/deep/target.md" {
			t.Errorf("%s outgoing = %v, want [topics/deep/target.md]", src, out)
		}
	}
}

func TestBuild_AmbiguousNameLastWriterWins(t *testing.T) {
	// Two notes share the bare name "note". Listings walk in lexical order,
	// so "two/note.md" is indexed last under that form and wins. This is
	// documented behavior, not a defect.
	b := testBuilder(t, map[string]string{
		"one/note.md": "first",
		"two/note.md": "second",
		"ref.md":      "[[note]]",
	})
	g, _ := b.Get()
	out := g.Nodes["ref.md"].Outgoing
	if len(out) != 1 {
		t.Fatalf("outgoing = %v, want exactly one resolution", out)
	}
	if out[0] != "two/note.md" {
		t.Errorf("resolved to %q, want two/note.md (last indexed wins)", out[0])
	}
	// Either way the bare-stem forms must still resolve unambiguously by
	// their full paths.
	if _, ok := g.Nodes["one/note.md"]; !ok {
		t.Error("one/note.md missing from graph")
	}
	if _, ok := g.Nodes["two/note.md"]; !ok {
		t.Error("two/note.md missing from graph")
	}
}

func TestBuild_SelfLinksDropped(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"self.md": "refers to [[self]]",
	})
	g, _ := b.Get()
	if len(g.Nodes["self.md"].Outgoing) != 0 {
		t.Errorf("self link should be dropped, got %v", g.Nodes["self.md"].Outgoing)
	}
}

func TestGet_MemoizesUntilInvalidated(t *testing.T) {
	b := testBuilder(t, map[string]string{"a.md": "x"})
	first, err := b.Get()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := b.Get()
	if first != second {
		t.Error("Get should return the memoized snapshot")
	}

	b.Invalidate()
	third, _ := b.Get()
	if third == first {
		t.Error("Get after Invalidate should rebuild")
	}
}

func TestBuild_RecordsDuration(t *testing.T) {
	b := testBuilder(t, map[string]string{"a.md": "x"})
	g, _ := b.Get()
	if g.BuildTime <= 0 {
		t.Errorf("build time = %v, want > 0", g.BuildTime)
	}
	if g.BuiltAt.IsZero() {
		t.Error("BuiltAt not recorded")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
