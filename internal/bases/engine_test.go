package bases

import (
	"log/slog"
	"testing"

	"github.com/starford/raido/internal/testutil"
)

func testEngine(t *testing.T, notes map[string]string) *Engine {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.Seed(t, store, notes)
	return NewEngine(store, slog.Default())
}

func taskVault(t *testing.T) *Engine {
	t.Helper()
	return testEngine(t, map[string]string{
		"tasks/one.md":   "---\nstatus: done\npriority: 1\n---\nbody",
		"tasks/two.md":   "---\nstatus: open\npriority: 3\n---\nbody",
		"tasks/three.md": "---\nstatus: done\npriority: 2\n---\nbody",
		"journal.md":     "---\nkind: journal\n---\nno status here",
	})
}

func TestQuery_FilterAndSort(t *testing.T) {
	e := taskVault(t)
	def := &Definition{
		Filters: Expression{Literal: "status"},
		Views: []View{{
			Type:    "table",
			Name:    "by priority",
			Order:   []SortKey{{Property: "priority", Direction: "DESC"}},
			Columns: []string{"file.path", "status", "priority"},
		}},
	}

	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("total = %d, want 3", res.Total)
	}
	if res.View != "by priority" {
		t.Errorf("view = %q", res.View)
	}
	if res.Documents[0]["file.path"] != "tasks/two.md" {
		t.Errorf("first doc = %v, want highest priority", res.Documents[0])
	}
	if _, ok := res.Documents[0]["file.size"]; ok {
		t.Error("explicit columns should exclude unlisted fields")
	}
}

func TestQuery_ViewFilterStacksOnDefinitionFilter(t *testing.T) {
	e := taskVault(t)
	def := &Definition{
		Filters: Expression{Literal: "status"},
		Views: []View{{
			Name:    "done only",
			Filters: Expression{Literal: `status == "done"`},
		}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2 (both filters applied)", res.Total)
	}
}

func TestQuery_LimitTruncatesAfterTotal(t *testing.T) {
	e := taskVault(t)
	def := &Definition{
		Views: []View{{
			Name:  "capped",
			Order: []SortKey{{Property: "file.path"}},
			Limit: 2,
		}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 4 {
		t.Errorf("total = %d, want unlimited count 4", res.Total)
	}
	if len(res.Documents) != 2 {
		t.Errorf("documents = %d, want limit 2", len(res.Documents))
	}
}

func TestQuery_DefaultProjection(t *testing.T) {
	e := taskVault(t)
	def := &Definition{
		Filters: Expression{Literal: `kind == "journal"`},
		Views:   []View{{Name: "all"}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Documents) != 1 {
		t.Fatalf("documents = %d, want 1", len(res.Documents))
	}
	doc := res.Documents[0]
	if doc["kind"] != "journal" {
		t.Errorf("metadata not projected: %v", doc)
	}
	if doc["file.path"] != "journal.md" {
		t.Errorf("file.path not projected: %v", doc)
	}
	if _, ok := doc["file.size"]; !ok {
		t.Error("file.size missing from default projection")
	}
}

func TestQuery_Formulas(t *testing.T) {
	e := taskVault(t)
	def := &Definition{
		Filters: Expression{Literal: "status"},
		Formulas: map[string]string{
			"label":    `concat("task: ", file.name)`,
			"tagCount": "length(file.tags)",
			"stat":     "status",
			"weird":    "frobnicate(x)",
		},
		Views: []View{{
			Name:    "with formulas",
			Order:   []SortKey{{Property: "file.path"}},
			Columns: []string{"file.name", "label", "tagCount", "stat", "weird"},
		}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	doc := res.Documents[0] // tasks/one.md
	if doc["label"] != "task: one" {
		t.Errorf("label = %v, want %q", doc["label"], "task: one")
	}
	if doc["tagCount"] != 0 {
		t.Errorf("tagCount = %v, want 0", doc["tagCount"])
	}
	if doc["stat"] != "done" {
		t.Errorf("stat = %v, want done", doc["stat"])
	}
	// Unsupported formula text comes back verbatim, not as an error.
	if doc["weird"] != "frobnicate(x)" {
		t.Errorf("weird = %v, want verbatim fallback", doc["weird"])
	}
}

func TestQuery_FormulaLengthCountsRunes(t *testing.T) {
	e := testEngine(t, map[string]string{
		"n.md": "---\nname: über-plan\n---\n",
	})
	def := &Definition{
		Formulas: map[string]string{"nameLen": "length(name)"},
		Views:    []View{{Name: "all", Columns: []string{"nameLen"}}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	// "über-plan" is 9 characters even though ü takes two bytes.
	if res.Documents[0]["nameLen"] != 9 {
		t.Errorf("nameLen = %v, want 9", res.Documents[0]["nameLen"])
	}
}

func TestQuery_MultiKeySortStable(t *testing.T) {
	e := testEngine(t, map[string]string{
		"a.md": "---\ngroup: b\nrank: 1\n---\n",
		"b.md": "---\ngroup: a\nrank: 2\n---\n",
		"c.md": "---\ngroup: a\nrank: 1\n---\n",
	})
	def := &Definition{
		Views: []View{{
			Name: "sorted",
			Order: []SortKey{
				{Property: "group"},
				{Property: "rank", Direction: "desc"},
			},
			Columns: []string{"file.path"},
		}},
	}
	res, err := e.Query(def, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := []string{
		res.Documents[0]["file.path"].(string),
		res.Documents[1]["file.path"].(string),
		res.Documents[2]["file.path"].(string),
	}
	want := []string{"b.md", "c.md", "a.md"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestQuery_ViewIndexOutOfRange(t *testing.T) {
	e := taskVault(t)
	def := &Definition{Views: []View{{Name: "only"}}}
	if _, err := e.Query(def, 5); err == nil {
		t.Error("expected error for out-of-range view index")
	}
	if _, err := e.Query(def, -1); err == nil {
		t.Error("expected error for negative view index")
	}
}

func TestParseDefinition_YAML(t *testing.T) {
	src := `
filters: status == "done"
formulas:
  label: concat("t ", file.name)
views:
  - type: table
    name: main
    order:
      - priority
      - property: file.mtime
        direction: DESC
    limit: 10
    columns: [file.name, status]
`
	def, err := ParseDefinition([]byte(src))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Filters.Literal != `status == "done"` {
		t.Errorf("filters = %q", def.Filters.Literal)
	}
	v := def.Views[0]
	if v.Limit != 10 || len(v.Columns) != 2 {
		t.Errorf("view = %+v", v)
	}
	if v.Order[0].Property != "priority" || v.Order[0].Descending() {
		t.Errorf("scalar sort key = %+v", v.Order[0])
	}
	if v.Order[1].Property != "file.mtime" || !v.Order[1].Descending() {
		t.Errorf("mapping sort key = %+v", v.Order[1])
	}
}
