package notes

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	ix := testutil.TestIndex(t)
	return NewService(store, graph.NewBuilder(store, slog.Default()), ix)
}

func TestCreateAndGetNote(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	content := []byte("---\ntitle: Hello\ntags: [demo]\n---\nBody text")
	detail, err := svc.CreateNote(ctx, "hello.md", content)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if detail.Title != "Hello" {
		t.Errorf("title = %q", detail.Title)
	}
	if detail.Checksum != checksum.Sum(content) {
		t.Error("checksum mismatch")
	}

	got, err := svc.GetNote(ctx, "hello.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Content != string(content) {
		t.Errorf("content = %q", got.Content)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "demo" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestCreateNote_AlreadyExists(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "dup.md", []byte("a")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateNote(ctx, "dup.md", []byte("b"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	svc := testService(t)
	_, err := svc.GetNote(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNote_IfMatch(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	original := []byte("v1")
	if _, err := svc.CreateNote(ctx, "n.md", original); err != nil {
		t.Fatal(err)
	}

	// Stale checksum is rejected.
	_, err := svc.UpdateNote(ctx, "n.md", []byte("v2"), "deadbeef")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	// Matching checksum goes through.
	detail, err := svc.UpdateNote(ctx, "n.md", []byte("v2"), checksum.Sum(original))
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if detail.Content != "v2" {
		t.Errorf("content = %q", detail.Content)
	}
}

func TestDeleteNote(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "gone.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, "gone.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := svc.GetNote(ctx, "gone.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := svc.DeleteNote(ctx, "gone.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestListNotes_FilterSortPaginate(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	notes := map[string]string{
		"b.md": "---\ntags: [work]\n---\nbeta",
		"a.md": "---\ntags: [work]\n---\nalpha",
		"c.md": "---\ntags: [home]\n---\ngamma",
	}
	for p, c := range notes {
		if _, err := svc.CreateNote(ctx, p, []byte(c)); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.ListNotes(ctx, 0, 0, "work", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, items = %d, want 2/2", total, len(items))
	}
	if items[0].Path != "a.md" || items[1].Path != "b.md" {
		t.Errorf("order = %s, %s", items[0].Path, items[1].Path)
	}

	// Total counts matches before pagination.
	items, total, err = svc.ListNotes(ctx, 1, 1, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 1 || items[0].Path != "b.md" {
		t.Errorf("page = %+v", items)
	}
}

func TestBacklinksAfterMutation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "target.md", []byte("plain")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "source.md", []byte("see [[target]]")); err != nil {
		t.Fatal(err)
	}

	bl, err := svc.Backlinks(ctx, "target.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0] != "source.md" {
		t.Errorf("backlinks = %v, want [source.md]", bl)
	}

	// Deleting the source invalidates the snapshot and drops the edge.
	if err := svc.DeleteNote(ctx, "source.md"); err != nil {
		t.Fatal(err)
	}
	bl, err = svc.Backlinks(ctx, "target.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 0 {
		t.Errorf("backlinks = %v, want none", bl)
	}
}

func TestSearchReflectsMutations(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "s.md", []byte("xylophone lessons")); err != nil {
		t.Fatal(err)
	}
	hits, err := svc.Search(ctx, "xylophone", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "s.md" {
		t.Errorf("hits = %+v", hits)
	}

	if err := svc.DeleteNote(ctx, "s.md"); err != nil {
		t.Fatal(err)
	}
	hits, err = svc.Search(ctx, "xylophone", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits after delete = %+v", hits)
	}
}
