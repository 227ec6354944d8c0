// Package notes coordinates storage, extraction, the search index, and the
// link graph behind the note CRUD surface.
package notes

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/search"
	"github.com/starford/raido/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates vault storage with the search index and link graph.
// Mutations invalidate the graph snapshot and keep the index current.
type Service struct {
	store  storage.Provider
	graphs *graph.Builder
	index  *search.Index
}

// NewService creates a new note service.
func NewService(store storage.Provider, graphs *graph.Builder, index *search.Index) *Service {
	return &Service{store: store, graphs: graphs, index: index}
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// CreateNote writes a new note, indexes it, and invalidates the graph.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	s.graphs.Invalidate()
	return s.buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	s.graphs.Invalidate()
	return s.buildNoteDetail(path, content)
}

// DeleteNote removes a note from storage, the index, and the graph.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if err := s.index.Delete(path); err != nil {
		return err
	}
	s.graphs.Invalidate()
	return nil
}

// ListNotes returns paginated notes with optional tag filter. The total
// counts every match before limit and offset are applied.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sortKey string) ([]NoteListItem, int, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, 0, err
	}

	items := make([]NoteListItem, 0, len(metas))
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			continue
		}
		res, err := extract.Parse(m.Path, data)
		if err != nil {
			continue
		}
		if tag != "" && !containsFold(res.Tags, tag) {
			continue
		}
		items = append(items, NoteListItem{
			Path:      m.Path,
			Title:     res.Title,
			Checksum:  m.Checksum,
			Tags:      nonNilSlice(res.Tags),
			UpdatedAt: m.UpdatedAt,
		})
	}

	sortItems(items, sortKey)
	total := len(items)

	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	return s.index.Search(query, limit)
}

// Backlinks returns all note paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	g, err := s.graphs.Get()
	if err != nil {
		return nil, err
	}
	nodes := g.Incoming(target)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	sort.Strings(out)
	return out, nil
}

// IndexFile parses data and upserts it into the search index.
// Exported so that the watcher can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	res, err := extract.Parse(path, data)
	if err != nil {
		return err
	}
	return s.index.Upsert(path, res.Title, res.Body, res.Tags)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading
// the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := extract.Parse(path, data)
	if err != nil {
		return nil, err
	}
	bl, err := s.Backlinks(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Metadata,
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   time.Now(),
	}, nil
}

func sortItems(items []NoteListItem, key string) {
	switch key {
	case "updated", "updated_desc":
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		})
	case "title":
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Path < items[j].Path
		})
	}
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
