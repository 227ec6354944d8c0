package api

import (
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/notes"
	"github.com/starford/raido/internal/search"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// BaseQueryRequest runs one view of an inline base definition. Definition
// is the raw .base source (YAML or JSON); View selects by index.
type BaseQueryRequest struct {
	Definition string `json:"definition"`
	View       int    `json:"view"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = notes.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = notes.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// GraphLink is a resolved edge in the graph export.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphResponse is the full graph export: every node, every resolved edge,
// plus the raw wikilink targets that matched no note.
type GraphResponse struct {
	Nodes      []*graph.Node `json:"nodes"`
	Links      []GraphLink   `json:"links"`
	Unresolved []string      `json:"unresolved"`
}

// NeighborhoodResponse wraps a BFS expansion around one note.
type NeighborhoodResponse struct {
	Start     string           `json:"start"`
	Neighbors []graph.Neighbor `json:"neighbors"`
}

// PathsResponse wraps the shortest paths between two notes. Paths is empty
// when the notes are not connected within the depth bound.
type PathsResponse struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Length int        `json:"length"` // hop count of the shortest paths, 0 when none
	Paths  [][]string `json:"paths"`
}
