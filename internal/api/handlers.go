package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/bases"
	"github.com/starford/raido/internal/convo"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/notes"
	"github.com/starford/raido/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *notes.Service
	graphs *graph.Builder
	bases  *bases.Engine
}

// NewHandler creates a new Handler.
func NewHandler(svc *notes.Service, graphs *graph.Builder, engine *bases.Engine) *Handler {
	return &Handler{svc: svc, graphs: graphs, bases: engine}
}

// notePath extracts the note path from the URL (everything after /notes/).
// Supports encoded slashes from clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	sortKey := q.Get("sort")

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, tag, sortKey)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("note already exists"))
		} else {
			slog.Error("create note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes/*.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateNoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("update note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		slog.Error("delete note failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /graph: the full snapshot export.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	paths := make([]string, 0, len(g.Nodes))
	for p := range g.Nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	resp := GraphResponse{
		Nodes:      make([]*graph.Node, 0, len(paths)),
		Links:      []GraphLink{},
		Unresolved: g.UnresolvedLinks(),
	}
	for _, p := range paths {
		n := g.Nodes[p]
		resp.Nodes = append(resp.Nodes, n)
		for _, target := range n.Outgoing {
			resp.Links = append(resp.Links, GraphLink{Source: n.Path, Target: target})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GraphStats handles GET /graph/stats.
func (h *Handler) GraphStats(w http.ResponseWriter, r *http.Request) {
	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, g.Stats())
}

// GraphOrphans handles GET /graph/orphans.
func (h *Handler) GraphOrphans(w http.ResponseWriter, r *http.Request) {
	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	orphans := g.Orphans()
	if orphans == nil {
		orphans = []*graph.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orphans": orphans})
}

// GraphLinks handles GET /graph/links?path=. It returns the outgoing and
// incoming edges of one note.
func (h *Handler) GraphLinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	n := g.Node(path)
	if n == nil {
		writeJSON(w, http.StatusNotFound, errorBody("note not in graph"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":     n.Path,
		"outgoing": nonNil(n.Outgoing),
		"incoming": nonNil(n.Incoming),
	})
}

// GraphNeighbors handles GET /graph/neighbors?path=&depth=&direction=&max_nodes=.
func (h *Handler) GraphNeighbors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	depth, _ := strconv.Atoi(q.Get("depth"))
	maxNodes, _ := strconv.Atoi(q.Get("max_nodes"))
	dir := graph.Direction(q.Get("direction"))
	switch dir {
	case graph.DirectionOutgoing, graph.DirectionIncoming, graph.DirectionBoth:
	case "":
		dir = graph.DirectionBoth
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("direction must be outgoing, incoming, or both"))
		return
	}

	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if g.Node(path) == nil {
		writeJSON(w, http.StatusNotFound, errorBody("note not in graph"))
		return
	}
	neighbors := g.Neighborhood(path, depth, maxNodes, dir)
	writeJSON(w, http.StatusOK, NeighborhoodResponse{Start: path, Neighbors: neighbors})
}

// GraphPath handles GET /graph/path?from=&to=&max_depth=. It returns every
// shortest path between two notes, treating edges as undirected.
func (h *Handler) GraphPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'from' and 'to' are required"))
		return
	}
	maxDepth, _ := strconv.Atoi(q.Get("max_depth"))

	g, err := h.graphs.Get()
	if err != nil {
		slog.Error("graph build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	paths := g.FindPaths(from, to, maxDepth)
	resp := PathsResponse{From: from, To: to, Paths: paths}
	if resp.Paths == nil {
		resp.Paths = [][]string{}
	}
	if len(paths) > 0 {
		resp.Length = len(paths[0]) - 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// QueryBase handles POST /bases/query.
func (h *Handler) QueryBase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BaseQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Definition) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("definition is required"))
		return
	}
	def, err := bases.ParseDefinition([]byte(req.Definition))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	result, err := h.bases.Query(def, req.View)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Conversation handles GET /conversation?path=. It classifies the note and,
// when it reads as a conversation, returns the parsed messages.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("conversation analysis failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	meta := convo.Detect(note.Content, note.Frontmatter)
	resp := map[string]any{
		"path":     path,
		"analysis": meta,
	}
	if meta.IsConversation {
		resp["messages"] = convo.ParseMessages(note.Content)
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
