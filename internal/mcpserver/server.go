// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/bases"
	"github.com/starford/raido/internal/convo"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/notes"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp    *server.MCPServer
	store  storage.Provider
	svc    *notes.Service
	graphs *graph.Builder
	bases  *bases.Engine
}

// New creates a new MCP server with all Raido tools registered.
func New(store storage.Provider, svc *notes.Service, graphs *graph.Builder, engine *bases.Engine) *Server {
	s := &Server{store: store, svc: svc, graphs: graphs, bases: engine}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Content MUST follow the canonical note format (YAML frontmatter with title, "+
			"optional tags, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_note_contract tool or the raido://note-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Raido note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the content of an existing note. Pass the current "+
			"checksum as if_match to guard against concurrent edits."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to update")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
		mcp.WithString("if_match", mcp.Description("Optional SHA-256 checksum of the expected current content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note from the vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Raido note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_links",
		mcp.WithDescription("Get the resolved outgoing and incoming links of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note")),
	), s.getNoteLinks)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("explore_neighbors",
		mcp.WithDescription("Breadth-first expansion of the link graph around a note, "+
			"tagging each reached note with its hop distance."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Starting note path")),
		mcp.WithNumber("depth", mcp.Description("Maximum hop distance (default 2)")),
		mcp.WithNumber("max_nodes", mcp.Description("Cap on total notes returned (default 50)")),
		mcp.WithString("direction", mcp.Description("Edge direction: outgoing, incoming, or both (default both)")),
	), s.exploreNeighbors)

	s.mcp.AddTool(mcp.NewTool("find_path",
		mcp.WithDescription("Find every shortest chain of links between two notes, "+
			"treating links as bidirectional."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source note path")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target note path")),
		mcp.WithNumber("max_depth", mcp.Description("Maximum path length in hops (default 10)")),
	), s.findPath)

	s.mcp.AddTool(mcp.NewTool("find_orphans",
		mcp.WithDescription("List notes with no resolved links in either direction."),
	), s.findOrphans)

	s.mcp.AddTool(mcp.NewTool("get_graph_stats",
		mcp.WithDescription("Summary statistics of the vault link graph: note and link "+
			"counts, orphans, unresolved links, degree averages, most-connected notes."),
	), s.getGraphStats)

	s.mcp.AddTool(mcp.NewTool("query_base",
		mcp.WithDescription("Run one view of a base definition against the vault. The "+
			"definition uses the filter expression language documented in the "+
			"raido://filter-syntax resource."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("The .base definition source (YAML or JSON)")),
		mcp.WithNumber("view", mcp.Description("View index to run (default 0)")),
	), s.queryBase)

	s.mcp.AddTool(mcp.NewTool("analyze_conversation",
		mcp.WithDescription("Classify a note as an AI conversation transcript and, when "+
			"it is one, split it into speaker-attributed messages."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to analyze")),
	), s.analyzeConversation)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	// Resource: base filter syntax.
	s.mcp.AddResource(
		mcp.NewResource("raido://filter-syntax", "Base Filter Syntax",
			mcp.WithResourceDescription("The expression language accepted by query_base filters."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFilterSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateNote(ctx, path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ifMatch := ""
	if v, err := req.RequireString("if_match"); err == nil {
		ifMatch = v
	}
	detail, err := s.svc.UpdateNote(ctx, path, []byte(content), ifMatch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", path, detail.Checksum)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) readFilterSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://filter-syntax",
			MIMEType: "text/markdown",
			Text:     FilterSyntaxGuide,
		},
	}, nil
}

func (s *Server) getNoteLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.graphs.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := g.Node(path)
	if n == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not in graph: %s", path)), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"path":     n.Path,
		"outgoing": n.Outgoing,
		"incoming": n.Incoming,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) exploreNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth := 0
	if v, err := req.RequireInt("depth"); err == nil {
		depth = v
	}
	maxNodes := 0
	if v, err := req.RequireInt("max_nodes"); err == nil {
		maxNodes = v
	}
	dir := graph.DirectionBoth
	if v, err := req.RequireString("direction"); err == nil && v != "" {
		switch graph.Direction(v) {
		case graph.DirectionOutgoing, graph.DirectionIncoming, graph.DirectionBoth:
			dir = graph.Direction(v)
		default:
			return mcp.NewToolResultError("direction must be outgoing, incoming, or both"), nil
		}
	}

	g, err := s.graphs.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if g.Node(path) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not in graph: %s", path)), nil
	}
	neighbors := g.Neighborhood(path, depth, maxNodes, dir)
	out, _ := json.MarshalIndent(neighbors, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxDepth := 0
	if v, err := req.RequireInt("max_depth"); err == nil {
		maxDepth = v
	}

	g, err := s.graphs.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := g.FindPaths(from, to, maxDepth)
	if len(paths) == 0 {
		return mcp.NewToolResultText("no path found"), nil
	}
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(strings.Join(p, " -> "))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) findOrphans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.graphs.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	orphans := g.Orphans()
	if len(orphans) == 0 {
		return mcp.NewToolResultText("no orphans"), nil
	}
	var paths []string
	for _, n := range orphans {
		paths = append(paths, n.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getGraphStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.graphs.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(g.Stats(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) queryBase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	definition, err := req.RequireString("definition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view := 0
	if v, err := req.RequireInt("view"); err == nil {
		view = v
	}

	def, err := bases.ParseDefinition([]byte(definition))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.bases.Query(def, view)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}

	meta := convo.Detect(note.Content, note.Frontmatter)
	payload := map[string]any{"analysis": meta}
	if meta.IsConversation {
		payload["messages"] = convo.ParseMessages(note.Content)
	}
	out, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
