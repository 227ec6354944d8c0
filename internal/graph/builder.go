package graph

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// Builder produces and memoizes graph snapshots. Get builds lazily on first
// access; Invalidate drops the snapshot so the next Get rebuilds. The
// snapshot itself is read-only once published, so concurrent readers need
// no further synchronisation.
type Builder struct {
	store  storage.Provider
	logger *slog.Logger

	mu   sync.Mutex
	snap *Graph
}

// NewBuilder creates a Builder over the given vault storage.
func NewBuilder(store storage.Provider, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

// Get returns the memoized snapshot, building it first if none exists.
func (b *Builder) Get() (*Graph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snap != nil {
		return b.snap, nil
	}
	g, err := b.build()
	if err != nil {
		return nil, err
	}
	b.snap = g
	return g, nil
}

// Build always rebuilds the snapshot and memoizes the result.
func (b *Builder) Build() (*Graph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.build()
	if err != nil {
		return nil, err
	}
	b.snap = g
	return g, nil
}

// Invalidate drops the memoized snapshot. The next Get performs a full
// rebuild before returning.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.snap = nil
	b.mu.Unlock()
}

// build performs the two-phase construction: phase 1 resolves each note's
// outgoing edges independently through the name index, phase 2 inverts the
// resolved edges to populate incoming lists. Notes that fail to read or
// parse are skipped and contribute no edges in either direction.
func (b *Builder) build() (*Graph, error) {
	start := time.Now()

	metas, err := b.store.List("")
	if err != nil {
		return nil, fmt.Errorf("graph: list vault: %w", err)
	}

	index := buildNameIndex(metas)

	g := &Graph{
		Nodes:      make(map[string]*Node, len(metas)),
		Unresolved: make(map[string]struct{}),
	}

	for _, m := range metas {
		data, err := b.store.Read(m.Path)
		if err != nil {
			b.logger.Warn("graph: read failed, skipping note",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res, err := extract.Parse(m.Path, data)
		if err != nil {
			b.logger.Warn("graph: parse failed, skipping note",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}

		node := &Node{
			Path:   m.Path,
			Title:  res.Title,
			Tags:   res.Tags,
			Embeds: res.Embeds,
		}
		for _, raw := range res.Links {
			target, ok := index.resolve(raw)
			if !ok {
				// Silent-drop policy: broken links degrade coverage,
				// they never fail the build.
				g.Unresolved[raw] = struct{}{}
				continue
			}
			if target == m.Path {
				continue
			}
			node.Outgoing = append(node.Outgoing, target)
		}
		g.Nodes[m.Path] = node
	}

	// Phase 2: invert resolved edges. An edge whose source survived but
	// whose target was skipped is dropped here too.
	for _, node := range g.Nodes {
		kept := node.Outgoing[:0]
		for _, target := range node.Outgoing {
			dst, ok := g.Nodes[target]
			if !ok {
				continue
			}
			kept = append(kept, target)
			dst.Incoming = append(dst.Incoming, node.Path)
		}
		node.Outgoing = kept
	}

	g.BuildTime = time.Since(start)
	g.BuiltAt = time.Now()

	b.logger.Info("graph: built",
		slog.Int("notes", len(g.Nodes)),
		slog.Int("unresolved", len(g.Unresolved)),
		slog.Duration("took", g.BuildTime))
	return g, nil
}

// nameIndex maps case-insensitive name forms to note paths. Collisions are
// resolved by insertion order: the last note indexed under a form wins.
// This mirrors the listing order rather than attempting shortest-unambiguous
// matching.
type nameIndex struct {
	forms map[string]string
}

// buildNameIndex registers every name form a wikilink may use for each
// note: the bare file name, the name without extension, the full relative
// path without extension, and the final path segment.
func buildNameIndex(metas []models.FileMeta) *nameIndex {
	idx := &nameIndex{forms: make(map[string]string, len(metas)*4)}
	for _, m := range metas {
		p := m.Path
		base := path.Base(p)
		stem := strings.TrimSuffix(base, path.Ext(base))
		noExt := strings.TrimSuffix(p, path.Ext(p))

		idx.put(p, p)
		idx.put(base, p)
		idx.put(stem, p)
		idx.put(noExt, p)
	}
	return idx
}

func (idx *nameIndex) put(form, target string) {
	form = strings.ToLower(strings.TrimSpace(form))
	if form == "" {
		return
	}
	idx.forms[form] = target
}

// resolve maps a raw wikilink target to a note path. Targets are matched
// case-insensitively, with or without the .md extension.
func (idx *nameIndex) resolve(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if target, ok := idx.forms[key]; ok {
		return target, true
	}
	if target, ok := idx.forms[strings.TrimSuffix(key, ".md")]; ok {
		return target, true
	}
	return "", false
}
