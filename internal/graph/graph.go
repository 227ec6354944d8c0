// Package graph builds and queries the vault link graph. A build scans the
// whole corpus, resolves wikilink targets to concrete notes through a
// name-form index, and produces an immutable in-memory snapshot. Queries are
// pure functions over that snapshot and never trigger a rebuild.
package graph

import (
	"sort"
	"time"
)

// Defaults for query bounds.
const (
	DefaultDepth        = 2
	DefaultMaxNodes     = 50
	DefaultMaxPathDepth = 10
	topDegreeCount      = 10
)

// Direction filters which edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Node is one note in the link graph.
type Node struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Outgoing []string `json:"outgoing"` // resolved target paths
	Incoming []string `json:"incoming"` // derived by inverting Outgoing
	Embeds   []string `json:"embeds"`   // raw embed targets, unresolved
}

// Graph is an immutable snapshot of the vault's resolved adjacency.
// Incoming lists are derived from outgoing lists during the build, so for
// any nodes A and B: B in A.Outgoing iff A in B.Incoming.
type Graph struct {
	Nodes      map[string]*Node
	Unresolved map[string]struct{} // raw targets that matched no note
	BuildTime  time.Duration
	BuiltAt    time.Time
}

// UnresolvedLinks returns the unresolved target set as a sorted slice.
func (g *Graph) UnresolvedLinks() []string {
	out := make([]string, 0, len(g.Unresolved))
	for t := range g.Unresolved {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Node returns the node at path, or nil when the path is not in the graph.
func (g *Graph) Node(path string) *Node {
	return g.Nodes[path]
}

// Outgoing returns the nodes that path links to. Unknown paths and targets
// yield an empty result, not an error.
func (g *Graph) Outgoing(path string) []*Node {
	return g.resolveAll(g.adjacency(path, DirectionOutgoing))
}

// Incoming returns the nodes that link to path.
func (g *Graph) Incoming(path string) []*Node {
	return g.resolveAll(g.adjacency(path, DirectionIncoming))
}

// adjacency returns the raw neighbor path list for one node in the given
// direction. For DirectionBoth the outgoing list comes first and duplicates
// are dropped.
func (g *Graph) adjacency(path string, dir Direction) []string {
	n := g.Nodes[path]
	if n == nil {
		return nil
	}
	switch dir {
	case DirectionOutgoing:
		return n.Outgoing
	case DirectionIncoming:
		return n.Incoming
	default:
		seen := make(map[string]struct{}, len(n.Outgoing)+len(n.Incoming))
		out := make([]string, 0, len(n.Outgoing)+len(n.Incoming))
		for _, p := range n.Outgoing {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		for _, p := range n.Incoming {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		return out
	}
}

func (g *Graph) resolveAll(paths []string) []*Node {
	out := make([]*Node, 0, len(paths))
	for _, p := range paths {
		if n := g.Nodes[p]; n != nil {
			out = append(out, n)
		}
	}
	return out
}
