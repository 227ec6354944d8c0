package graph

import (
	"math"
	"sort"
)

// Neighbor is one node discovered by a neighborhood expansion, annotated
// with its hop distance from the start.
type Neighbor struct {
	Node     *Node `json:"node"`
	Distance int   `json:"distance"`
}

// Neighborhood performs a breadth-first expansion from start, following
// edges in the given direction, up to depth hops and at most maxNodes
// results (the start node counts as the first result, at distance 0).
// Zero or negative bounds fall back to the package defaults. An unknown
// start yields an empty result.
func (g *Graph) Neighborhood(start string, depth, maxNodes int, dir Direction) []Neighbor {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if dir == "" {
		dir = DirectionBoth
	}
	root := g.Nodes[start]
	if root == nil {
		return nil
	}

	visited := map[string]struct{}{start: {}}
	out := []Neighbor{{Node: root, Distance: 0}}
	frontier := []string{start}

	for level := 1; level <= depth && len(frontier) > 0 && len(out) < maxNodes; level++ {
		var next []string
		for _, cur := range frontier {
			for _, p := range g.adjacency(cur, dir) {
				if _, seen := visited[p]; seen {
					continue
				}
				visited[p] = struct{}{}
				n := g.Nodes[p]
				if n == nil {
					continue
				}
				out = append(out, Neighbor{Node: n, Distance: level})
				if len(out) >= maxNodes {
					return out
				}
				next = append(next, p)
			}
		}
		frontier = next
	}
	return out
}

// FindPaths returns every shortest path between source and target over the
// undirected union of outgoing and incoming edges, bounded by maxDepth
// hops. Only paths of the minimum discovered length are returned. Identical
// endpoints yield a single trivial path; an endpoint absent from the graph
// yields no paths.
func (g *Graph) FindPaths(source, target string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}
	if g.Nodes[source] == nil || g.Nodes[target] == nil {
		return nil
	}
	if source == target {
		return [][]string{{source}}
	}

	queue := [][]string{{source}}
	// firstSeen lets a node be reached again only at the same depth, so
	// every shortest route through a shared node survives while longer
	// alternates are pruned.
	firstSeen := map[string]int{source: 0}
	best := 0
	var found [][]string

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if best > 0 && len(p) >= best {
			continue
		}
		if len(p)-1 >= maxDepth {
			continue
		}
		last := p[len(p)-1]
		for _, next := range g.adjacency(last, DirectionBoth) {
			if onPath(p, next) {
				continue
			}
			d := len(p)
			if seen, ok := firstSeen[next]; ok && d > seen {
				continue
			}
			firstSeen[next] = d

			np := make([]string, len(p), len(p)+1)
			copy(np, p)
			np = append(np, next)

			if next == target {
				if best == 0 {
					best = len(np)
				}
				if len(np) == best {
					found = append(found, np)
				}
				continue
			}
			queue = append(queue, np)
		}
	}
	return found
}

func onPath(p []string, node string) bool {
	for _, step := range p {
		if step == node {
			return true
		}
	}
	return false
}

// Orphans returns every node with no outgoing and no incoming edges,
// sorted by path.
func (g *Graph) Orphans() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if len(n.Outgoing) == 0 && len(n.Incoming) == 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DegreeEntry names a node and one of its degree counts.
type DegreeEntry struct {
	Path   string `json:"path"`
	Title  string `json:"title"`
	Degree int    `json:"degree"`
}

// Stats summarises a graph snapshot.
type Stats struct {
	NoteCount       int           `json:"noteCount"`
	LinkCount       int           `json:"linkCount"`
	OrphanCount     int           `json:"orphanCount"`
	UnresolvedCount int           `json:"unresolvedCount"`
	AvgOutDegree    float64       `json:"avgOutDegree"`
	AvgInDegree     float64       `json:"avgInDegree"`
	TopIncoming     []DegreeEntry `json:"topIncoming"`
	TopOutgoing     []DegreeEntry `json:"topOutgoing"`
	BuildDuration   string        `json:"buildDuration"`
}

// Stats computes aggregate statistics for the snapshot. Mean degrees are
// rounded to two decimals; top lists hold at most ten entries, highest
// degree first, ties broken by path.
func (g *Graph) Stats() Stats {
	s := Stats{
		NoteCount:       len(g.Nodes),
		UnresolvedCount: len(g.Unresolved),
		OrphanCount:     len(g.Orphans()),
		BuildDuration:   g.BuildTime.String(),
	}

	var totalOut, totalIn int
	var byIn, byOut []DegreeEntry
	for _, n := range g.Nodes {
		totalOut += len(n.Outgoing)
		totalIn += len(n.Incoming)
		byIn = append(byIn, DegreeEntry{Path: n.Path, Title: n.Title, Degree: len(n.Incoming)})
		byOut = append(byOut, DegreeEntry{Path: n.Path, Title: n.Title, Degree: len(n.Outgoing)})
	}
	s.LinkCount = totalOut

	if len(g.Nodes) > 0 {
		s.AvgOutDegree = round2(float64(totalOut) / float64(len(g.Nodes)))
		s.AvgInDegree = round2(float64(totalIn) / float64(len(g.Nodes)))
	}

	s.TopIncoming = topDegrees(byIn)
	s.TopOutgoing = topDegrees(byOut)
	return s
}

func topDegrees(entries []DegreeEntry) []DegreeEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Degree != entries[j].Degree {
			return entries[i].Degree > entries[j].Degree
		}
		return entries[i].Path < entries[j].Path
	})
	if len(entries) > topDegreeCount {
		entries = entries[:topDegreeCount]
	}
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
