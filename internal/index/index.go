package index

import (
	"strings"
	"time"

	"github.com/efebarandurmaz/atlas/internal/graph"
)

// Node is an indexed node: the producer's node plus the canonical id the
// engine assigned to it.
type Node struct {
	graph.Node
	CanonicalID string `json:"canonical_id"`
	Domain      string `json:"domain"`
}

// GraphIndex is the immutable multi-index derived from one graph. It is
// built in a single pass and never mutated afterwards, so concurrent readers
// need no locking. All adjacency edges carry canonical endpoint ids.
type GraphIndex struct {
	GraphID string
	BuiltAt time.Time

	resolver *Resolver

	nodes map[string]*Node // canonical id -> node
	order []string         // canonical ids in encounter order

	byName   map[string][]string // lowercased name -> canonical ids
	byFile   map[string][]string // normalized path -> canonical ids
	byType   map[graph.NodeType][]string
	byDomain map[string][]string
	trigrams map[string][]string // trigram -> canonical ids

	outgoing   map[string][]graph.Edge
	incoming   map[string][]graph.Edge
	byEdgeType map[graph.EdgeType][]graph.Edge

	edgeCount    int
	droppedEdges int
}

// Node resolves an identifier in either canonical or original form.
func (ix *GraphIndex) Node(id string) (*Node, bool) {
	if n, ok := ix.nodes[id]; ok {
		return n, true
	}
	canonical, ok := ix.resolver.Canonical(id)
	if !ok {
		return nil, false
	}
	n, ok := ix.nodes[canonical]
	return n, ok
}

// Nodes returns all indexed nodes in encounter order.
func (ix *GraphIndex) Nodes() []*Node {
	out := make([]*Node, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.nodes[id])
	}
	return out
}

// NodesByName returns the nodes whose lowercased name matches exactly.
func (ix *GraphIndex) NodesByName(name string) []*Node {
	return ix.lookup(ix.byName[strings.ToLower(name)])
}

// NodesByFile returns the nodes defined in the given file path.
func (ix *GraphIndex) NodesByFile(filePath string) []*Node {
	return ix.lookup(ix.byFile[NormalizePath(filePath)])
}

// NodesByType returns all nodes of one type.
func (ix *GraphIndex) NodesByType(t graph.NodeType) []*Node {
	return ix.lookup(ix.byType[t])
}

// NodesByDomain returns all nodes grouped under one functional area.
func (ix *GraphIndex) NodesByDomain(domain string) []*Node {
	return ix.lookup(ix.byDomain[domain])
}

// IDsByTrigram returns the canonical ids whose name contains the trigram.
func (ix *GraphIndex) IDsByTrigram(tri string) []string {
	return ix.trigrams[tri]
}

// FilePaths iterates the normalized file paths present in the index.
func (ix *GraphIndex) FilePaths(fn func(path string, ids []string) bool) {
	for path, ids := range ix.byFile {
		if !fn(path, ids) {
			return
		}
	}
}

// Outgoing returns the edges originating at a node (canonical id).
func (ix *GraphIndex) Outgoing(canonicalID string) []graph.Edge {
	return ix.outgoing[canonicalID]
}

// Incoming returns the edges terminating at a node (canonical id).
func (ix *GraphIndex) Incoming(canonicalID string) []graph.Edge {
	return ix.incoming[canonicalID]
}

// EdgesByType returns all edges of one relation type.
func (ix *GraphIndex) EdgesByType(t graph.EdgeType) []graph.Edge {
	return ix.byEdgeType[t]
}

// NodeCount reports how many nodes were indexed.
func (ix *GraphIndex) NodeCount() int { return len(ix.order) }

// EdgeCount reports how many edges were indexed.
func (ix *GraphIndex) EdgeCount() int { return ix.edgeCount }

// DroppedEdges reports how many edges were discarded because an endpoint did
// not resolve. A data-quality signal, not a failure.
func (ix *GraphIndex) DroppedEdges() int { return ix.droppedEdges }

// Resolver exposes the id mapping built for this graph.
func (ix *GraphIndex) Resolver() *Resolver { return ix.resolver }

func (ix *GraphIndex) lookup(ids []string) []*Node {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := ix.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NormalizePath lowercases a file path and flips backslashes so lookups are
// insensitive to the producer's platform.
func NormalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}

// Trigrams returns every 3-character substring of the lowercased input.
// Strings shorter than 3 characters contribute no trigrams.
func Trigrams(s string) []string {
	lower := strings.ToLower(s)
	if len(lower) < 3 {
		return nil
	}
	seen := make(map[string]bool, len(lower))
	out := make([]string, 0, len(lower)-2)
	for i := 0; i+3 <= len(lower); i++ {
		tri := lower[i : i+3]
		if !seen[tri] {
			seen[tri] = true
			out = append(out, tri)
		}
	}
	return out
}
