package index

import (
	"log/slog"
	"time"

	"github.com/efebarandurmaz/atlas/internal/graph"
)

// Build consumes a graph once and produces an immutable GraphIndex. The pass
// is O(N + E): every node is resolved and indexed, then every edge is
// translated to canonical endpoints and filed into the adjacency maps.
// Edges whose endpoints do not resolve are dropped and counted, never fatal.
func Build(g *graph.Graph) (*GraphIndex, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	ix := &GraphIndex{
		GraphID:    g.ID,
		BuiltAt:    time.Now().UTC(),
		resolver:   NewResolver(),
		nodes:      make(map[string]*Node, len(g.Nodes)),
		order:      make([]string, 0, len(g.Nodes)),
		byName:     make(map[string][]string),
		byFile:     make(map[string][]string),
		byType:     make(map[graph.NodeType][]string),
		byDomain:   make(map[string][]string),
		trigrams:   make(map[string][]string),
		outgoing:   make(map[string][]graph.Edge, len(g.Nodes)),
		incoming:   make(map[string][]graph.Edge, len(g.Nodes)),
		byEdgeType: make(map[graph.EdgeType][]graph.Edge),
	}

	for i := range g.Nodes {
		ix.addNode(&g.Nodes[i])
	}
	for i := range g.Edges {
		ix.addEdge(&g.Edges[i])
	}

	if ix.droppedEdges > 0 {
		slog.Warn("index build dropped unresolvable edges",
			"graph_id", g.ID,
			"dropped", ix.droppedEdges,
			"kept", ix.edgeCount)
	}
	slog.Debug("index built",
		"graph_id", g.ID,
		"nodes", ix.NodeCount(),
		"edges", ix.edgeCount)

	return ix, nil
}

func (ix *GraphIndex) addNode(src *graph.Node) {
	canonical := ix.resolver.Resolve(src.ID, src.Type, src.Name, src.FilePath)
	if _, exists := ix.nodes[canonical]; exists {
		// Duplicate producer id within one graph; first occurrence wins.
		return
	}

	node := &Node{
		Node:        *src,
		CanonicalID: canonical,
		Domain:      DomainOf(src.FilePath),
	}
	ix.nodes[canonical] = node
	ix.order = append(ix.order, canonical)

	if name := normalizeName(src.Name); name != "" {
		ix.byName[name] = append(ix.byName[name], canonical)
	}
	if src.FilePath != "" {
		path := NormalizePath(src.FilePath)
		ix.byFile[path] = append(ix.byFile[path], canonical)
	}
	ix.byType[src.Type] = append(ix.byType[src.Type], canonical)
	ix.byDomain[node.Domain] = append(ix.byDomain[node.Domain], canonical)

	for _, tri := range Trigrams(src.Name) {
		ix.trigrams[tri] = append(ix.trigrams[tri], canonical)
	}
}

func (ix *GraphIndex) addEdge(src *graph.Edge) {
	from, okFrom := ix.resolver.Canonical(src.From)
	to, okTo := ix.resolver.Canonical(src.To)
	if !okFrom || !okTo {
		ix.droppedEdges++
		slog.Debug("dropping edge with unresolvable endpoint",
			"graph_id", ix.GraphID, "from", src.From, "to", src.To, "type", src.Type)
		return
	}

	edge := graph.Edge{From: from, To: to, Type: src.Type, Metadata: src.Metadata}
	ix.outgoing[from] = append(ix.outgoing[from], edge)
	ix.incoming[to] = append(ix.incoming[to], edge)
	ix.byEdgeType[edge.Type] = append(ix.byEdgeType[edge.Type], edge)
	ix.edgeCount++
}

func normalizeName(name string) string {
	return NormalizePath(name)
}
