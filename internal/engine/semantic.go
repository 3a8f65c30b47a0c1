package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
	"github.com/efebarandurmaz/atlas/internal/observability"
	"github.com/efebarandurmaz/atlas/internal/search"
	"github.com/efebarandurmaz/atlas/internal/vector"
)

// IndexForSemantic embeds every node of a graph into the vector backend so
// semantic searches can run against it. No-op when no backend is wired.
func (e *Engine) IndexForSemantic(ctx context.Context, graphID string) error {
	if e.vectors == nil || e.embedder == nil {
		return nil
	}
	ix, err := e.index(ctx, graphID)
	if err != nil {
		return err
	}
	indexer := vector.NewNodeIndexer(e.embedder, e.vectors)
	if err := indexer.IndexGraph(ctx, ix); err != nil {
		return fmt.Errorf("semantic indexing graph %s: %w", graphID, err)
	}
	observability.Metrics().VectorUpsertsTotal.Add(float64(ix.NodeCount()))
	return nil
}

// searchSemantic serves search_mode=semantic via the vector backend, mapping
// hits back to indexed nodes. Without a backend it degrades to fuzzy search.
func (e *Engine) searchSemantic(ctx context.Context, ix *index.GraphIndex, graphID string, p SearchParams) ([]search.Result, error) {
	if e.vectors == nil || e.embedder == nil {
		slog.Debug("semantic search without vector backend, using fuzzy", "graph_id", graphID)
		return e.searcher.FindNodes(ix, p.Query, search.Options{
			Limit:     p.Limit,
			Mode:      search.ModeFuzzy,
			NodeTypes: p.NodeTypes,
		}), nil
	}

	limit := p.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	vectors, err := e.embedder.Embed(ctx, []string{p.Query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors, want 1", len(vectors))
	}

	hits, err := e.vectors.Search(ctx, vectors[0], limit, map[string]string{
		vector.MetaGraphID: graphID,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	observability.Metrics().VectorSearchesTotal.Inc()

	results := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		node, ok := ix.Node(hit.Metadata[vector.MetaNodeID])
		if !ok {
			continue
		}
		if len(p.NodeTypes) > 0 && !typeAllowed(p.NodeTypes, node) {
			continue
		}
		results = append(results, search.Result{
			Node:   node,
			Score:  clampScore(float64(hit.Score)),
			Reason: search.ReasonVector,
		})
	}
	return results, nil
}

func typeAllowed(types []graph.NodeType, node *index.Node) bool {
	for _, t := range types {
		if t == node.Type {
			return true
		}
	}
	return false
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
