// Package engine is the query surface exposed to the transport layer: typed
// operations over cached graph indexes, combining search, traversal and
// dependency analysis.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/efebarandurmaz/atlas/internal/analyze"
	"github.com/efebarandurmaz/atlas/internal/cache"
	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
	"github.com/efebarandurmaz/atlas/internal/metrics"
	"github.com/efebarandurmaz/atlas/internal/observability"
	"github.com/efebarandurmaz/atlas/internal/search"
	"github.com/efebarandurmaz/atlas/internal/traverse"
	"github.com/efebarandurmaz/atlas/internal/vector"
)

// ErrNodeNotFound is returned by node-scoped operations when the id resolves
// to nothing. Search operations return empty results instead, so batch
// queries can proceed.
var ErrNodeNotFound = errors.New("node not found")

// Engine serves graph queries. All operations are pure reads over immutable
// indexes; the only shared mutable state is the cache.
type Engine struct {
	cache    *cache.IndexCache
	searcher *search.Engine

	// Optional semantic backend; nil means semantic mode degrades to fuzzy.
	vectors  vector.Repository
	embedder vector.Embedder
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSemanticBackend wires a vector repository and embedder for semantic
// search mode.
func WithSemanticBackend(repo vector.Repository, embedder vector.Embedder) Option {
	return func(e *Engine) {
		e.vectors = repo
		e.embedder = embedder
	}
}

// New creates an Engine over an index cache.
func New(c *cache.IndexCache, opts ...Option) *Engine {
	e := &Engine{cache: c, searcher: search.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SemanticEnabled reports whether a vector repository and embedder are wired.
func (e *Engine) SemanticEnabled() bool {
	return e.vectors != nil && e.embedder != nil
}

// SearchParams bounds a SearchNodes call.
type SearchParams struct {
	Query     string
	NodeTypes []graph.NodeType
	Limit     int
	Mode      search.Mode
}

// SearchNodes ranks nodes of a graph against a query. An unmatched query
// yields an empty slice, not an error.
func (e *Engine) SearchNodes(ctx context.Context, graphID string, p SearchParams) ([]search.Result, error) {
	ctx, span := observability.StartQuerySpan(ctx, "search_nodes", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if p.Mode == "" {
		p.Mode = search.ModeFuzzy
	}

	var results []search.Result
	if p.Mode == search.ModeSemantic {
		results, err = e.searchSemantic(ctx, ix, graphID, p)
		if err != nil {
			observability.RecordError(span, err)
			observability.Metrics().RecordQuery("search_nodes", err)
			return nil, err
		}
	} else {
		results = e.searcher.FindNodes(ix, p.Query, search.Options{
			Limit:     p.Limit,
			Mode:      p.Mode,
			NodeTypes: p.NodeTypes,
		})
	}

	observability.RecordResultCount(span, len(results))
	observability.Metrics().RecordQuery("search_nodes", nil)
	return results, nil
}

// Search performs full-text style search with filters.
func (e *Engine) Search(ctx context.Context, graphID, query string, f search.Filters, limit int) ([]search.Result, error) {
	ctx, span := observability.StartQuerySpan(ctx, "search", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	results := e.searcher.Search(ix, query, f, limit)
	observability.RecordResultCount(span, len(results))
	observability.Metrics().RecordQuery("search", nil)
	return results, nil
}

// ExploreGraph walks the neighborhood of a node breadth-first.
func (e *Engine) ExploreGraph(ctx context.Context, graphID, nodeID string, opts traverse.Options) (*traverse.Exploration, error) {
	ctx, span := observability.StartQuerySpan(ctx, "explore_graph", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	result, err := traverse.Explore(ix, nodeID, opts)
	if err != nil {
		err = mapNodeErr(err)
		observability.RecordError(span, err)
		observability.Metrics().RecordQuery("explore_graph", err)
		return nil, err
	}

	observability.RecordResultCount(span, len(result.Nodes))
	observability.Metrics().RecordQuery("explore_graph", nil)
	return result, nil
}

// ShortestPath finds a minimum-edge-count path between two nodes. A nil path
// with nil error means no path exists within maxDepth.
func (e *Engine) ShortestPath(ctx context.Context, graphID, fromID, toID string, maxDepth int) (*traverse.Path, error) {
	ctx, span := observability.StartQuerySpan(ctx, "shortest_path", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	path, err := traverse.ShortestPath(ix, fromID, toID, maxDepth)
	if err != nil {
		err = mapNodeErr(err)
		observability.RecordError(span, err)
		observability.Metrics().RecordQuery("shortest_path", err)
		return nil, err
	}
	observability.Metrics().RecordQuery("shortest_path", nil)
	return path, nil
}

// NodeDetails is a node plus its surrounding edges and same-file siblings.
type NodeDetails struct {
	Node     *index.Node   `json:"node"`
	Incoming []graph.Edge  `json:"incoming"`
	Outgoing []graph.Edge  `json:"outgoing"`
	Siblings []*index.Node `json:"siblings,omitempty"`
}

// GetNodeDetails returns one node with its incoming/outgoing edges and the
// other nodes defined in the same file.
func (e *Engine) GetNodeDetails(ctx context.Context, graphID, nodeID string) (*NodeDetails, error) {
	ctx, span := observability.StartQuerySpan(ctx, "get_node_details", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	node, ok := ix.Node(nodeID)
	if !ok {
		observability.Metrics().RecordQuery("get_node_details", ErrNodeNotFound)
		return nil, ErrNodeNotFound
	}

	details := &NodeDetails{
		Node:     node,
		Incoming: ix.Incoming(node.CanonicalID),
		Outgoing: ix.Outgoing(node.CanonicalID),
	}
	if node.FilePath != "" {
		for _, sibling := range ix.NodesByFile(node.FilePath) {
			if sibling.CanonicalID != node.CanonicalID {
				details.Siblings = append(details.Siblings, sibling)
			}
		}
	}

	observability.Metrics().RecordQuery("get_node_details", nil)
	return details, nil
}

// FindDependencies lists a node's direct dependencies.
func (e *Engine) FindDependencies(ctx context.Context, graphID, nodeID string, direction traverse.Direction) (*analyze.Dependencies, error) {
	ctx, span := observability.StartQuerySpan(ctx, "find_dependencies", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	deps, err := analyze.NodeDependencies(ix, nodeID, direction)
	if err != nil {
		err = mapNodeErr(err)
		observability.RecordError(span, err)
		observability.Metrics().RecordQuery("find_dependencies", err)
		return nil, err
	}
	observability.Metrics().RecordQuery("find_dependencies", nil)
	return deps, nil
}

// FindCircularDependencies detects up to maxCycles distinct cycles.
func (e *Engine) FindCircularDependencies(ctx context.Context, graphID string, maxCycles int, minSeverity analyze.Severity) ([]analyze.Cycle, error) {
	ctx, span := observability.StartQuerySpan(ctx, "find_circular_dependencies", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	cycles := analyze.FindCycles(ix, maxCycles, minSeverity)
	observability.RecordResultCount(span, len(cycles))
	observability.Metrics().RecordQuery("find_circular_dependencies", nil)
	return cycles, nil
}

// CriticalPath returns the longest acyclic dependency chain from a node.
func (e *Engine) CriticalPath(ctx context.Context, graphID, nodeID string) ([]string, error) {
	ctx, span := observability.StartQuerySpan(ctx, "critical_path", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	path, err := analyze.CriticalPath(ix, nodeID)
	if err != nil {
		err = mapNodeErr(err)
		observability.RecordError(span, err)
		observability.Metrics().RecordQuery("critical_path", err)
		return nil, err
	}
	observability.RecordResultCount(span, len(path))
	observability.Metrics().RecordQuery("critical_path", nil)
	return path, nil
}

// GetGraphStatistics computes node/edge counts by type and connection
// summaries for a graph.
func (e *Engine) GetGraphStatistics(ctx context.Context, graphID string) (*metrics.GraphReport, error) {
	ctx, span := observability.StartQuerySpan(ctx, "get_graph_statistics", graphID)
	defer span.End()
	defer observability.Metrics().RecordQueryDuration(time.Now())

	ix, err := e.index(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.Metrics().RecordQuery("get_graph_statistics", nil)
	return metrics.Collect(ix, metrics.DefaultTopN), nil
}

// Invalidate drops the cached index for one graph.
func (e *Engine) Invalidate(graphID string) {
	e.cache.Invalidate(graphID)
}

// InvalidateAll drops every cached index.
func (e *Engine) InvalidateAll() {
	e.cache.InvalidateAll()
}

// CacheStats exposes cache counters for health reporting.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func (e *Engine) index(ctx context.Context, graphID string) (*index.GraphIndex, error) {
	return e.cache.Get(ctx, graphID)
}

func mapNodeErr(err error) error {
	if errors.Is(err, traverse.ErrNodeNotFound) || errors.Is(err, analyze.ErrNodeNotFound) {
		return ErrNodeNotFound
	}
	return err
}
