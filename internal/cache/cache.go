// Package cache holds built GraphIndexes keyed by graph id. An index is
// built on first access, shared by concurrent callers via singleflight, and
// evicted after a bounded idle period or on explicit invalidation.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
	"github.com/efebarandurmaz/atlas/internal/observability"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Options configures an IndexCache.
type Options struct {
	// MaxEntries bounds how many graph indexes stay resident (default 16).
	MaxEntries int
	// TTL is how long an entry lives after creation (default 30m).
	TTL time.Duration
}

// DefaultOptions returns the default cache sizing.
func DefaultOptions() Options {
	return Options{MaxEntries: 16, TTL: 30 * time.Minute}
}

// Stats is a snapshot of cache activity counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Builds  int64 `json:"builds"`
	Errors  int64 `json:"errors"`
}

// IndexCache fetches graphs from a Store and serves immutable GraphIndexes.
// Concurrent requests for an uncached graph id share a single build; a
// failed build leaves no entry behind, so the next request retries it.
type IndexCache struct {
	store   graph.Store
	entries *expirable.LRU[string, *index.GraphIndex]
	flight  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
	errors atomic.Int64
}

// New creates an IndexCache over the given store.
func New(store graph.Store, opts Options) *IndexCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultOptions().MaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	return &IndexCache{
		store:   store,
		entries: expirable.NewLRU[string, *index.GraphIndex](opts.MaxEntries, nil, opts.TTL),
	}
}

// Get returns the index for a graph id, building it on first access. The
// build runs detached from the caller's context: callers may time out
// independently, but the build completes and is cached for later callers.
func (c *IndexCache) Get(ctx context.Context, graphID string) (*index.GraphIndex, error) {
	if ix, ok := c.entries.Get(graphID); ok {
		c.hits.Add(1)
		observability.Metrics().RecordCacheAccess(true)
		return ix, nil
	}
	c.misses.Add(1)
	observability.Metrics().RecordCacheAccess(false)

	buildCtx := context.WithoutCancel(ctx)
	v, err, shared := c.flight.Do(graphID, func() (any, error) {
		// Another caller may have finished the build while we queued.
		if ix, ok := c.entries.Get(graphID); ok {
			return ix, nil
		}
		ix, err := c.build(buildCtx, graphID)
		if err != nil {
			return nil, err
		}
		c.entries.Add(graphID, ix)
		observability.Metrics().CachedIndexes.Set(float64(c.entries.Len()))
		return ix, nil
	})
	if err != nil {
		c.errors.Add(1)
		return nil, err
	}
	if shared {
		slog.Debug("index build shared with concurrent caller", "graph_id", graphID)
	}
	return v.(*index.GraphIndex), nil
}

func (c *IndexCache) build(ctx context.Context, graphID string) (*index.GraphIndex, error) {
	ctx, span := observability.StartBuildSpan(ctx, graphID)
	defer span.End()

	start := time.Now()
	g, err := c.store.GetGraph(ctx, graphID)
	if err != nil {
		observability.RecordError(span, err)
		observability.Metrics().RecordIndexBuild(time.Since(start), err)
		return nil, err
	}
	ix, err := index.Build(g)
	if err != nil {
		observability.RecordError(span, err)
		observability.Metrics().RecordIndexBuild(time.Since(start), err)
		return nil, err
	}
	c.builds.Add(1)
	observability.RecordBuildResult(span, ix.NodeCount(), ix.EdgeCount(), ix.DroppedEdges(), time.Since(start))
	observability.Metrics().RecordIndexBuild(time.Since(start), nil)
	slog.Info("graph index built",
		"graph_id", graphID,
		"nodes", ix.NodeCount(),
		"edges", ix.EdgeCount(),
		"dropped_edges", ix.DroppedEdges(),
		"duration", time.Since(start))
	return ix, nil
}

// Invalidate removes the entry for one graph id. Result sets already
// returned to callers are unaffected.
func (c *IndexCache) Invalidate(graphID string) {
	c.entries.Remove(graphID)
	observability.Metrics().CachedIndexes.Set(float64(c.entries.Len()))
}

// InvalidateAll drops every cached index.
func (c *IndexCache) InvalidateAll() {
	c.entries.Purge()
	observability.Metrics().CachedIndexes.Set(0)
}

// Stats returns a snapshot of cache counters.
func (c *IndexCache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Builds:  c.builds.Load(),
		Errors:  c.errors.Load(),
	}
}
