package graph

import (
	"context"
	"errors"
)

// ErrGraphNotFound is returned by a Store when no graph exists for the
// requested id. Callers surface it to the gateway; it is never retried.
var ErrGraphNotFound = errors.New("graph not found")

// ErrMalformedGraph is returned when a stored graph is missing its nodes or
// edges collection and cannot be indexed.
var ErrMalformedGraph = errors.New("malformed graph: missing nodes or edges collection")

// Store provides access to pre-built code knowledge graphs. Graph
// construction and the persistence format are owned by the store, not by the
// engine.
type Store interface {
	// GetGraph retrieves the full graph for an id, or ErrGraphNotFound.
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	// Ping verifies connectivity to the backing storage.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close(ctx context.Context) error
}
