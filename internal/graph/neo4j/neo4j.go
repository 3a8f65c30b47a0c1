// Package neo4j implements graph.Store backed by a Neo4j database populated
// by the graph producer.
package neo4j

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store implements graph.Store using Neo4j.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Neo4j-backed store.
func New(ctx context.Context, uri, username, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Store{driver: driver}, nil
}

// GetGraph loads every node and edge stored under the given graph id.
func (s *Store) GetGraph(ctx context.Context, graphID string) (*graph.Graph, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodes, err := readNodes(ctx, tx, graphID)
		if err != nil {
			return nil, err
		}
		if len(nodes) == 0 {
			return nil, graph.ErrGraphNotFound
		}
		edges, err := readEdges(ctx, tx, graphID)
		if err != nil {
			return nil, err
		}
		return &graph.Graph{
			ID:    graphID,
			Nodes: nodes,
			Edges: edges,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*graph.Graph), nil
}

func readNodes(ctx context.Context, tx neo4j.ManagedTransaction, graphID string) ([]graph.Node, error) {
	records, err := tx.Run(ctx,
		"MATCH (n:Entity {graph_id: $graph_id}) "+
			"RETURN n.id AS id, n.type AS type, n.name AS name, n.file AS file, n.line AS line, properties(n) AS props",
		map[string]any{"graph_id": graphID})
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}

	nodes := make([]graph.Node, 0, 64)
	for records.Next(ctx) {
		rec := records.Record()
		node := graph.Node{
			ID:   stringValue(rec, "id"),
			Type: graph.NodeType(stringValue(rec, "type")),
			Name: stringValue(rec, "name"),
		}
		node.FilePath = stringValue(rec, "file")
		if line, ok := intValue(rec, "line"); ok {
			node.Location = &graph.Location{Line: line}
		}
		if props, ok := rec.Get("props"); ok {
			node.Metadata = metadataFromProps(props)
		}
		nodes = append(nodes, node)
	}
	return nodes, records.Err()
}

func readEdges(ctx context.Context, tx neo4j.ManagedTransaction, graphID string) ([]graph.Edge, error) {
	records, err := tx.Run(ctx,
		"MATCH (a:Entity {graph_id: $graph_id})-[r]->(b:Entity {graph_id: $graph_id}) "+
			"RETURN a.id AS from, b.id AS to, type(r) AS type",
		map[string]any{"graph_id": graphID})
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}

	edges := make([]graph.Edge, 0, 64)
	for records.Next(ctx) {
		rec := records.Record()
		edges = append(edges, graph.Edge{
			From: stringValue(rec, "from"),
			To:   stringValue(rec, "to"),
			Type: graph.EdgeType(stringValue(rec, "type")),
		})
	}
	return edges, records.Err()
}

// Ping verifies the driver can still reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	str, _ := v.(string)
	return str
}

func intValue(rec *neo4j.Record, key string) (int, bool) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	i, ok := v.(int64)
	return int(i), ok
}

// metadataFromProps lifts string-valued node properties into the metadata
// bag, skipping the columns already mapped to struct fields.
func metadataFromProps(props any) map[string]string {
	m, ok := props.(map[string]any)
	if !ok {
		return nil
	}
	meta := make(map[string]string)
	for k, v := range m {
		switch k {
		case "id", "type", "name", "file", "line", "graph_id":
			continue
		}
		if s, ok := v.(string); ok {
			meta[k] = s
		} else if b, ok := v.(bool); ok && b {
			meta[k] = "true"
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

var _ graph.Store = (*Store)(nil)
