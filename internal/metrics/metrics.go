// Package metrics computes per-graph statistics reports: node/edge counts by
// type and connection-count summaries.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/efebarandurmaz/atlas/internal/index"
)

// DefaultTopN is how many highly connected nodes a report lists.
const DefaultTopN = 10

// NodeConnections summarizes one node's degree.
type NodeConnections struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Connections int    `json:"connections"`
}

// GraphReport is the statistics snapshot served by get_graph_statistics.
type GraphReport struct {
	GraphID        string            `json:"graph_id"`
	GeneratedAt    time.Time         `json:"generated_at"`
	NodeCount      int               `json:"node_count"`
	EdgeCount      int               `json:"edge_count"`
	DroppedEdges   int               `json:"dropped_edges,omitempty"`
	NodesByType    map[string]int    `json:"nodes_by_type"`
	EdgesByType    map[string]int    `json:"edges_by_type"`
	NodesByDomain  map[string]int    `json:"nodes_by_domain"`
	AvgConnections float64           `json:"avg_connections"`
	TopConnected   []NodeConnections `json:"top_connected"`
}

// Collect computes a report over a built index.
func Collect(ix *index.GraphIndex, topN int) *GraphReport {
	if topN <= 0 {
		topN = DefaultTopN
	}

	r := &GraphReport{
		GraphID:       ix.GraphID,
		GeneratedAt:   time.Now().UTC(),
		NodeCount:     ix.NodeCount(),
		EdgeCount:     ix.EdgeCount(),
		DroppedEdges:  ix.DroppedEdges(),
		NodesByType:   make(map[string]int),
		EdgesByType:   make(map[string]int),
		NodesByDomain: make(map[string]int),
	}

	var totalConnections int
	connections := make([]NodeConnections, 0, ix.NodeCount())
	for _, n := range ix.Nodes() {
		r.NodesByType[string(n.Type)]++
		r.NodesByDomain[n.Domain]++

		degree := len(ix.Outgoing(n.CanonicalID)) + len(ix.Incoming(n.CanonicalID))
		totalConnections += degree
		connections = append(connections, NodeConnections{
			ID:          n.CanonicalID,
			Name:        n.Name,
			Type:        string(n.Type),
			Connections: degree,
		})

		for _, e := range ix.Outgoing(n.CanonicalID) {
			r.EdgesByType[string(e.Type)]++
		}
	}

	if r.NodeCount > 0 {
		r.AvgConnections = float64(totalConnections) / float64(r.NodeCount)
	}

	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].Connections > connections[j].Connections
	})
	if len(connections) > topN {
		connections = connections[:topN]
	}
	r.TopConnected = connections

	return r
}

// PrintSummary writes a human-readable summary.
func (r *GraphReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Graph %s\n", r.GraphID)
	fmt.Fprintf(w, "  Nodes: %d   Edges: %d   Avg connections: %.2f\n",
		r.NodeCount, r.EdgeCount, r.AvgConnections)
	if r.DroppedEdges > 0 {
		fmt.Fprintf(w, "  Dropped edges: %d\n", r.DroppedEdges)
	}

	fmt.Fprintf(w, "  Nodes by type:\n")
	for _, k := range sortedKeys(r.NodesByType) {
		fmt.Fprintf(w, "    %-12s %d\n", k, r.NodesByType[k])
	}
	fmt.Fprintf(w, "  Edges by type:\n")
	for _, k := range sortedKeys(r.EdgesByType) {
		fmt.Fprintf(w, "    %-12s %d\n", k, r.EdgesByType[k])
	}
	if len(r.TopConnected) > 0 {
		fmt.Fprintf(w, "  Most connected:\n")
		for _, nc := range r.TopConnected {
			fmt.Fprintf(w, "    %-40s %-10s %d\n", nc.Name, nc.Type, nc.Connections)
		}
	}
}

// JSON returns the report as formatted JSON.
func (r *GraphReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
