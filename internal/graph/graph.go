// Package graph defines the code knowledge graph data model consumed by the
// indexing engine: nodes are source entities (files, classes, functions),
// edges are relationships between them (calls, imports, extends).
package graph

import "time"

// NodeType classifies source entities.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeClass     NodeType = "class"
	NodeFunction  NodeType = "function"
	NodeMethod    NodeType = "method"
	NodeInterface NodeType = "interface"
	NodeVariable  NodeType = "variable"
	NodeImport    NodeType = "import"
	NodeTypeAlias NodeType = "type_alias"
	NodeEnum      NodeType = "enum"
)

// EdgeType classifies relationships between entities.
type EdgeType string

const (
	EdgeDefinedIn  EdgeType = "DEFINED_IN"
	EdgeImports    EdgeType = "IMPORTS"
	EdgeCalls      EdgeType = "CALLS"
	EdgeExtends    EdgeType = "EXTENDS"
	EdgeImplements EdgeType = "IMPLEMENTS"
	EdgeUses       EdgeType = "USES"
	EdgeReferences EdgeType = "REFERENCES"
)

// Location is a position within a source file.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// Node is a single source entity as supplied by the graph producer. The ID
// field carries whatever identifier format the producer used; the engine
// assigns its own canonical id at index time and never rewrites this one.
//
// Metadata is an open key/value bag. Well-known keys include "exported",
// "async" and "static" (value "true") and "doc" for free-text documentation.
type Node struct {
	ID       string            `json:"id"`
	Type     NodeType          `json:"type"`
	Name     string            `json:"name"`
	FilePath string            `json:"file_path,omitempty"`
	Location *Location         `json:"location,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Doc returns the free-text documentation attached to the node, if any.
func (n *Node) Doc() string {
	return n.Metadata["doc"]
}

// Exported reports whether the node is marked exported/public.
func (n *Node) Exported() bool {
	return n.Metadata["exported"] == "true"
}

// Edge is a directed relationship between two nodes, referencing them by the
// producer's identifiers. Self-loops are permitted.
type Edge struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Type     EdgeType          `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Graph is a complete code knowledge graph as handed over by the producer.
// The engine treats it as read-only: all derived state lives in a GraphIndex.
type Graph struct {
	ID          string            `json:"id"`
	Repository  string            `json:"repository,omitempty"`
	GeneratedAt time.Time         `json:"generated_at,omitempty"`
	Nodes       []Node            `json:"nodes"`
	Edges       []Edge            `json:"edges"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks that the graph carries both collections. A graph missing
// its nodes or edges collection is rejected before any indexing happens so a
// partially indexed graph can never be served.
func (g *Graph) Validate() error {
	if g == nil || g.Nodes == nil || g.Edges == nil {
		return ErrMalformedGraph
	}
	return nil
}
