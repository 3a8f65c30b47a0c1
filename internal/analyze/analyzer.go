// Package analyze computes direct/transitive dependency sets and detects
// circular dependencies over a GraphIndex's adjacency structures.
package analyze

import (
	"errors"
	"sort"
	"strings"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
	"github.com/efebarandurmaz/atlas/internal/traverse"
)

// ErrNodeNotFound mirrors the traversal sentinel for dependency queries.
var ErrNodeNotFound = errors.New("analyze: node not found")

// Defaults and safety bounds.
const (
	DefaultMaxCycles = 10
	// maxPathLength bounds how deep a single DFS branch may grow. Without
	// it a cycle-free graph with very high fan-out explodes combinatorially.
	maxPathLength = 32
)

// Entry is one direct dependency relationship of a node.
type Entry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     graph.NodeType `json:"type"`
	Relation graph.EdgeType `json:"relation"`
	Distance int            `json:"distance"`
}

// Dependencies reports the edges around a node. Incoming entries carry the
// node on the source side of the relationship; outgoing entries the target.
type Dependencies struct {
	Incoming    []Entry `json:"incoming"`
	Outgoing    []Entry `json:"outgoing"`
	DirectCount int     `json:"direct_count"`
}

// NodeDependencies lists a node's direct dependencies in the requested
// direction(s).
func NodeDependencies(ix *index.GraphIndex, nodeID string, direction traverse.Direction) (*Dependencies, error) {
	node, ok := ix.Node(nodeID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	if direction == "" {
		direction = traverse.DirectionBoth
	}

	deps := &Dependencies{}
	if direction == traverse.DirectionIncoming || direction == traverse.DirectionBoth {
		for _, e := range ix.Incoming(node.CanonicalID) {
			deps.Incoming = append(deps.Incoming, entryFor(ix, e.From, e.Type))
		}
	}
	if direction == traverse.DirectionOutgoing || direction == traverse.DirectionBoth {
		for _, e := range ix.Outgoing(node.CanonicalID) {
			deps.Outgoing = append(deps.Outgoing, entryFor(ix, e.To, e.Type))
		}
	}
	deps.DirectCount = len(deps.Incoming) + len(deps.Outgoing)
	return deps, nil
}

func entryFor(ix *index.GraphIndex, canonicalID string, relation graph.EdgeType) Entry {
	entry := Entry{ID: canonicalID, Relation: relation, Distance: 1}
	if n, ok := ix.Node(canonicalID); ok {
		entry.Name = n.Name
		entry.Type = n.Type
	}
	return entry
}

// Severity classifies how problematic a detected cycle is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2}

// Cycle is one detected circular dependency: the ordered node path forming
// the cycle plus its classification.
type Cycle struct {
	Path      []string         `json:"path"`
	Severity  Severity         `json:"severity"`
	Length    int              `json:"length"`
	NodeTypes []graph.NodeType `json:"node_types"`
}

type dfsFrame struct {
	id     string
	path   []string
	inPath map[string]int // canonical id -> position in path
}

// FindCycles runs an iterative depth-first search from every node. The
// visited set is per-path, not global: the same node may legitimately appear
// on independent paths from different roots. Cycles are deduplicated by a
// canonical key over their node sequence; detection stops once maxCycles
// distinct cycles (at or above minSeverity) have been recorded.
func FindCycles(ix *index.GraphIndex, maxCycles int, minSeverity Severity) []Cycle {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	minRank := severityRank[minSeverity] // unknown/empty -> 0, i.e. keep all

	var cycles []Cycle
	seen := make(map[string]bool)

	for _, root := range ix.Nodes() {
		if len(cycles) >= maxCycles {
			break
		}

		stack := []dfsFrame{{
			id:     root.CanonicalID,
			path:   []string{root.CanonicalID},
			inPath: map[string]int{root.CanonicalID: 0},
		}}

		for len(stack) > 0 && len(cycles) < maxCycles {
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if len(frame.path) > maxPathLength {
				continue
			}

			for _, e := range ix.Outgoing(frame.id) {
				if pos, onPath := frame.inPath[e.To]; onPath {
					cyclePath := frame.path[pos:]
					key := canonicalCycleKey(cyclePath)
					if seen[key] {
						continue
					}
					seen[key] = true
					c := classify(ix, cyclePath)
					if severityRank[c.Severity] < minRank {
						continue
					}
					cycles = append(cycles, c)
					if len(cycles) >= maxCycles {
						break
					}
					continue
				}

				next := dfsFrame{
					id:     e.To,
					path:   append(append([]string{}, frame.path...), e.To),
					inPath: make(map[string]int, len(frame.inPath)+1),
				}
				for k, v := range frame.inPath {
					next.inPath[k] = v
				}
				next.inPath[e.To] = len(frame.path)
				stack = append(stack, next)
			}
		}
	}

	return cycles
}

// classify applies the severity heuristic in order, first match wins:
// length > 4, more than two distinct node types, presence of a file/class/
// interface node, else low.
func classify(ix *index.GraphIndex, cyclePath []string) Cycle {
	types := distinctTypes(ix, cyclePath)

	severity := SeverityLow
	switch {
	case len(cyclePath) > 4:
		severity = SeverityHigh
	case len(types) > 2:
		severity = SeverityHigh
	case containsStructuralType(types):
		severity = SeverityMedium
	}

	return Cycle{
		Path:      append([]string{}, cyclePath...),
		Severity:  severity,
		Length:    len(cyclePath),
		NodeTypes: types,
	}
}

func distinctTypes(ix *index.GraphIndex, ids []string) []graph.NodeType {
	set := make(map[graph.NodeType]bool)
	for _, id := range ids {
		if n, ok := ix.Node(id); ok {
			set[n.Type] = true
		}
	}
	types := make([]graph.NodeType, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func containsStructuralType(types []graph.NodeType) bool {
	for _, t := range types {
		if t == graph.NodeFile || t == graph.NodeClass || t == graph.NodeInterface {
			return true
		}
	}
	return false
}

// canonicalCycleKey rotates the cycle so its lexicographically smallest node
// comes first; rotations of the same cycle then share one key.
func canonicalCycleKey(cyclePath []string) string {
	if len(cyclePath) == 0 {
		return ""
	}
	minIdx := 0
	for i, id := range cyclePath {
		if id < cyclePath[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(cyclePath))
	rotated = append(rotated, cyclePath[minIdx:]...)
	rotated = append(rotated, cyclePath[:minIdx]...)
	return strings.Join(rotated, "->")
}

// CriticalPath finds the longest acyclic chain of outgoing edges from a
// node, skipping nodes already on the current path so cycles cannot loop the
// search. The DFS is iterative with an explicit stack.
func CriticalPath(ix *index.GraphIndex, nodeID string) ([]string, error) {
	node, ok := ix.Node(nodeID)
	if !ok {
		return nil, ErrNodeNotFound
	}

	best := []string{node.CanonicalID}
	stack := []dfsFrame{{
		id:     node.CanonicalID,
		path:   []string{node.CanonicalID},
		inPath: map[string]int{node.CanonicalID: 0},
	}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(frame.path) > len(best) {
			best = frame.path
		}
		if len(frame.path) >= maxPathLength {
			continue
		}

		for _, e := range ix.Outgoing(frame.id) {
			if _, onPath := frame.inPath[e.To]; onPath {
				continue
			}
			next := dfsFrame{
				id:     e.To,
				path:   append(append([]string{}, frame.path...), e.To),
				inPath: make(map[string]int, len(frame.inPath)+1),
			}
			for k, v := range frame.inPath {
				next.inPath[k] = v
			}
			next.inPath[e.To] = len(frame.path)
			stack = append(stack, next)
		}
	}

	return best, nil
}
