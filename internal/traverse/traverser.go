// Package traverse implements bounded breadth-first exploration and
// shortest-path search over a GraphIndex's adjacency structures.
package traverse

import (
	"errors"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
)

// ErrNodeNotFound is returned when the requested root or endpoint does not
// resolve in the index.
var ErrNodeNotFound = errors.New("traverse: node not found")

// Direction selects which adjacency lists a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Defaults applied when an Options field is unset.
const (
	DefaultDepth     = 2
	DefaultMaxNodes  = 100
	DefaultPathDepth = 10
)

// Options bounds an exploration.
type Options struct {
	Depth         int
	Direction     Direction
	RelationTypes []graph.EdgeType
	ExcludeTypes  []graph.NodeType
	MaxNodes      int
	IncludeEdges  bool
}

// Exploration is the subgraph discovered by a bounded BFS from a root node.
// Truncated is set only when the node cap cut the traversal short, not when
// the reachable graph was exhausted. Depth reports the requested depth.
type Exploration struct {
	RootID     string        `json:"root_id"`
	Nodes      []*index.Node `json:"nodes"`
	Edges      []graph.Edge  `json:"edges,omitempty"`
	Depth      int           `json:"explored_depth"`
	Truncated  bool          `json:"truncated"`
	TotalNodes int           `json:"total_nodes"`
}

type frontierItem struct {
	id    string
	level int
}

// Explore walks breadth-first from the root. Neighbors seen before still get
// their connecting edge recorded (preserving cross-links inside the explored
// subgraph) but are not re-enqueued; neighbors of an excluded type are
// skipped entirely. The root is always part of the result, even when it has
// no edges.
func Explore(ix *index.GraphIndex, rootID string, opts Options) (*Exploration, error) {
	root, ok := ix.Node(rootID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	if opts.Depth < 0 {
		opts.Depth = 0
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Direction == "" {
		opts.Direction = DirectionBoth
	}

	result := &Exploration{
		RootID:     root.CanonicalID,
		Nodes:      []*index.Node{root},
		Depth:      opts.Depth,
		TotalNodes: ix.NodeCount(),
	}

	visited := map[string]bool{root.CanonicalID: true}
	edgeSeen := make(map[edgeKey]bool)
	queue := []frontierItem{{id: root.CanonicalID, level: 0}}

walk:
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.level >= opts.Depth {
			continue
		}

		for _, e := range edgesFor(ix, item.id, opts.Direction, opts.RelationTypes) {
			neighborID := e.To
			if e.From != item.id {
				neighborID = e.From
			}

			if visited[neighborID] {
				recordEdge(result, edgeSeen, e, opts.IncludeEdges)
				continue
			}

			neighbor, ok := ix.Node(neighborID)
			if !ok {
				continue
			}
			if excludedType(opts.ExcludeTypes, neighbor.Type) {
				continue
			}
			if len(result.Nodes) >= opts.MaxNodes {
				result.Truncated = true
				break walk
			}

			recordEdge(result, edgeSeen, e, opts.IncludeEdges)
			visited[neighborID] = true
			result.Nodes = append(result.Nodes, neighbor)
			queue = append(queue, frontierItem{id: neighborID, level: item.level + 1})
		}
	}

	return result, nil
}

// Path is a minimum-edge-count route between two nodes. A path from a node
// to itself has length 0 and no edges.
type Path struct {
	Nodes  []*index.Node `json:"nodes"`
	Edges  []graph.Edge  `json:"edges"`
	Length int           `json:"length"`
}

// ShortestPath runs BFS over outgoing edges from one node to another,
// aborting once the frontier would exceed maxDepth hops. Returns
// (nil, nil) when no path exists within the bound.
func ShortestPath(ix *index.GraphIndex, fromID, toID string, maxDepth int) (*Path, error) {
	from, ok := ix.Node(fromID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	to, ok := ix.Node(toID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	if maxDepth <= 0 {
		maxDepth = DefaultPathDepth
	}

	if from.CanonicalID == to.CanonicalID {
		return &Path{Nodes: []*index.Node{from}, Length: 0}, nil
	}

	parents := map[string]hop{}
	visited := map[string]bool{from.CanonicalID: true}
	queue := []frontierItem{{id: from.CanonicalID, level: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.level >= maxDepth {
			continue
		}
		for _, e := range ix.Outgoing(item.id) {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			parents[e.To] = hop{prev: item.id, edge: e}
			if e.To == to.CanonicalID {
				return assemblePath(ix, from.CanonicalID, to.CanonicalID, parents), nil
			}
			queue = append(queue, frontierItem{id: e.To, level: item.level + 1})
		}
	}

	return nil, nil
}

func assemblePath(ix *index.GraphIndex, fromID, toID string, parents map[string]hop) *Path {
	var ids []string
	var edges []graph.Edge
	for cur := toID; cur != fromID; {
		h := parents[cur]
		ids = append(ids, cur)
		edges = append(edges, h.edge)
		cur = h.prev
	}
	ids = append(ids, fromID)

	p := &Path{Length: len(edges)}
	for i := len(ids) - 1; i >= 0; i-- {
		if n, ok := ix.Node(ids[i]); ok {
			p.Nodes = append(p.Nodes, n)
		}
	}
	for i := len(edges) - 1; i >= 0; i-- {
		p.Edges = append(p.Edges, edges[i])
	}
	return p
}

type hop struct {
	prev string
	edge graph.Edge
}

type edgeKey struct {
	from, to string
	typ      graph.EdgeType
}

func recordEdge(result *Exploration, seen map[edgeKey]bool, e graph.Edge, include bool) {
	if !include {
		return
	}
	key := edgeKey{from: e.From, to: e.To, typ: e.Type}
	if seen[key] {
		return
	}
	seen[key] = true
	result.Edges = append(result.Edges, e)
}

// edgesFor fetches a node's edges for the requested direction, filtered by
// relation types when given.
func edgesFor(ix *index.GraphIndex, id string, dir Direction, relations []graph.EdgeType) []graph.Edge {
	var edges []graph.Edge
	switch dir {
	case DirectionOutgoing:
		edges = ix.Outgoing(id)
	case DirectionIncoming:
		edges = ix.Incoming(id)
	default:
		out := ix.Outgoing(id)
		in := ix.Incoming(id)
		edges = make([]graph.Edge, 0, len(out)+len(in))
		edges = append(edges, out...)
		edges = append(edges, in...)
	}
	if len(relations) == 0 {
		return edges
	}
	filtered := edges[:0:0]
	for _, e := range edges {
		for _, rel := range relations {
			if e.Type == rel {
				filtered = append(filtered, e)
				break
			}
		}
	}
	return filtered
}

func excludedType(excluded []graph.NodeType, t graph.NodeType) bool {
	for _, ex := range excluded {
		if ex == t {
			return true
		}
	}
	return false
}
