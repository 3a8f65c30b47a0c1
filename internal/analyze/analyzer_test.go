package analyze

import (
	"errors"
	"testing"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
	"github.com/efebarandurmaz/atlas/internal/traverse"
)

func buildIndex(t *testing.T, g *graph.Graph) *index.GraphIndex {
	t.Helper()
	ix, err := index.Build(g)
	if err != nil {
		t.Fatalf("building index: %v", err)
	}
	return ix
}

func funcNode(id string) graph.Node {
	return graph.Node{ID: id, Type: graph.NodeFunction, Name: id, FilePath: "src/core/" + id + ".ts"}
}

// cycleGraph builds a 3-node CALLS cycle a -> b -> c -> a.
func cycleGraph() *graph.Graph {
	return &graph.Graph{
		ID:    "cyc",
		Nodes: []graph.Node{funcNode("a"), funcNode("b"), funcNode("c")},
		Edges: []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
			{From: "c", To: "a", Type: graph.EdgeCalls},
		},
	}
}

func TestNodeDependencies(t *testing.T) {
	g := &graph.Graph{
		ID:    "deps",
		Nodes: []graph.Node{funcNode("hub"), funcNode("in1"), funcNode("in2"), funcNode("out1")},
		Edges: []graph.Edge{
			{From: "in1", To: "hub", Type: graph.EdgeCalls},
			{From: "in2", To: "hub", Type: graph.EdgeUses},
			{From: "hub", To: "out1", Type: graph.EdgeCalls},
		},
	}
	ix := buildIndex(t, g)

	deps, err := NodeDependencies(ix, "hub", traverse.DirectionBoth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.Incoming) != 2 {
		t.Fatalf("expected 2 incoming, got %d", len(deps.Incoming))
	}
	if len(deps.Outgoing) != 1 {
		t.Fatalf("expected 1 outgoing, got %d", len(deps.Outgoing))
	}
	if deps.DirectCount != 3 {
		t.Fatalf("expected direct count 3, got %d", deps.DirectCount)
	}
	if deps.Outgoing[0].Name != "out1" || deps.Outgoing[0].Relation != graph.EdgeCalls {
		t.Fatalf("unexpected outgoing entry: %+v", deps.Outgoing[0])
	}
	if deps.Outgoing[0].Distance != 1 {
		t.Fatalf("expected distance 1, got %d", deps.Outgoing[0].Distance)
	}
}

func TestNodeDependencies_SingleDirection(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	out, err := NodeDependencies(ix, "a", traverse.DirectionOutgoing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Incoming) != 0 || len(out.Outgoing) != 1 || out.DirectCount != 1 {
		t.Fatalf("unexpected outgoing-only result: %+v", out)
	}

	in, err := NodeDependencies(ix, "a", traverse.DirectionIncoming)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(in.Incoming) != 1 || len(in.Outgoing) != 0 || in.DirectCount != 1 {
		t.Fatalf("unexpected incoming-only result: %+v", in)
	}
}

func TestNodeDependencies_NotFound(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	if _, err := NodeDependencies(ix, "ghost", traverse.DirectionBoth); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestFindCycles_Triangle(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	cycles := FindCycles(ix, 10, SeverityLow)
	if len(cycles) != 1 {
		t.Fatalf("expected exactly 1 cycle after dedup, got %d", len(cycles))
	}
	c := cycles[0]
	if c.Length != 3 {
		t.Fatalf("expected cycle length 3, got %d", c.Length)
	}
	if c.Severity != SeverityLow {
		t.Fatalf("expected low severity for a short single-type cycle, got %s", c.Severity)
	}
	if len(c.NodeTypes) != 1 || c.NodeTypes[0] != graph.NodeFunction {
		t.Fatalf("expected node types [function], got %v", c.NodeTypes)
	}
}

func TestFindCycles_Acyclic(t *testing.T) {
	g := &graph.Graph{
		ID:    "dag",
		Nodes: []graph.Node{funcNode("a"), funcNode("b"), funcNode("c")},
		Edges: []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "a", To: "c", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
		},
	}
	ix := buildIndex(t, g)

	if cycles := FindCycles(ix, 10, SeverityLow); len(cycles) != 0 {
		t.Fatalf("expected no cycles in a DAG, got %d", len(cycles))
	}
}

func TestFindCycles_LongCycleIsHigh(t *testing.T) {
	g := &graph.Graph{ID: "long", Edges: []graph.Edge{}}
	names := []string{"a", "b", "c", "d", "e"}
	for _, n := range names {
		g.Nodes = append(g.Nodes, funcNode(n))
	}
	for i := range names {
		g.Edges = append(g.Edges, graph.Edge{
			From: names[i], To: names[(i+1)%len(names)], Type: graph.EdgeCalls,
		})
	}
	ix := buildIndex(t, g)

	cycles := FindCycles(ix, 10, SeverityLow)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Severity != SeverityHigh {
		t.Fatalf("expected high severity for a 5-node cycle, got %s", cycles[0].Severity)
	}
}

func TestFindCycles_StructuralTypeIsMedium(t *testing.T) {
	g := &graph.Graph{
		ID: "structural",
		Nodes: []graph.Node{
			{ID: "c1", Type: graph.NodeClass, Name: "A", FilePath: "src/core/a.ts"},
			{ID: "c2", Type: graph.NodeClass, Name: "B", FilePath: "src/core/b.ts"},
		},
		Edges: []graph.Edge{
			{From: "c1", To: "c2", Type: graph.EdgeExtends},
			{From: "c2", To: "c1", Type: graph.EdgeExtends},
		},
	}
	ix := buildIndex(t, g)

	cycles := FindCycles(ix, 10, SeverityLow)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Severity != SeverityMedium {
		t.Fatalf("expected medium severity for a class cycle, got %s", cycles[0].Severity)
	}
}

func TestFindCycles_MinSeverityFilter(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	if cycles := FindCycles(ix, 10, SeverityHigh); len(cycles) != 0 {
		t.Fatalf("expected low-severity cycle filtered out, got %d", len(cycles))
	}
}

func TestFindCycles_MaxCycles(t *testing.T) {
	// Two independent 2-cycles.
	g := &graph.Graph{
		ID:    "two",
		Nodes: []graph.Node{funcNode("a"), funcNode("b"), funcNode("c"), funcNode("d")},
		Edges: []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "a", Type: graph.EdgeCalls},
			{From: "c", To: "d", Type: graph.EdgeCalls},
			{From: "d", To: "c", Type: graph.EdgeCalls},
		},
	}
	ix := buildIndex(t, g)

	if cycles := FindCycles(ix, 10, SeverityLow); len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	if cycles := FindCycles(ix, 1, SeverityLow); len(cycles) != 1 {
		t.Fatalf("expected max-cycles to cap at 1, got %d", len(cycles))
	}
}

func TestCanonicalCycleKey(t *testing.T) {
	a := canonicalCycleKey([]string{"b", "c", "a"})
	b := canonicalCycleKey([]string{"a", "b", "c"})
	c := canonicalCycleKey([]string{"c", "a", "b"})
	if a != b || b != c {
		t.Fatalf("expected rotations to share a key, got %q %q %q", a, b, c)
	}
}

func TestCriticalPath(t *testing.T) {
	// a -> b -> c and a -> d: longest chain is a,b,c.
	g := &graph.Graph{
		ID:    "crit",
		Nodes: []graph.Node{funcNode("a"), funcNode("b"), funcNode("c"), funcNode("d")},
		Edges: []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
			{From: "a", To: "d", Type: graph.EdgeCalls},
		},
	}
	ix := buildIndex(t, g)

	path, err := CriticalPath(ix, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("expected chain of 3, got %v", path)
	}
}

func TestCriticalPath_CycleDoesNotLoop(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	path, err := CriticalPath(ix, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("expected the cycle to contribute each node once, got %v", path)
	}
}

func TestCriticalPath_NotFound(t *testing.T) {
	ix := buildIndex(t, cycleGraph())

	if _, err := CriticalPath(ix, "ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}
