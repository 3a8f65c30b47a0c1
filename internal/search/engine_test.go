package search

import (
	"math"
	"testing"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
)

func buildIndex(t *testing.T, g *graph.Graph) *index.GraphIndex {
	t.Helper()
	ix, err := index.Build(g)
	if err != nil {
		t.Fatalf("building index: %v", err)
	}
	return ix
}

func searchGraph() *graph.Graph {
	return &graph.Graph{
		ID: "g1",
		Nodes: []graph.Node{
			{ID: "n1", Type: graph.NodeFunction, Name: "foo", FilePath: "src/auth/foo.ts"},
			{ID: "n2", Type: graph.NodeFunction, Name: "bar", FilePath: "src/auth/bar.ts"},
			{ID: "n3", Type: graph.NodeClass, Name: "FooService", FilePath: "src/auth/foo.ts", Metadata: map[string]string{"exported": "true"}},
			{ID: "n4", Type: graph.NodeFunction, Name: "chargeCard", FilePath: "src/billing/charge.ts", Metadata: map[string]string{"doc": "charges the customer card"}},
		},
		Edges: []graph.Edge{
			{From: "n1", To: "n2", Type: graph.EdgeCalls},
		},
	}
}

func TestFindNodes_ExactName(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "foo", Options{})
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Node.Name != "foo" {
		t.Fatalf("expected foo first, got %q", results[0].Node.Name)
	}
	if results[0].Score != 0.9 {
		t.Fatalf("expected name-tier score 0.9, got %v", results[0].Score)
	}
	if results[0].Reason != ReasonName {
		t.Fatalf("expected reason %q, got %q", ReasonName, results[0].Reason)
	}
}

func TestFindNodes_CanonicalID(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	n, _ := ix.Node("n1")
	results := e.FindNodes(ix, n.CanonicalID, Options{})
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Score != 1.0 || results[0].Reason != ReasonID {
		t.Fatalf("expected id-tier match with score 1.0, got %v (%s)", results[0].Score, results[0].Reason)
	}
}

func TestFindNodes_FilePath(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "src/auth/foo.ts", Options{})
	if len(results) != 2 {
		t.Fatalf("expected 2 nodes from the file, got %d", len(results))
	}
	for _, r := range results {
		if r.Score != 0.8 || r.Reason != ReasonFile {
			t.Fatalf("expected file-tier score 0.8, got %v (%s)", r.Score, r.Reason)
		}
	}
}

func TestFindNodes_FileSubstring(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "billing", Options{Mode: ModeExact})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Node.Name != "chargeCard" || results[0].Score != 0.6 {
		t.Fatalf("expected chargeCard at 0.6, got %q at %v", results[0].Node.Name, results[0].Score)
	}
}

func TestFindNodes_FuzzyScore(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	// "fooo" has trigrams {foo, ooo}; node "foo" shares one of two.
	results := e.FindNodes(ix, "fooo", Options{})
	var fooScore float64
	for _, r := range results {
		if r.Node.Name == "foo" {
			fooScore = r.Score
		}
	}
	if math.Abs(fooScore-0.3) > 1e-9 {
		t.Fatalf("expected fuzzy score 0.3 for foo, got %v", fooScore)
	}
}

func TestFindNodes_ExactModeSkipsFuzzy(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "fooo", Options{Mode: ModeExact})
	for _, r := range results {
		if r.Reason == ReasonFuzzy {
			t.Fatalf("exact mode produced a fuzzy match: %v", r)
		}
	}
}

func TestFindNodes_TypeFilter(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "foo", Options{NodeTypes: []graph.NodeType{graph.NodeClass}})
	for _, r := range results {
		if r.Node.Type != graph.NodeClass {
			t.Fatalf("expected only classes, got %s", r.Node.Type)
		}
	}
}

func TestFindNodes_Limit(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "foo", Options{Limit: 1})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestFindNodes_NoMatch(t *testing.T) {
	ix := buildIndex(t, searchGraph())
	e := New()

	results := e.FindNodes(ix, "zzzzzz", Options{})
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestFindNodes_ExportedTieBreak(t *testing.T) {
	g := &graph.Graph{
		ID: "g2",
		Nodes: []graph.Node{
			{ID: "a", Type: graph.NodeFunction, Name: "dup", FilePath: "src/one/a.ts"},
			{ID: "b", Type: graph.NodeFunction, Name: "dup", FilePath: "src/two/b.ts", Metadata: map[string]string{"exported": "true"}},
		},
		Edges: []graph.Edge{},
	}
	ix := buildIndex(t, g)
	e := New()

	results := e.FindNodes(ix, "dup", Options{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Node.Exported() {
		t.Fatal("expected the exported node to rank first on a tie")
	}
}

func TestMatchesFilePattern(t *testing.T) {
	cases := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"src/auth/service.ts", "*.ts", true},
		{"src/auth/service.ts", "*.go", false},
		{"src/auth/service.ts", "auth", true},
		{"src/auth/service.ts", "billing", false},
		{"src/auth/service.ts", "SERVICE.TS", true},
	}
	for _, tc := range cases {
		if got := matchesFilePattern(tc.path, tc.pattern); got != tc.want {
			t.Errorf("matchesFilePattern(%q, %q): expected %v, got %v", tc.path, tc.pattern, got, tc.want)
		}
	}
}
