// Package search ranks indexed nodes against free-text queries using exact,
// substring and trigram-fuzzy matching tiers layered over a GraphIndex.
package search

import (
	"path"
	"sort"
	"strings"

	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
)

// Mode selects the matching strategy for FindNodes.
type Mode string

const (
	ModeFuzzy    Mode = "fuzzy"
	ModeExact    Mode = "exact"
	ModeSemantic Mode = "semantic"
)

// Match reason tags, reported per result so callers can see which tier won.
const (
	ReasonID     = "id"
	ReasonName   = "name"
	ReasonFile   = "file"
	ReasonFuzzy  = "fuzzy"
	ReasonTerm   = "term"
	ReasonVector = "vector"
)

// Score constants per matching tier.
const (
	scoreID            = 1.0
	scoreName          = 0.9
	scoreFileExact     = 0.8
	scoreFileSubstring = 0.6
	fuzzyWeight        = 0.6
	fuzzyMinOverlap    = 0.3
)

// Result is one ranked node with the score in [0,1] and the tier tag that
// produced it.
type Result struct {
	Node   *index.Node `json:"node"`
	Score  float64     `json:"score"`
	Reason string      `json:"reason"`
}

// Options bounds a FindNodes call.
type Options struct {
	Limit     int
	Mode      Mode
	NodeTypes []graph.NodeType
}

// DefaultLimit applies when Options.Limit is unset.
const DefaultLimit = 10

// Engine evaluates queries against a GraphIndex. It is stateless; one Engine
// may serve any number of indexes concurrently.
type Engine struct{}

// New creates a search engine.
func New() *Engine {
	return &Engine{}
}

// FindNodes ranks nodes against a query. All applicable tiers run and their
// candidates merge into one deduplicated set where the highest score per
// node wins; results are sorted by score descending and truncated to the
// limit. Exact mode stops after the id/name/file tiers; fuzzy mode adds the
// trigram tier for queries of length >= 3.
func (e *Engine) FindNodes(ix *index.GraphIndex, query string, opts Options) []Result {
	set := newCandidateSet()

	// Tier 1: exact canonical or original id.
	if n, ok := ix.Node(query); ok {
		set.offer(n, scoreID, ReasonID)
	}

	// Tier 2: exact case-insensitive name.
	for _, n := range ix.NodesByName(query) {
		set.offer(n, scoreName, ReasonName)
	}

	// Tier 3: exact or substring file path.
	queryPath := index.NormalizePath(query)
	for _, n := range ix.NodesByFile(query) {
		set.offer(n, scoreFileExact, ReasonFile)
	}
	ix.FilePaths(func(p string, _ []string) bool {
		if p != queryPath && strings.Contains(p, queryPath) {
			for _, n := range ix.NodesByFile(p) {
				set.offer(n, scoreFileSubstring, ReasonFile)
			}
		}
		return true
	})

	// Tier 4: trigram fuzzy match.
	if opts.Mode != ModeExact {
		e.fuzzyTier(ix, query, set)
	}

	return finalize(set, opts.NodeTypes, nil, opts.Limit)
}

// fuzzyTier counts trigram overlap between the query and candidate names and
// keeps candidates whose overlap covers at least 30% of the query trigrams.
func (e *Engine) fuzzyTier(ix *index.GraphIndex, query string, set *candidateSet) {
	queryTris := index.Trigrams(query)
	if len(queryTris) == 0 {
		return
	}

	overlap := make(map[string]int)
	for _, tri := range queryTris {
		for _, id := range ix.IDsByTrigram(tri) {
			overlap[id]++
		}
	}

	for id, count := range overlap {
		ratio := float64(count) / float64(len(queryTris))
		if ratio < fuzzyMinOverlap {
			continue
		}
		if n, ok := ix.Node(id); ok {
			set.offer(n, ratio*fuzzyWeight, ReasonFuzzy)
		}
	}
}

// finalize filters, orders and truncates a candidate set. Ties are broken in
// favor of exported nodes, then by encounter order.
func finalize(set *candidateSet, types []graph.NodeType, exclude map[string]bool, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]Result, 0, len(set.order))
	for _, id := range set.order {
		r := set.best[id]
		if len(types) > 0 && !containsType(types, r.Node.Type) {
			continue
		}
		if exclude != nil && (exclude[r.Node.CanonicalID] || exclude[r.Node.ID]) {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Node.Exported() && !results[j].Node.Exported()
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func containsType(types []graph.NodeType, t graph.NodeType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// matchesFilePattern reports whether a normalized path satisfies a pattern:
// either a glob over the base name (e.g. "*.ts") or a path substring.
func matchesFilePattern(normalizedPath, pattern string) bool {
	p := index.NormalizePath(pattern)
	if ok, err := path.Match(p, path.Base(normalizedPath)); err == nil && ok {
		return true
	}
	return strings.Contains(normalizedPath, p)
}

// candidateSet merges tier hits, keeping the highest score per node and the
// order in which nodes were first encountered.
type candidateSet struct {
	best  map[string]Result
	order []string
}

func newCandidateSet() *candidateSet {
	return &candidateSet{best: make(map[string]Result)}
}

func (s *candidateSet) offer(n *index.Node, score float64, reason string) {
	id := n.CanonicalID
	if existing, ok := s.best[id]; ok {
		if score > existing.Score {
			s.best[id] = Result{Node: n, Score: score, Reason: reason}
		}
		return
	}
	s.best[id] = Result{Node: n, Score: score, Reason: reason}
	s.order = append(s.order, id)
}
