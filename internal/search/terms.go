package search

import (
	"path"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/index"
)

// Term scoring weights. A query term matching a node term exactly is worth
// 1.0, a partial (substring) match 0.3, and a near match by Levenshtein
// similarity above 0.7 contributes similarity x 0.5. The final score is the
// per-term sum normalized by the query term count.
const (
	termExactScore     = 1.0
	termPartialScore   = 0.3
	termSimilarityGate = 0.7
	termSimilarityMult = 0.5
)

// Filters narrows full-text search candidacy. A node failing any active
// filter is removed before scoring.
type Filters struct {
	NodeTypes    []graph.NodeType
	FilePatterns []string
	Metadata     map[string]string
	// RelatedTo restricts candidates to nodes connected to the given node
	// id by an edge of Relation (any relation when Relation is empty).
	RelatedTo string
	Relation  graph.EdgeType
	ExcludeIDs []string
}

// Search performs full-text style search: node name, type, file basename and
// documentation are tokenized into lowercase alphanumeric terms and scored
// per query term.
func (e *Engine) Search(ix *index.GraphIndex, query string, f Filters, limit int) []Result {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	exclude := make(map[string]bool, len(f.ExcludeIDs))
	for _, id := range f.ExcludeIDs {
		exclude[id] = true
	}
	related := relatedSet(ix, f.RelatedTo, f.Relation)

	set := newCandidateSet()
	for _, n := range ix.Nodes() {
		if !passesFilters(ix, n, f, related) {
			continue
		}
		score := scoreTerms(queryTerms, nodeTerms(n))
		if score <= 0 {
			continue
		}
		set.offer(n, score, ReasonTerm)
	}

	return finalize(set, nil, exclude, limit)
}

// Tokenize splits text into lowercase alphanumeric terms.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !isAlnum
	})
}

func nodeTerms(n *index.Node) []string {
	parts := []string{n.Name, string(n.Type)}
	if n.FilePath != "" {
		parts = append(parts, path.Base(index.NormalizePath(n.FilePath)))
	}
	if doc := n.Doc(); doc != "" {
		parts = append(parts, doc)
	}
	return Tokenize(strings.Join(parts, " "))
}

// scoreTerms sums the best contribution of each query term against the node
// terms and normalizes by the query term count so scores stay in [0,1].
func scoreTerms(queryTerms, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var total float64
	for _, q := range queryTerms {
		total += scoreOneTerm(q, terms)
	}
	return total / float64(len(queryTerms))
}

func scoreOneTerm(q string, terms []string) float64 {
	var best float64
	for _, t := range terms {
		switch {
		case t == q:
			return termExactScore
		case strings.Contains(t, q) || strings.Contains(q, t):
			if termPartialScore > best {
				best = termPartialScore
			}
		default:
			if sim := levenshtein.Similarity(q, t, nil); sim > termSimilarityGate {
				if s := sim * termSimilarityMult; s > best {
					best = s
				}
			}
		}
	}
	return best
}

func passesFilters(ix *index.GraphIndex, n *index.Node, f Filters, related map[string]bool) bool {
	if len(f.NodeTypes) > 0 && !containsType(f.NodeTypes, n.Type) {
		return false
	}
	if len(f.FilePatterns) > 0 {
		if n.FilePath == "" {
			return false
		}
		normalized := index.NormalizePath(n.FilePath)
		matched := false
		for _, pattern := range f.FilePatterns {
			if matchesFilePattern(normalized, pattern) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for k, v := range f.Metadata {
		if n.Metadata[k] != v {
			return false
		}
	}
	if related != nil && !related[n.CanonicalID] {
		return false
	}
	return true
}

// relatedSet collects the canonical ids connected to the anchor node in
// either direction, optionally restricted to one relation type. Returns nil
// when no relation constraint is active.
func relatedSet(ix *index.GraphIndex, anchorID string, relation graph.EdgeType) map[string]bool {
	if anchorID == "" {
		return nil
	}
	set := make(map[string]bool)
	anchor, ok := ix.Node(anchorID)
	if !ok {
		return set
	}
	for _, e := range ix.Outgoing(anchor.CanonicalID) {
		if relation == "" || e.Type == relation {
			set[e.To] = true
		}
	}
	for _, e := range ix.Incoming(anchor.CanonicalID) {
		if relation == "" || e.Type == relation {
			set[e.From] = true
		}
	}
	return set
}
