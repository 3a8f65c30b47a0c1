// Package index builds the immutable in-memory multi-index that every query
// component (search, traversal, dependency analysis) reads from.
package index

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/atlas/internal/graph"
)

// placeholderFile stands in for nodes the producer supplied without a file
// path, so canonicalization never fails on incomplete input.
const placeholderFile = "unknown"

// Resolver assigns a canonical identifier to each ingested node and keeps a
// bidirectional mapping to the producer's original identifier. Producers use
// heterogeneous id formats (hashes, "type:name@file", legacy underscore
// forms); the canonical id is derived deterministically from the node's
// (type, name, file) triple instead, with a numeric suffix on collision.
//
// A Resolver is built once per graph and is read-only afterwards.
type Resolver struct {
	toCanonical map[string]string // original id -> canonical id
	toOriginal  map[string]string // canonical id -> original id
	taken       map[string]bool   // canonical ids handed out so far
}

// NewResolver creates an empty Resolver for one index build.
func NewResolver() *Resolver {
	return &Resolver{
		toCanonical: make(map[string]string),
		toOriginal:  make(map[string]string),
		taken:       make(map[string]bool),
	}
}

// Resolve returns the canonical id for a node, assigning one on first sight.
// Resolving the same original id again returns the identical canonical id.
func (r *Resolver) Resolve(originalID string, typ graph.NodeType, name, filePath string) string {
	if c, ok := r.toCanonical[originalID]; ok {
		return c
	}

	base := canonicalKey(typ, name, filePath)
	canonical := base
	for n := 2; r.taken[canonical]; n++ {
		canonical = fmt.Sprintf("%s_%d", base, n)
	}

	r.toCanonical[originalID] = canonical
	r.toOriginal[canonical] = originalID
	r.taken[canonical] = true
	return canonical
}

// Canonical maps an identifier in either format to the canonical id.
func (r *Resolver) Canonical(id string) (string, bool) {
	if r.taken[id] {
		return id, true
	}
	c, ok := r.toCanonical[id]
	return c, ok
}

// Original returns the producer's identifier for a canonical id.
func (r *Resolver) Original(canonicalID string) (string, bool) {
	o, ok := r.toOriginal[canonicalID]
	return o, ok
}

// canonicalKey derives the deterministic "type.name.domain_file" form.
func canonicalKey(typ graph.NodeType, name, filePath string) string {
	domain := DomainOf(filePath)
	file := fileToken(filePath)
	return fmt.Sprintf("%s.%s.%s_%s", typ, sanitizeToken(name), domain, file)
}

// DomainOf heuristically extracts a coarse functional-area label from a file
// path: the first path segment that is not a generic source root. Nodes
// without a usable path land in "main".
func DomainOf(filePath string) string {
	if filePath == "" {
		return "main"
	}
	normalized := strings.ToLower(strings.ReplaceAll(filePath, "\\", "/"))
	for _, seg := range strings.Split(normalized, "/") {
		switch seg {
		case "", ".", "..", "src", "lib", "app", "pkg", "internal", "packages":
			continue
		}
		if strings.Contains(seg, ".") {
			// Reached the file name without seeing a directory.
			return "main"
		}
		return sanitizeToken(seg)
	}
	return "main"
}

// fileToken reduces a path to its base file name with separators flattened.
func fileToken(filePath string) string {
	if filePath == "" {
		return placeholderFile
	}
	normalized := strings.ToLower(strings.ReplaceAll(filePath, "\\", "/"))
	if i := strings.LastIndex(normalized, "/"); i >= 0 {
		normalized = normalized[i+1:]
	}
	if normalized == "" {
		return placeholderFile
	}
	return sanitizeToken(normalized)
}

// sanitizeToken lowercases and replaces id-hostile characters so canonical
// ids stay stable regardless of the producer's formatting quirks.
func sanitizeToken(s string) string {
	if s == "" {
		return placeholderFile
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
