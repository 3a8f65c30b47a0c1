package vector

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/efebarandurmaz/atlas/internal/index"
)

// MetaNodeID is the document metadata key carrying the node's canonical id,
// used to map similarity hits back into the graph index.
const MetaNodeID = "node_id"

// MetaGraphID scopes documents to one graph so searches never leak across
// graphs sharing a collection.
const MetaGraphID = "graph_id"

// NodeIndexer embeds indexed nodes and upserts them into a Repository.
type NodeIndexer struct {
	embedder Embedder
	repo     Repository
}

// NewNodeIndexer creates a NodeIndexer.
func NewNodeIndexer(embedder Embedder, repo Repository) *NodeIndexer {
	return &NodeIndexer{embedder: embedder, repo: repo}
}

// IndexGraph embeds every node of a built index (name plus documentation
// text) and stores the documents tagged with the graph id.
func (ni *NodeIndexer) IndexGraph(ctx context.Context, ix *index.GraphIndex) error {
	nodes := ix.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = nodeText(n)
	}

	vectors, err := ni.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}

	docs := make([]Document, len(nodes))
	for i, n := range nodes {
		docs[i] = Document{
			ID:      newUUID(),
			Content: texts[i],
			Vector:  vectors[i],
			Metadata: map[string]string{
				MetaNodeID:  n.CanonicalID,
				MetaGraphID: ix.GraphID,
			},
		}
	}
	return ni.repo.Upsert(ctx, docs)
}

func nodeText(n *index.Node) string {
	parts := []string{n.Name, string(n.Type)}
	if n.FilePath != "" {
		parts = append(parts, n.FilePath)
	}
	if doc := n.Doc(); doc != "" {
		parts = append(parts, doc)
	}
	return strings.Join(parts, " ")
}

func newUUID() string {
	// Minimal UUIDv4 generator to avoid external dependencies.
	var b [16]byte
	_, _ = rand.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10

	var out [36]byte
	hex.Encode(out[0:8], b[0:4])
	out[8] = '-'
	hex.Encode(out[9:13], b[4:6])
	out[13] = '-'
	hex.Encode(out[14:18], b[6:8])
	out[18] = '-'
	hex.Encode(out[19:23], b[8:10])
	out[23] = '-'
	hex.Encode(out[24:36], b[10:16])
	return string(out[:])
}
