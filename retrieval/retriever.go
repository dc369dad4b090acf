// Package retrieval answers "which chunks are relevant to this query".
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/JxyV/Museum-RAG/embeddings"
	"github.com/JxyV/Museum-RAG/index"
)

// Searcher is the slice of the vector store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]index.ScoredChunk, error)
}

type Retriever struct {
	store    Searcher
	embedder embeddings.Embedder
}

func New(store Searcher, embedder embeddings.Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns at most k chunks ordered by descending similarity score.
// An empty index is a valid outcome, yielding an empty slice. k must be >= 1.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]index.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if r.store == nil {
		return nil, fmt.Errorf("vector store is not configured")
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	results, err := r.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if results == nil {
		results = []index.ScoredChunk{}
	}
	return results, nil
}
