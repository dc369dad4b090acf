// Package index splits source documents into chunks and stores them, with
// their embeddings and locator metadata, in a named vector collection.
package index

import "github.com/google/uuid"

// Chunk is the unit of indexing and retrieval. Page is set only for sources
// with native page numbers (PDF); otherwise ChunkIndex is the displayed
// locator. ChunkIndex is a dense zero-based sequence over the whole
// ingestion batch.
type Chunk struct {
	ID         uuid.UUID
	SourceName string
	Page       *int
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// ScoredChunk is one retrieval hit. Score is descending-better, derived from
// L2 distance as 1/(1+d).
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
