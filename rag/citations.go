package rag

import (
	"fmt"

	"github.com/JxyV/Museum-RAG/index"
)

// Locator renders the human-readable position of a chunk: "page N" when the
// source has page numbers, otherwise "chunk N".
func Locator(chunk index.Chunk) string {
	if chunk.Page != nil {
		return fmt.Sprintf("page %d", *chunk.Page)
	}
	return fmt.Sprintf("chunk %d", chunk.ChunkIndex)
}

// Citations maps retrieval hits to display citations, preserving retrieval
// order. No deduplication: repeated chunks produce repeated citations.
func Citations(results []index.ScoredChunk) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, result := range results {
		citations = append(citations, Citation{
			Source:  result.Chunk.SourceName,
			Locator: Locator(result.Chunk),
		})
	}
	return citations
}
