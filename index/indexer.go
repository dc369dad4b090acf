package index

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JxyV/Museum-RAG/embeddings"
)

const embedBatchSize = 64

// Indexer walks a documents directory, splits every loadable file into
// overlapping chunks, embeds them, and rebuilds the vector collection.
type Indexer struct {
	store    Store
	embedder embeddings.Embedder
	logger   *log.Logger

	chunkSize    int
	chunkOverlap int
}

func NewIndexer(store Store, embedder embeddings.Embedder, logger *log.Logger, chunkSize, chunkOverlap int) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 120
	}
	return &Indexer{
		store:        store,
		embedder:     embedder,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestDirectory rebuilds the collection from every supported file under
// dir. A file that fails to load is logged and skipped; the batch continues.
// Returns the number of chunks written.
func (ix *Indexer) IngestDirectory(ctx context.Context, dir string) (int, error) {
	if ix.embedder == nil {
		return 0, fmt.Errorf("embedder not configured")
	}
	if ix.store == nil {
		return 0, fmt.Errorf("store not configured")
	}
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("docs directory: %w", err)
	}

	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("walk docs directory: %w", err)
	}

	chunks := make([]Chunk, 0)
	for _, path := range paths {
		units, err := LoadDocument(path)
		if err != nil {
			ix.logger.Printf("load failed for %s, skipping: %v", path, err)
			continue
		}
		if len(units) == 0 {
			continue
		}
		before := len(chunks)
		chunks = appendChunks(chunks, units, ix.chunkSize, ix.chunkOverlap)
		ix.logger.Printf("loaded %s (%d chunks)", filepath.Base(path), len(chunks)-before)
	}

	if len(chunks) == 0 {
		ix.logger.Printf("no documents found in %s", dir)
		return 0, nil
	}

	if err := ix.embedAll(ctx, chunks); err != nil {
		return 0, err
	}
	if err := ix.store.Replace(ctx, chunks); err != nil {
		return 0, fmt.Errorf("replace collection: %w", err)
	}

	ix.logger.Printf("ingestion complete: %d chunks", len(chunks))
	return len(chunks), nil
}

// appendChunks cuts every source unit and extends chunks, keeping the batch
// index dense across all documents. Page metadata propagates from the unit
// to every chunk cut from it.
func appendChunks(chunks []Chunk, units []SourceUnit, size, overlap int) []Chunk {
	for _, unit := range units {
		for _, text := range SplitText(unit.Text, size, overlap) {
			chunks = append(chunks, Chunk{
				ID:         uuid.New(),
				SourceName: unit.SourceName,
				Page:       unit.Page,
				ChunkIndex: len(chunks),
				Text:       text,
			})
		}
	}
	return chunks
}

func (ix *Indexer) embedAll(ctx context.Context, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("generate embeddings: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(texts), len(vectors))
		}
		for i := range vectors {
			chunks[start+i].Embedding = vectors[i]
		}
	}
	return nil
}
