// Package keyword provides keyword (BM25) indexing and search over chunks.
package keyword

import (
	"context"

	"github.com/mkondo/kotaeru/internal/models"
)

// KeywordIndex defines keyword search operations over chunks.
type KeywordIndex interface {
	// IndexChunk adds or replaces a chunk in the index.
	IndexChunk(ctx context.Context, chunk *models.Chunk) error
	// Search runs a match query and returns up to limit hits.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	// DeleteChunks removes the given chunk IDs from the index.
	DeleteChunks(ctx context.Context, chunkIDs []string) error
	Close() error
	// ChunkCount returns the total number of chunks in the index.
	ChunkCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
