// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/mkondo/kotaeru/internal/models"
)

// Storage defines document and chunk persistence operations.
// ListChunks must be safe to call concurrently with CreateChunk/BatchCreateChunks:
// readers see a consistent snapshot or the new rows, never a half-written row.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	SetDocumentStatus(ctx context.Context, id, status, note string) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	CreateChunk(ctx context.Context, chunk *models.Chunk) error
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
