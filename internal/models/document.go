// Package models defines core data structures for documents, chunks, and chat exchanges.
package models

import "time"

// Ingestion status values persisted on a document. A document starts as
// StatusPending when its upload is recorded and moves through StatusProcessing
// to StatusDone or StatusFailed as the pipeline runs.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Document represents an uploaded file and its ingestion state.
type Document struct {
	ID           string    `json:"id" db:"id"`
	OriginalName string    `json:"original_name" db:"original_name"`
	StoragePath  string    `json:"storage_path" db:"storage_path"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	Status       string    `json:"status" db:"status"`
	StatusNote   string    `json:"status_note,omitempty" db:"status_note"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Chunk is a bounded segment of a document's extracted text, the unit of
// embedding and retrieval. Chunks are immutable once stored and are removed
// only when their document is deleted.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Text       string    `json:"text" db:"text"`
	Embedding  []float64 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
