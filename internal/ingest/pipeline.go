package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkondo/kotaeru/internal/ai"
	"github.com/mkondo/kotaeru/internal/config"
	"github.com/mkondo/kotaeru/internal/extract"
	"github.com/mkondo/kotaeru/internal/keyword"
	"github.com/mkondo/kotaeru/internal/models"
	"github.com/mkondo/kotaeru/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pipeline takes a recorded document through extraction, chunking, and
// embedding, and persists the resulting chunks. A failure on one document
// marks that document failed and never affects others.
type Pipeline struct {
	storage      storage.Storage
	files        *storage.FileStore
	embedder     ai.Embedder
	keywordIndex keyword.KeywordIndex
	extractor    *extract.Extractor
	chunker      *Chunker
	limiter      *rate.Limiter
	batchSize    int
	logger       *zap.Logger // optional; when set, logs pipeline progress
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for progress and per-chunk failure events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline with the given dependencies.
// keywordIndex may be nil; chunks are then not keyword-indexed.
func NewPipeline(
	store storage.Storage,
	files *storage.FileStore,
	embedder ai.Embedder,
	keywordIndex keyword.KeywordIndex,
	extractor *extract.Extractor,
	cfg *config.Config,
	opts ...PipelineOption,
) *Pipeline {
	batchSize := cfg.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	p := &Pipeline{
		storage:      store,
		files:        files,
		embedder:     embedder,
		keywordIndex: keywordIndex,
		extractor:    extractor,
		chunker:      NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		limiter:      rate.NewLimiter(rate.Limit(cfg.Ingest.EmbedsPerSecond), 1),
		batchSize:    batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for an already-recorded document: extract,
// normalize, chunk, embed, store, keyword-index. Document status moves
// pending -> processing -> done, or to failed with a note describing the
// stage that broke.
func (p *Pipeline) Process(ctx context.Context, docID string) error {
	doc, err := p.storage.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := p.storage.SetDocumentStatus(ctx, docID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	chunks, err := p.buildChunks(ctx, doc)
	if err != nil {
		p.fail(ctx, docID, err)
		return err
	}
	if err := p.storage.BatchCreateChunks(ctx, chunks); err != nil {
		err = fmt.Errorf("store chunks: %w", err)
		p.fail(ctx, docID, err)
		return err
	}
	if p.keywordIndex != nil {
		for _, ch := range chunks {
			if kerr := p.keywordIndex.IndexChunk(ctx, ch); kerr != nil {
				p.warn("keyword indexing failed", doc.ID, zap.String("chunk_id", ch.ID), zap.Error(kerr))
			}
		}
	}
	if err := p.storage.SetDocumentStatus(ctx, docID, models.StatusDone, ""); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if p.logger != nil {
		p.logger.Info("document ingested",
			zap.String("doc_id", docID),
			zap.String("name", doc.OriginalName),
			zap.Int("chunks", len(chunks)))
	}
	return nil
}

// buildChunks extracts, normalizes, chunks, and embeds a document's text.
// Chunks whose embedding call fails are logged and skipped; an error is
// returned only when nothing survives.
func (p *Pipeline) buildChunks(ctx context.Context, doc *models.Document) ([]*models.Chunk, error) {
	text, err := p.extractor.Extract(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	normalized, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	parts := p.chunker.Chunk(normalized)
	if len(parts) == 0 {
		return nil, ErrEmptyContent
	}

	chunks := make([]*models.Chunk, 0, len(parts))
	for start := 0; start < len(parts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(parts) {
			end = len(parts)
		}
		for i, part := range parts[start:end] {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
			embedding, err := p.embedder.Embed(ctx, part)
			if err != nil {
				p.warn("chunk embedding failed, skipping", doc.ID,
					zap.Int("chunk_index", start+i), zap.Error(err))
				continue
			}
			chunks = append(chunks, &models.Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				ChunkIndex: start + i,
				Text:       part,
				Embedding:  embedding,
				CreatedAt:  time.Now().UTC(),
			})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunk could be embedded: %w", ai.ErrEmbeddingService)
	}
	return chunks, nil
}

// IngestPath records and processes a file from disk (drop folder or CLI).
// The document ID is derived from the absolute path so re-ingesting the same
// file replaces its previous chunks instead of duplicating them.
func (p *Pipeline) IngestPath(ctx context.Context, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", absPath)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !p.extractor.Supports(ext) {
		return "", fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, ext)
	}

	docID := fileDocID(absPath)
	// Re-ingest replaces: drop any earlier state for this path.
	_ = p.DeleteDocument(ctx, docID)

	now := time.Now().UTC()
	doc := &models.Document{
		ID:           docID,
		OriginalName: filepath.Base(absPath),
		StoragePath:  absPath,
		SizeBytes:    info.Size(),
		MimeType:     mime.TypeByExtension(ext),
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.storage.CreateDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("record document: %w", err)
	}
	if err := p.Process(ctx, docID); err != nil {
		return docID, err
	}
	return docID, nil
}

// IngestDirectory walks dir and ingests every supported regular file.
// Returns the number of files ingested and the first error encountered.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !p.extractor.Supports(strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		if _, ingestErr := p.IngestPath(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// RemovePath deletes the document previously ingested from path, if any.
func (p *Pipeline) RemovePath(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return p.DeleteDocument(ctx, fileDocID(absPath))
}

// DeleteDocument removes a document everywhere: keyword index, chunk rows,
// document row, and the stored upload copy. Files outside the upload store
// (watched drop-folder files) are left on disk.
func (p *Pipeline) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := p.storage.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if p.keywordIndex != nil {
		chunks, err := p.storage.GetChunksByDocumentID(ctx, docID)
		if err != nil {
			return fmt.Errorf("load chunks: %w", err)
		}
		ids := make([]string, len(chunks))
		for i, ch := range chunks {
			ids[i] = ch.ID
		}
		if err := p.keywordIndex.DeleteChunks(ctx, ids); err != nil {
			return fmt.Errorf("delete from keyword index: %w", err)
		}
	}
	if err := p.storage.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if p.files != nil && p.files.Contains(doc.StoragePath) {
		if err := p.files.Remove(doc.StoragePath); err != nil {
			return fmt.Errorf("remove stored file: %w", err)
		}
	}
	if p.logger != nil {
		p.logger.Info("document deleted", zap.String("doc_id", docID))
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, docID string, cause error) {
	if err := p.storage.SetDocumentStatus(ctx, docID, models.StatusFailed, cause.Error()); err != nil && p.logger != nil {
		p.logger.Error("failed to record document failure", zap.String("doc_id", docID), zap.Error(err))
	}
	if p.logger != nil {
		p.logger.Warn("document ingestion failed", zap.String("doc_id", docID), zap.Error(cause))
	}
}

func (p *Pipeline) warn(msg, docID string, fields ...zap.Field) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, append([]zap.Field{zap.String("doc_id", docID)}, fields...)...)
}

// fileDocID returns a stable document ID for a file path so re-ingesting the
// same path updates the same document.
func fileDocID(absPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absPath)))
	return "file:" + hex.EncodeToString(sum[:])
}
