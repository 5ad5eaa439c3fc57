package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkondo/kotaeru/internal/ai"
	"github.com/mkondo/kotaeru/internal/config"
	"github.com/mkondo/kotaeru/internal/extract"
	"github.com/mkondo/kotaeru/internal/keyword"
	"github.com/mkondo/kotaeru/internal/models"
	"github.com/mkondo/kotaeru/internal/storage"
)

const sampleText = "The vacation policy grants twenty days per year. Days roll over " +
	"until March of the following year. Unused days past March are forfeited without " +
	"exception. Managers approve requests within two business days."

// fakeKeywordIndex records indexed and deleted chunk IDs.
type fakeKeywordIndex struct {
	indexed []string
	deleted []string
}

func (f *fakeKeywordIndex) IndexChunk(ctx context.Context, chunk *models.Chunk) error {
	f.indexed = append(f.indexed, chunk.ID)
	return nil
}

func (f *fakeKeywordIndex) Search(ctx context.Context, query string, limit int) ([]*keyword.KeywordResult, error) {
	return nil, nil
}

func (f *fakeKeywordIndex) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	f.deleted = append(f.deleted, chunkIDs...)
	return nil
}

func (f *fakeKeywordIndex) Close() error { return nil }

func (f *fakeKeywordIndex) ChunkCount() (uint64, error) { return uint64(len(f.indexed)), nil }

// failingEmbedder always reports a service failure.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, ai.ErrEmbeddingService
}

func testPipeline(t *testing.T, embedder ai.Embedder, kw keyword.KeywordIndex) (*Pipeline, storage.Storage, *storage.FileStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	files, err := storage.NewFileStore(filepath.Join(dir, "docs"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := &config.Config{
		Chunking: config.ChunkingConfig{Size: 120, Overlap: 20},
		Ingest:   config.IngestConfig{BatchSize: 3, EmbedsPerSecond: 1000, QueueSize: 4},
	}
	return NewPipeline(store, files, embedder, kw, extract.NewExtractor(), cfg), store, files
}

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestPipeline_IngestPath(t *testing.T) {
	kw := &fakeKeywordIndex{}
	p, store, _ := testPipeline(t, ai.NewMockEmbedder(8), kw)
	ctx := context.Background()

	docID, err := p.IngestPath(ctx, writeSample(t, sampleText))
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}

	doc, err := store.GetDocument(ctx, docID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Status != models.StatusDone {
		t.Errorf("status = %q (%q), want done", doc.Status, doc.StatusNote)
	}
	if doc.OriginalName != "policy.txt" {
		t.Errorf("OriginalName = %q", doc.OriginalName)
	}

	chunks, err := store.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		t.Fatalf("GetChunksByDocumentID: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != 8 {
			t.Errorf("chunk %s embedding dim = %d, want 8", ch.ID, len(ch.Embedding))
		}
	}
	if len(kw.indexed) != len(chunks) {
		t.Errorf("keyword index saw %d chunks, want %d", len(kw.indexed), len(chunks))
	}
}

func TestPipeline_ReingestReplacesDocument(t *testing.T) {
	p, store, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	ctx := context.Background()
	path := writeSample(t, sampleText)

	first, err := p.IngestPath(ctx, path)
	if err != nil {
		t.Fatalf("first IngestPath: %v", err)
	}
	second, err := p.IngestPath(ctx, path)
	if err != nil {
		t.Fatalf("second IngestPath: %v", err)
	}
	if first != second {
		t.Errorf("same path should yield the same document ID: %q vs %q", first, second)
	}
	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 1 {
		t.Errorf("CountDocuments = %d, want 1", count)
	}
}

func TestPipeline_UnsupportedExtension(t *testing.T) {
	p, _, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("not text"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := p.IngestPath(context.Background(), path); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPipeline_EmptyContentFails(t *testing.T) {
	p, store, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	ctx := context.Background()

	docID, err := p.IngestPath(ctx, writeSample(t, "hi"))
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
	doc, getErr := store.GetDocument(ctx, docID)
	if getErr != nil {
		t.Fatalf("GetDocument: %v", getErr)
	}
	if doc.Status != models.StatusFailed {
		t.Errorf("status = %q, want failed", doc.Status)
	}
	if doc.StatusNote == "" {
		t.Error("failed document should carry a status note")
	}
}

func TestPipeline_EmbedderFailureMarksFailed(t *testing.T) {
	p, store, _ := testPipeline(t, failingEmbedder{}, nil)
	ctx := context.Background()

	docID, err := p.IngestPath(ctx, writeSample(t, sampleText))
	if !errors.Is(err, ai.ErrEmbeddingService) {
		t.Fatalf("err = %v, want ErrEmbeddingService", err)
	}
	doc, getErr := store.GetDocument(ctx, docID)
	if getErr != nil {
		t.Fatalf("GetDocument: %v", getErr)
	}
	if doc.Status != models.StatusFailed {
		t.Errorf("status = %q, want failed", doc.Status)
	}
	chunks, _ := store.GetChunksByDocumentID(ctx, docID)
	if len(chunks) != 0 {
		t.Errorf("failed document should have no chunks, got %d", len(chunks))
	}
}

func TestPipeline_ProcessMissingFileMarksFailed(t *testing.T) {
	p, store, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &models.Document{
		ID:           "doc-missing",
		OriginalName: "gone.txt",
		StoragePath:  filepath.Join(t.TempDir(), "gone.txt"),
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := p.Process(ctx, doc.ID); err == nil {
		t.Fatal("expected error for missing stored file")
	}
	got, _ := store.GetDocument(ctx, doc.ID)
	if got.Status != models.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
}

func TestPipeline_DeleteDocument(t *testing.T) {
	kw := &fakeKeywordIndex{}
	p, store, files := testPipeline(t, ai.NewMockEmbedder(8), kw)
	ctx := context.Background()

	// An uploaded document: the stored copy lives in the file store.
	in, err := os.Open(writeSample(t, sampleText))
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	storedPath, err := files.Save("doc-up", ".txt", in)
	_ = in.Close()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	now := time.Now().UTC()
	doc := &models.Document{
		ID: "doc-up", OriginalName: "policy.txt", StoragePath: storedPath,
		Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := p.Process(ctx, doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if err := p.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := store.GetDocument(ctx, doc.ID); err == nil {
		t.Error("document row should be gone")
	}
	if chunks, _ := store.GetChunksByDocumentID(ctx, doc.ID); len(chunks) != 0 {
		t.Errorf("chunks should cascade, got %d", len(chunks))
	}
	if len(kw.deleted) == 0 {
		t.Error("keyword index entries should be deleted")
	}
	if _, err := os.Stat(storedPath); !os.IsNotExist(err) {
		t.Error("stored upload copy should be removed")
	}
}

func TestPipeline_DeleteKeepsWatchedFile(t *testing.T) {
	p, _, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	ctx := context.Background()
	path := writeSample(t, sampleText)

	docID, err := p.IngestPath(ctx, path)
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}
	if err := p.DeleteDocument(ctx, docID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("watched file must stay on disk: %v", err)
	}
}

func TestQueue_ProcessesEnqueuedDocument(t *testing.T) {
	p, store, files := testPipeline(t, ai.NewMockEmbedder(8), nil)
	ctx := context.Background()

	in, err := os.Open(writeSample(t, sampleText))
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	storedPath, err := files.Save("doc-q", ".txt", in)
	_ = in.Close()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	now := time.Now().UTC()
	doc := &models.Document{
		ID: "doc-q", OriginalName: "policy.txt", StoragePath: storedPath,
		Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	q := NewQueue(p, 4, nil)
	q.Start(ctx)
	defer q.Stop()
	if err := q.Enqueue(doc.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.GetDocument(ctx, doc.ID)
		if err == nil && got.Status == models.StatusDone {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	got, _ := store.GetDocument(ctx, doc.ID)
	t.Fatalf("document never reached done, status = %q (%q)", got.Status, got.StatusNote)
}

func TestQueue_FullBuffer(t *testing.T) {
	p, _, _ := testPipeline(t, ai.NewMockEmbedder(8), nil)
	q := NewQueue(p, 1, nil)
	// Not started, so the buffer never drains.
	if err := q.Enqueue("a"); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := q.Enqueue("b"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestFileDocID(t *testing.T) {
	a := fileDocID("/data/docs/policy.txt")
	b := fileDocID("/data/docs/../docs/policy.txt")
	if a != b {
		t.Errorf("equivalent paths should share an ID: %q vs %q", a, b)
	}
	if a == fileDocID("/data/docs/other.txt") {
		t.Error("different paths should not collide")
	}
}
