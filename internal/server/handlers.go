package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mkondo/kotaeru/internal/models"
	"github.com/mkondo/kotaeru/internal/storage"
	"go.uber.org/zap"
)

const defaultSearchLimit = 10

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("chat request", zap.String("message", req.Message))
	resp := s.chat.Answer(r.Context(), req.Message)
	s.respondJSON(w, http.StatusOK, resp)
}

// uploadResult reports the outcome for one file in an upload request.
type uploadResult struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	limits := s.config.Upload
	if err := r.ParseMultipartForm(limits.MaxFileBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files provided (use form field \"files\")")
		return
	}
	if len(headers) > limits.MaxFiles {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: %d (max %d)", len(headers), limits.MaxFiles))
		return
	}

	results := make([]uploadResult, 0, len(headers))
	accepted := 0
	for _, fh := range headers {
		res := uploadResult{Name: fh.Filename, Status: "rejected"}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		switch {
		case !s.extensionAllowed(ext):
			res.Error = fmt.Sprintf("unsupported file type %q", ext)
		case fh.Size > limits.MaxFileBytes:
			res.Error = fmt.Sprintf("file too large: %d bytes (max %d)", fh.Size, limits.MaxFileBytes)
		default:
			id, err := s.acceptUpload(r, fh, ext)
			if err != nil {
				s.logger.Error("upload failed", zap.String("name", fh.Filename), zap.Error(err))
				res.Error = "failed to store file"
				break
			}
			res.ID = id
			res.Status = models.StatusPending
			res.Error = ""
			accepted++
		}
		results = append(results, res)
	}

	status := http.StatusAccepted
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	s.respondJSON(w, status, map[string]interface{}{"documents": results})
}

// acceptUpload persists one uploaded file, records its document row, and
// queues it for ingestion.
func (s *Server) acceptUpload(r *http.Request, fh *multipart.FileHeader, ext string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	docID := uuid.New().String()
	path, err := s.files.Save(docID, ext, f)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	doc := &models.Document{
		ID:           docID,
		OriginalName: fh.Filename,
		StoragePath:  path,
		SizeBytes:    fh.Size,
		MimeType:     mime.TypeByExtension(ext),
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateDocument(r.Context(), doc); err != nil {
		_ = s.files.Remove(path)
		return "", fmt.Errorf("record document: %w", err)
	}
	if err := s.queue.Enqueue(docID); err != nil {
		s.logger.Warn("ingestion queue full, document stays pending",
			zap.String("doc_id", docID), zap.Error(err))
	}
	return docID, nil
}

func (s *Server) extensionAllowed(ext string) bool {
	for _, e := range s.config.Upload.Extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), strings.TrimPrefix(ext, ".")) {
			return true
		}
	}
	return false
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err := s.pipeline.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter \"q\" is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.keyword.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": query, "results": hits})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
	}
	if s.keyword != nil {
		if n, err := s.keyword.ChunkCount(); err == nil {
			resp["keyword_index_chunks"] = n
		}
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
		s.config.Storage.DocumentsDir,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"chunk_size":       s.config.Chunking.Size,
		"chunk_overlap":    s.config.Chunking.Overlap,
		"top_k":            s.config.Retrieval.TopK,
		"embed_model":      s.config.AI.EmbedModel,
		"chat_model":       s.config.AI.ChatModel,
		"watch_dirs":       s.config.Watch.Directories,
		"database_path":    s.config.Storage.DatabasePath,
		"bleve_index_path": s.config.Storage.BleveIndexPath,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
