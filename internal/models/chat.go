package models

// ChatRequest is a single free-text question from a user.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the generated answer back to the user along with the
// original question and how many chunks informed the answer.
type ChatResponse struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	ChunkCount int64  `json:"chunk_count"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
