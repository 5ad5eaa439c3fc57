// Package chat runs the question-answering pipeline: validate, guard, embed,
// rank, generate.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkondo/kotaeru/internal/ai"
	"github.com/mkondo/kotaeru/internal/guard"
	"github.com/mkondo/kotaeru/internal/models"
	"github.com/mkondo/kotaeru/internal/retrieval"
	"github.com/mkondo/kotaeru/internal/storage"
	"go.uber.org/zap"
)

// Fixed user-facing replies. Raw errors never reach the user; they are logged
// and replaced with one of these.
const (
	MsgInvalidQuestion = "Please ask a valid question."
	MsgRestricted      = "For more knowledge on this, please meet the HR."
	MsgEmbedFailure    = "Sorry, something went wrong while understanding your question. Please try again."
	MsgNoDocuments     = "No documents have been uploaded yet. Upload a document to start asking questions."
	MsgAnswerFailure   = "Sorry, something went wrong while generating the answer. Please try again."

	// msgLowConfidenceFmt carries the best observed similarity so users can
	// tell "nothing close" from "almost close enough".
	msgLowConfidenceFmt = "I could not find enough relevant information in the uploaded documents (best match %.3f)."
)

// minQuestionLen is the minimum trimmed question length.
const minQuestionLen = 3

// Service answers questions from the stored document chunks.
type Service struct {
	storage   storage.Storage
	embedder  ai.Embedder
	generator ai.Generator
	filter    *guard.Filter
	ranker    *retrieval.Ranker
	logger    *zap.Logger
}

// NewService creates a chat service with the given dependencies.
func NewService(
	store storage.Storage,
	embedder ai.Embedder,
	generator ai.Generator,
	filter *guard.Filter,
	ranker *retrieval.Ranker,
	logger *zap.Logger,
) *Service {
	return &Service{
		storage:   store,
		embedder:  embedder,
		generator: generator,
		filter:    filter,
		ranker:    ranker,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one question. It always returns a
// response; pipeline failures produce one of the fixed replies above with a
// zero chunk count.
func (s *Service) Answer(ctx context.Context, message string) *models.ChatResponse {
	question := strings.TrimSpace(message)
	resp := &models.ChatResponse{Question: question}

	if len(question) < minQuestionLen {
		resp.Answer = MsgInvalidQuestion
		return resp
	}
	if s.filter.IsRestricted(question) {
		resp.Answer = MsgRestricted
		return resp
	}

	queryEmbedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.warn("question embedding failed", question, err)
		resp.Answer = MsgEmbedFailure
		return resp
	}

	chunks, err := s.storage.ListChunks(ctx)
	if err != nil {
		s.warn("loading chunks failed", question, err)
		resp.Answer = MsgAnswerFailure
		return resp
	}
	if len(chunks) == 0 {
		resp.Answer = MsgNoDocuments
		return resp
	}

	ranked := s.ranker.Rank(queryEmbedding, chunks)
	if !ranked.Relevant {
		resp.Answer = fmt.Sprintf(msgLowConfidenceFmt, ranked.BestScore)
		return resp
	}

	texts := make([]string, len(ranked.Chunks))
	for i, sc := range ranked.Chunks {
		texts[i] = sc.Chunk.Text
	}
	answer, err := s.generator.GenerateAnswer(ctx, strings.Join(texts, "\n\n"), question)
	if err != nil {
		s.warn("answer generation failed", question, err)
		resp.Answer = MsgAnswerFailure
		return resp
	}

	resp.Answer = answer
	resp.ChunkCount = int64(len(ranked.Chunks))
	return resp
}

func (s *Service) warn(msg, question string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, zap.String("question", question), zap.Error(err))
}
