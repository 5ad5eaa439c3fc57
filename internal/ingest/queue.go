package ingest

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Enqueue when the job buffer is at capacity.
var ErrQueueFull = errors.New("ingestion queue is full")

// Queue runs ingestion jobs on a single background worker so upload requests
// return before processing starts. One job is one document ID.
type Queue struct {
	pipeline *Pipeline
	jobs     chan string
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(pipeline *Pipeline, size int, logger *zap.Logger) *Queue {
	return &Queue{
		pipeline: pipeline,
		jobs:     make(chan string, size),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start launches the worker. It runs until ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case docID := <-q.jobs:
				// Process marks the document failed itself; the error is
				// already logged there with its stage attached.
				if err := q.pipeline.Process(ctx, docID); err != nil && q.logger != nil {
					q.logger.Debug("ingestion job finished with error",
						zap.String("doc_id", docID), zap.Error(err))
				}
			}
		}
	}()
}

// Enqueue schedules a document for processing without blocking.
func (q *Queue) Enqueue(docID string) error {
	select {
	case q.jobs <- docID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop terminates the worker. Safe to call more than once.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
}
