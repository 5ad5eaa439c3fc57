package retrieval

import (
	"sort"

	"github.com/mkondo/kotaeru/internal/config"
	"github.com/mkondo/kotaeru/internal/models"
)

// Result is the outcome of ranking stored chunks against one query vector.
// Relevant is false when every top-K score fell at or below the relevance
// threshold; BestScore then carries the best observed score for diagnostics.
type Result struct {
	Chunks    []*models.ScoredChunk
	BestScore float64
	Relevant  bool
}

// Ranker selects the top-K most similar chunks above a relevance threshold.
type Ranker struct {
	topK               int
	relevanceThreshold float64
	prefilterThreshold float64
}

// NewRanker creates a ranker from retrieval configuration.
func NewRanker(cfg *config.RetrievalConfig) *Ranker {
	return &Ranker{
		topK:               cfg.TopK,
		relevanceThreshold: cfg.RelevanceThreshold,
		prefilterThreshold: cfg.PrefilterThreshold,
	}
}

// Rank scores every chunk against query, sorts descending (stable, ties keep
// enumeration order), takes the top K, and applies the relevance threshold.
// Chunks whose embedding length differs from the query score 0. The prefilter
// only discards scores that could never survive the relevance threshold; it
// does not change the final selection.
func (r *Ranker) Rank(query []float64, chunks []*models.Chunk) *Result {
	qMag := Magnitude(query)

	scored := make([]*models.ScoredChunk, 0, len(chunks))
	best := 0.0
	for _, ch := range chunks {
		score := similarityWithQueryMagnitude(query, qMag, ch.Embedding)
		if score > best {
			best = score
		}
		if score <= r.prefilterThreshold {
			continue
		}
		scored = append(scored, &models.ScoredChunk{Chunk: ch, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}

	// Relevance gate over the top-K: weak matches are reported, not returned.
	kept := scored[:0]
	for _, sc := range scored {
		if sc.Score > r.relevanceThreshold {
			kept = append(kept, sc)
		}
	}
	if len(kept) == 0 {
		return &Result{BestScore: best, Relevant: false}
	}
	return &Result{Chunks: kept, BestScore: best, Relevant: true}
}
