package ai

import (
	"context"
	"math"
	"strings"

	"github.com/james-bowman/nlp/measures/pairwise"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// SimilarityScorer computes a 0-100 semantic similarity score between two
// texts via sentence-embedding cosine similarity. It holds no per-use state
// and is reused for both body-text and diagram-text comparisons.
type SimilarityScorer struct {
	embedder Embedder
	logger   zerolog.Logger
}

// NewSimilarityScorer builds a scorer around the given embedder. A nil
// embedder is tolerated: every comparison then scores 0, which keeps grading
// functional when no embedding model is configured.
func NewSimilarityScorer(embedder Embedder, logger zerolog.Logger) *SimilarityScorer {
	return &SimilarityScorer{
		embedder: embedder,
		logger:   logger.With().Str("component", "similarity_scorer").Logger(),
	}
}

// Score returns round(cosine(emb_a, emb_b) * 100, 2) clamped to [0,100].
// Empty input on either side scores 0 without touching the encoder:
// embedding an empty string is degenerate.
func (s *SimilarityScorer) Score(ctx context.Context, a, b string) (float64, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, nil
	}

	if s.embedder == nil {
		s.logger.Debug().Msg("no embedder configured, similarity defaults to 0")
		return 0, nil
	}

	embA, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, err
	}

	embB, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, err
	}

	cos := pairwise.CosineSimilarity(vector(embA), vector(embB))
	if math.IsNaN(cos) {
		return 0, nil
	}

	score := math.Round(cos*100*100) / 100
	if score < 0 {
		return 0, nil
	}
	if score > 100 {
		return 100, nil
	}

	return score, nil
}

func vector(values []float32) mat.Vector {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}

	return mat.NewVecDense(len(data), data)
}
