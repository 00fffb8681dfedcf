package service

import (
	"fmt"
	"math"

	"github.com/james-bowman/nlp"
	"github.com/james-bowman/nlp/measures/pairwise"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// CohortScorer computes pairwise TF-IDF similarity across a cohort of
// normalized submission texts. Each document's plagiarism score is its
// highest similarity against any other document, as a percentage.
type CohortScorer struct {
	logger zerolog.Logger
}

// NewCohortScorer constructs a cohort plagiarism scorer.
func NewCohortScorer(logger zerolog.Logger) *CohortScorer {
	return &CohortScorer{
		logger: logger.With().Str("component", "cohort_scorer").Logger(),
	}
}

// Score returns one plagiarism score per input document, index-aligned with
// docs. Cohorts of one or zero documents score zero across the board.
func (s *CohortScorer) Score(docs []string) ([]float64, error) {
	scores := make([]float64, len(docs))
	if len(docs) <= 1 {
		return scores, nil
	}

	nonEmpty := 0
	for _, doc := range docs {
		if doc != "" {
			nonEmpty++
		}
	}
	if nonEmpty <= 1 {
		return scores, nil
	}

	vectoriser := nlp.NewCountVectoriser()
	transformer := nlp.NewTfidfTransformer()
	pipeline := nlp.NewPipeline(vectoriser, transformer)

	matrix, err := pipeline.FitTransform(docs...)
	if err != nil {
		return nil, fmt.Errorf("tfidf transform: %w", err)
	}

	viewer, ok := matrix.(mat.ColViewer)
	if !ok {
		return nil, fmt.Errorf("tfidf matrix does not support column views")
	}

	for i := range docs {
		if docs[i] == "" {
			continue
		}

		best := 0.0
		for j := range docs {
			if i == j || docs[j] == "" {
				continue
			}

			similarity := pairwise.CosineSimilarity(viewer.ColView(i), viewer.ColView(j))
			if math.IsNaN(similarity) {
				continue
			}
			if similarity > best {
				best = similarity
			}
		}

		score := math.Round(best*100*100) / 100
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		scores[i] = score
	}

	return scores, nil
}
