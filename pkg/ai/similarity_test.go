package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type mapEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vectors[text], nil
}

func TestScoreIdenticalVectorsIsFull(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"relational databases": {0.2, 0.4, 0.6},
	}}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "relational databases", "relational databases")
	require.NoError(t, err)
	require.InDelta(t, 100.0, score, 0.01)
}

func TestScoreOrthogonalVectorsIsZero(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"databases": {1, 0, 0},
		"painting":  {0, 1, 0},
	}}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "databases", "painting")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestScorePartialOverlap(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 1},
	}}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "a", "b")
	require.NoError(t, err)
	require.InDelta(t, 70.71, score, 0.01)
}

func TestScoreEmptyInputSkipsEmbedder(t *testing.T) {
	embedder := &mapEmbedder{}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "", "anything")
	require.NoError(t, err)
	require.Zero(t, score)

	score, err = scorer.Score(context.Background(), "anything", "   ")
	require.NoError(t, err)
	require.Zero(t, score)

	require.Zero(t, embedder.calls)
}

func TestScoreNilEmbedderDefaultsToZero(t *testing.T) {
	scorer := NewSimilarityScorer(nil, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestScoreZeroVectorIsZero(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"a": {0, 0, 0},
		"b": {1, 1, 1},
	}}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestScoreNegativeCosineClampsToZero(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {-1, 0},
	}}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	score, err := scorer.Score(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestScorePropagatesEmbedderError(t *testing.T) {
	embedder := &mapEmbedder{err: errors.New("model unavailable")}
	scorer := NewSimilarityScorer(embedder, zerolog.Nop())

	_, err := scorer.Score(context.Background(), "a", "b")
	require.Error(t, err)
}
