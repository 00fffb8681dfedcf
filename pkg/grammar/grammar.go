// Package grammar scores text quality by counting word-level spelling
// deviations against a trained correction model.
package grammar

import (
	"bufio"
	"os"
	"strings"

	"github.com/sajari/fuzzy"
)

// Discrete quality buckets on a 0-10 scale. The grading engine rescales
// these to 0-100 before weighting.
const (
	ScoreTop = 10
	ScoreMid = 9
	ScoreLow = 8
)

const midBucketMaxErrors = 5

// Scorer counts tokens whose auto-corrected form differs from the original
// and maps the error count onto a discrete quality score.
type Scorer struct {
	model *fuzzy.Model
}

// NewScorer builds a Scorer trained on the given word corpus. An empty
// corpus yields a permissive model that flags nothing.
func NewScorer(corpus []string) *Scorer {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)
	if len(corpus) > 0 {
		model.Train(corpus)
	}

	return &Scorer{model: model}
}

// NewScorerFromFile trains a Scorer from a newline-separated word list.
func NewScorerFromFile(path string) (*Scorer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var corpus []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word != "" {
			corpus = append(corpus, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewScorer(corpus), nil
}

// Score maps the number of misspelled tokens in text onto the discrete
// scale: 0 errors is top, up to five errors is mid, more is low. Text with
// no tokens at all scores 0.
func (s *Scorer) Score(text string) int {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 0
	}

	errors := 0
	for _, token := range tokens {
		corrected := s.model.SpellCheck(token)
		if corrected != "" && corrected != token {
			errors++
		}
	}

	switch {
	case errors == 0:
		return ScoreTop
	case errors <= midBucketMaxErrors:
		return ScoreMid
	default:
		return ScoreLow
	}
}
