// Package textnorm produces the canonical token-joined form of document text
// that every downstream similarity comparison operates on.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/bbalet/stopwords"
)

// Normalizer lowercases, tokenizes, strips stopwords and non-alphanumeric
// tokens, and lemmatizes. Normalization is deterministic: the same input
// always yields the same output.
type Normalizer struct {
	lemmatizer *golem.Lemmatizer
}

// New builds a Normalizer with the bundled English lemmatizer dictionary.
func New() (*Normalizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}

	return &Normalizer{lemmatizer: lemmatizer}, nil
}

// Normalize returns the canonical form of text. Empty or whitespace-only
// input yields the empty string.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := stopwords.CleanString(strings.ToLower(text), "en", false)

	tokens := strings.FieldsFunc(cleaned, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		normalized = append(normalized, n.lemmatizer.Lemma(token))
	}

	return strings.Join(normalized, " ")
}
