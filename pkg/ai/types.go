package ai

import "context"

// Embedder encodes text into a fixed-size sentence embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
