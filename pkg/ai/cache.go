package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const embeddingKeyPrefix = "submitech:embeddings:"

// CachedEmbedder memoizes embedding vectors in Redis keyed by a content
// hash. Model calls are expensive and normalization is deterministic, so
// identical texts always map to the same vector.
type CachedEmbedder struct {
	inner  Embedder
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedEmbedder wraps inner with a Redis cache. A nil client disables
// caching and delegates every call.
func NewCachedEmbedder(inner Embedder, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

// Embed returns the cached vector when present, otherwise delegates to the
// wrapped embedder and stores the result. Cache failures are logged and
// never propagate; the model call is the source of truth.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embeddingKey(text)

	if c.redis != nil {
		payload, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var embedding []float32
			if json.Unmarshal(payload, &embedding) == nil {
				return embedding, nil
			}
		}
	}

	embedding, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		payload, err := json.Marshal(embedding)
		if err == nil {
			if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to cache embedding")
			}
		}
	}

	return embedding, nil
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingKeyPrefix + hex.EncodeToString(sum[:])
}
