// Package ai wraps the sentence-embedding model behind an injectable
// capability object plus the cosine-similarity scorer built on top of it.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	embeddingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "submitech",
		Subsystem: "ai",
		Name:      "embedding_duration_seconds",
		Help:      "Duration of embedding model requests",
	}, []string{"model"})

	embeddingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "submitech",
		Subsystem: "ai",
		Name:      "embedding_failures_total",
		Help:      "Number of failed embedding model requests",
	}, []string{"model"})
)

// EmbeddingModel identifies the embedding model to request.
type EmbeddingModel = openai.EmbeddingModel

// OpenAIConfig defines configuration options for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey string
	Model  openai.EmbeddingModel
	Logger zerolog.Logger
}

// OpenAIEmbedder implements Embedder against the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEmbedder builds an embedder using the provided configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.SmallEmbedding3
	}

	tracer := otel.Tracer("github.com/submitech/submitech-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEmbedder{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Embed encodes the text into a sentence embedding.
func (e *OpenAIEmbedder) Embed(parent context.Context, text string) ([]float32, error) {
	ctx, span := e.tracer.Start(parent, "openai.embed", trace.WithAttributes(
		attribute.String("model", string(e.cfg.Model)),
		attribute.Int("text_length", len(text)),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.cfg.Model,
	})
	embeddingDuration.WithLabelValues(string(e.cfg.Model)).Observe(time.Since(start).Seconds())
	if err != nil {
		embeddingFailures.WithLabelValues(string(e.cfg.Model)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	if len(resp.Data) == 0 {
		err := fmt.Errorf("no embedding returned from openai")
		embeddingFailures.WithLabelValues(string(e.cfg.Model)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return resp.Data[0].Embedding, nil
}
