package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"

	"github.com/submitech/submitech-api/internal/service"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubject            string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OpenAIAPIKey           string
	EmbeddingModel         string
	EmbeddingCacheTTL      time.Duration
	EvaluationWorkers      int
	EvaluationQueueSize    int
	PlagiarismThreshold    float64
	GrammarCorpusFile      string
	GradingWeightsFile     string
	Grading                service.GradingConfig
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SUBMITECH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SubmiTech API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "submitech/documents")
	v.SetDefault("nats.subject", "submitech.notifications")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.cache_ttl", "24h")
	v.SetDefault("evaluation.workers", 2)
	v.SetDefault("evaluation.queue_size", 64)
	v.SetDefault("plagiarism.threshold", 50.0)

	ttlString := v.GetString("embedding.cache_ttl")
	if ttlString == "" {
		ttlString = "24h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid embedding cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		EmbeddingModel:         v.GetString("embedding.model"),
		EmbeddingCacheTTL:      ttl,
		EvaluationWorkers:      v.GetInt("evaluation.workers"),
		EvaluationQueueSize:    v.GetInt("evaluation.queue_size"),
		PlagiarismThreshold:    v.GetFloat64("plagiarism.threshold"),
		GrammarCorpusFile:      v.GetString("grammar.corpus_file"),
		GradingWeightsFile:     v.GetString("grading.weights_file"),
		Grading:                service.DefaultGradingConfig(),
	}

	if cfg.EvaluationWorkers <= 0 {
		cfg.EvaluationWorkers = 2
	}
	if cfg.EvaluationQueueSize <= 0 {
		cfg.EvaluationQueueSize = 64
	}
	if cfg.PlagiarismThreshold <= 0 || cfg.PlagiarismThreshold > 100 {
		cfg.PlagiarismThreshold = 50
	}

	if cfg.GradingWeightsFile != "" {
		grading, err := LoadGradingWeights(cfg.GradingWeightsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Grading = grading
	}

	return cfg, nil
}

const gradingWeightsSchema = `{
	"type": "object",
	"properties": {
		"text_weight":      {"type": "number", "minimum": 0},
		"diagram_weight":   {"type": "number", "minimum": 0},
		"grammar_weight":   {"type": "number", "minimum": 0},
		"integrity_weight": {"type": "number", "minimum": 0},
		"grammar_scale":    {"type": "number", "exclusiveMinimum": 0},
		"late_penalty":     {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
	},
	"required": ["text_weight", "diagram_weight", "grammar_weight", "integrity_weight"],
	"additionalProperties": false
}`

// LoadGradingWeights reads and validates a grading weights JSON file. Fields
// the file omits keep their defaults.
func LoadGradingWeights(path string) (service.GradingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return service.GradingConfig{}, fmt.Errorf("read grading weights: %w", err)
	}

	schema, err := jsonschema.CompileString("grading_weights.json", gradingWeightsSchema)
	if err != nil {
		return service.GradingConfig{}, fmt.Errorf("compile grading weights schema: %w", err)
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return service.GradingConfig{}, fmt.Errorf("parse grading weights: %w", err)
	}

	if err := schema.Validate(document); err != nil {
		return service.GradingConfig{}, fmt.Errorf("invalid grading weights: %w", err)
	}

	grading := service.DefaultGradingConfig()
	if err := json.Unmarshal(raw, &grading); err != nil {
		return service.GradingConfig{}, fmt.Errorf("decode grading weights: %w", err)
	}

	return grading, nil
}
