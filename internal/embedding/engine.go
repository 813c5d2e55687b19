// Package embedding maps text to fixed-dimension vectors for semantic
// comparison. Two backends are supported: Ollama (local) and Google GenAI
// (cloud), behind one Engine interface.
package embedding

import (
	"context"
	"fmt"
	"math"

	"driftwatch/internal/config"
	"driftwatch/internal/logging"
)

// Engine generates vector embeddings for text. Implementations must accept
// empty strings; the drift classifier does no input special-casing.
type Engine interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed dimensionality of produced vectors.
	Dimensions() int

	// Name identifies the backend, e.g. "ollama:embeddinggemma".
	Name() string
}

// HealthChecker is optionally implemented by engines that can verify the
// backing service is reachable before a run starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	logging.Embedding("Creating embedding engine: provider=%s", cfg.Provider)

	switch cfg.Provider {
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}

// CosineSimilarity computes the cosine similarity of two vectors of equal
// dimensionality. The result is in [-1, 1]: 1 means identical direction,
// 0 orthogonal, -1 opposite. A zero-magnitude vector yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		logging.Get(logging.CategoryEmbedding).Warn("cosine similarity: zero magnitude vector")
		return 0, nil
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
