// Package drift classifies how far an entity's current content has moved
// from its prior baseline, using embedding cosine similarity.
package drift

import (
	"context"
	"fmt"

	"driftwatch/internal/embedding"
	"driftwatch/internal/logging"
)

// DefaultThreshold is the raw cosine similarity below which content is
// classified as drift.
const DefaultThreshold = 0.80

// Classification is the discrete magnitude-of-change bucket.
type Classification string

const (
	// ClassNewEntity means no prior baseline existed. By convention it
	// never counts as drift.
	ClassNewEntity Classification = "new_entity"

	// ClassStable means similarity is at or above the threshold.
	ClassStable Classification = "stable"

	// ClassDrift means similarity fell below the threshold.
	ClassDrift Classification = "drift"
)

// Result is the outcome of one comparison.
type Result struct {
	// Similarity is the raw cosine similarity in [-1, 1], clamped to
	// [0, 1] semantics by the report layer. New entities report 0.
	Similarity float64

	// Percent maps similarity to [0, 100]: identical 100, orthogonal 50,
	// opposite 0. New entities report 0.
	Percent float64

	// Classification is the discrete bucket.
	Classification Classification

	// Threshold is the raw-similarity threshold that was applied.
	Threshold float64
}

// Classifier compares two texts via an injected embedding engine.
type Classifier struct {
	engine    embedding.Engine
	threshold float64
}

// NewClassifier creates a classifier. A threshold of zero or less selects
// DefaultThreshold.
func NewClassifier(engine embedding.Engine, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{engine: engine, threshold: threshold}
}

// Threshold returns the active drift threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Diff embeds both texts and classifies the change. Empty strings are
// valid input; whatever similarity the engine computes is used as-is.
// The threshold applies to the raw similarity, not the percentage.
func (c *Classifier) Diff(ctx context.Context, current, prior string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryDrift, "Diff")
	defer timer.Stop()

	currentVec, err := c.engine.Embed(ctx, current)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed current text: %w", err)
	}
	priorVec, err := c.engine.Embed(ctx, prior)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed prior text: %w", err)
	}

	similarity, err := embedding.CosineSimilarity(currentVec, priorVec)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compare embeddings: %w", err)
	}

	result := Result{
		Similarity: similarity,
		Percent:    (similarity + 1) / 2 * 100,
		Threshold:  c.threshold,
	}
	if similarity < c.threshold {
		result.Classification = ClassDrift
	} else {
		result.Classification = ClassStable
	}

	logging.Drift("Classified: similarity=%.4f percent=%.1f class=%s", similarity, result.Percent, result.Classification)
	return result, nil
}

// NewEntity is the no-baseline branch: similarity and percent are defined
// as 0 and the comparison path is never invoked.
func (c *Classifier) NewEntity() Result {
	return Result{
		Similarity:     0,
		Percent:        0,
		Classification: ClassNewEntity,
		Threshold:      c.threshold,
	}
}
