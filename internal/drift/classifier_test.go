package drift

import (
	"context"
	"errors"
	"math"
	"testing"
)

// stubEngine returns canned vectors per input text.
type stubEngine struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEngine) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	// Unknown text gets a fixed default so identical inputs always match.
	return []float32{1, 1, 1}, nil
}

func (s *stubEngine) Dimensions() int { return 3 }
func (s *stubEngine) Name() string    { return "stub" }

func TestDiff_IdenticalTextIsStable(t *testing.T) {
	c := NewClassifier(&stubEngine{}, 0)

	res, err := c.Diff(context.Background(), "same text", "same text")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if math.Abs(res.Similarity-1.0) > 1e-6 {
		t.Errorf("Similarity = %f, want ~1.0", res.Similarity)
	}
	if math.Abs(res.Percent-100.0) > 1e-6 {
		t.Errorf("Percent = %f, want ~100.0", res.Percent)
	}
	if res.Classification != ClassStable {
		t.Errorf("Classification = %s, want stable", res.Classification)
	}
	if res.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %f, want default %f", res.Threshold, DefaultThreshold)
	}
}

func TestDiff_DissimilarTextIsDrift(t *testing.T) {
	engine := &stubEngine{vectors: map[string][]float32{
		"old": {1, 0, 0},
		"new": {0, 1, 0},
	}}
	c := NewClassifier(engine, 0.80)

	res, err := c.Diff(context.Background(), "new", "old")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if res.Classification != ClassDrift {
		t.Errorf("Classification = %s, want drift", res.Classification)
	}
	// Orthogonal vectors: similarity 0, percentage 50.
	if math.Abs(res.Similarity) > 1e-6 {
		t.Errorf("Similarity = %f, want ~0", res.Similarity)
	}
	if math.Abs(res.Percent-50.0) > 1e-6 {
		t.Errorf("Percent = %f, want ~50", res.Percent)
	}
}

func TestDiff_ThresholdAppliesToRawSimilarity(t *testing.T) {
	// Similarity 0.9 maps to 95%. With threshold 0.95 this must still be
	// drift: the threshold compares raw similarity, not percentage.
	engine := &stubEngine{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.9, float32(math.Sqrt(1 - 0.81)), 0},
	}}
	c := NewClassifier(engine, 0.95)

	res, err := c.Diff(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if res.Classification != ClassDrift {
		t.Errorf("Classification = %s, want drift (raw %.3f < 0.95)", res.Classification, res.Similarity)
	}
}

func TestDiff_EmptyTextIsValidInput(t *testing.T) {
	c := NewClassifier(&stubEngine{}, 0)

	res, err := c.Diff(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Diff with empty inputs: %v", err)
	}
	if res.Classification != ClassStable {
		t.Errorf("Classification = %s, want stable", res.Classification)
	}
}

func TestDiff_EngineErrorPropagates(t *testing.T) {
	c := NewClassifier(&stubEngine{err: errors.New("embedding service down")}, 0)

	if _, err := c.Diff(context.Background(), "a", "b"); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestNewEntity(t *testing.T) {
	c := NewClassifier(&stubEngine{}, 0.7)

	res := c.NewEntity()
	if res.Classification != ClassNewEntity {
		t.Errorf("Classification = %s, want new_entity", res.Classification)
	}
	if res.Similarity != 0 || res.Percent != 0 {
		t.Errorf("new entity must report zero similarity, got %f/%f", res.Similarity, res.Percent)
	}
	if res.Threshold != 0.7 {
		t.Errorf("Threshold = %f, want 0.7", res.Threshold)
	}
}
