package molecule

import (
	"strings"

	"github.com/turtacn/molsim/pkg/errors"
)

// SimilarityMetric names a bit-vector similarity coefficient.
type SimilarityMetric string

const (
	MetricTanimoto SimilarityMetric = "tanimoto"
	MetricDice     SimilarityMetric = "dice"
)

// IsValid reports whether m is a supported metric.
func (m SimilarityMetric) IsValid() bool {
	switch m {
	case MetricTanimoto, MetricDice:
		return true
	default:
		return false
	}
}

func (m SimilarityMetric) String() string {
	return string(m)
}

// ParseSimilarityMetric parses a case-insensitive metric name.
func ParseSimilarityMetric(s string) (SimilarityMetric, error) {
	m := SimilarityMetric(strings.ToLower(strings.TrimSpace(s)))
	if m.IsValid() {
		return m, nil
	}
	return "", errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+s)
}

// SimilarityCalculator scores a pair of fingerprints in [0, 1].
type SimilarityCalculator interface {
	Calculate(fp1, fp2 *Fingerprint) (float64, error)
	Metric() SimilarityMetric
}

// TanimotoCalculator computes |A∩B| / |A∪B|. Two empty vectors score 0.
type TanimotoCalculator struct{}

func (c *TanimotoCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	if err := fp1.compatible(fp2); err != nil {
		return 0, err
	}
	union := fp1.Bits.UnionCardinality(fp2.Bits)
	if union == 0 {
		return 0, nil
	}
	return float64(fp1.Bits.IntersectionCardinality(fp2.Bits)) / float64(union), nil
}

func (c *TanimotoCalculator) Metric() SimilarityMetric { return MetricTanimoto }

// DiceCalculator computes 2|A∩B| / (|A| + |B|). Two empty vectors score 0.
type DiceCalculator struct{}

func (c *DiceCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	if err := fp1.compatible(fp2); err != nil {
		return 0, err
	}
	denominator := fp1.Bits.Count() + fp2.Bits.Count()
	if denominator == 0 {
		return 0, nil
	}
	return 2 * float64(fp1.Bits.IntersectionCardinality(fp2.Bits)) / float64(denominator), nil
}

func (c *DiceCalculator) Metric() SimilarityMetric { return MetricDice }

// NewSimilarityCalculator returns the calculator for metric.
func NewSimilarityCalculator(metric SimilarityMetric) (SimilarityCalculator, error) {
	switch metric {
	case MetricTanimoto:
		return &TanimotoCalculator{}, nil
	case MetricDice:
		return &DiceCalculator{}, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+string(metric))
	}
}

// Tanimoto is a convenience wrapper around TanimotoCalculator.
func Tanimoto(fp1, fp2 *Fingerprint) (float64, error) {
	return (&TanimotoCalculator{}).Calculate(fp1, fp2)
}

// Similarity thresholds used by ClassifySimilarity.
const (
	ThresholdIdentical          = 0.99
	ThresholdHighSimilarity     = 0.85
	ThresholdModerateSimilarity = 0.70
	ThresholdLowSimilarity      = 0.50
)

// ClassifySimilarity returns a coarse label for a similarity score.
func ClassifySimilarity(score float64) string {
	switch {
	case score >= ThresholdIdentical:
		return "identical"
	case score >= ThresholdHighSimilarity:
		return "high"
	case score >= ThresholdModerateSimilarity:
		return "moderate"
	case score >= ThresholdLowSimilarity:
		return "low"
	default:
		return "dissimilar"
	}
}
