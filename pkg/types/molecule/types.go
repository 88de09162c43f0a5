// Package molecule defines the molecule-ranking Data Transfer Objects written
// to disk and object storage. No domain logic lives here; the types are safe
// to import from any layer.
package molecule

import (
	"github.com/turtacn/molsim/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// FingerprintType
// ─────────────────────────────────────────────────────────────────────────────

// FingerprintType identifies which fingerprint algorithm produced a bit vector.
type FingerprintType string

const (
	// FPMorgan is the circular Morgan / ECFP fingerprint (radius 2 ≈ ECFP4).
	FPMorgan FingerprintType = "morgan"
)

// IsValid reports whether t is a supported fingerprint type.
func (t FingerprintType) IsValid() bool {
	return t == FPMorgan
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranking report
// ─────────────────────────────────────────────────────────────────────────────

// ScoreDTO is one entry of a ranked list.
type ScoreDTO struct {
	Rank   int     `json:"rank"` // 0 is the prepended query
	ID     string  `json:"id"`
	SMILES string  `json:"smiles"`
	Score  float64 `json:"score"`
	Class  string  `json:"class,omitempty"`
	Legend string  `json:"legend"`
}

// FingerprintParamsDTO records how fingerprints were computed.
type FingerprintParamsDTO struct {
	Type    FingerprintType `json:"type"`
	Radius  int             `json:"radius"`
	NumBits int             `json:"num_bits"`
}

// SkippedLineDTO describes a dataset line that did not produce a molecule.
type SkippedLineDTO struct {
	Line   int    `json:"line"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// LibraryStatsDTO summarises the parsed dataset.
type LibraryStatsDTO struct {
	Source     string           `json:"source"`
	Parsed     int              `json:"parsed"`
	Skipped    int              `json:"skipped"`
	Duplicates int              `json:"duplicates"`
	SkippedAt  []SkippedLineDTO `json:"skipped_lines,omitempty"`
}

// RankingReport is the JSON document describing one similarity run.
type RankingReport struct {
	RunID       common.ID            `json:"run_id"`
	GeneratedAt common.Timestamp     `json:"generated_at"`
	QueryID     string               `json:"query_id"`
	QuerySMILES string               `json:"query_smiles"`
	Metric      string               `json:"metric"`
	Fingerprint FingerprintParamsDTO `json:"fingerprint"`
	Library     LibraryStatsDTO      `json:"library"`
	Top         []ScoreDTO           `json:"top"`
	Bottom      []ScoreDTO           `json:"bottom"`
	Artifacts   map[string]string    `json:"artifacts,omitempty"`
}
