// Package similarity ranks a molecule library against its query molecule and
// orchestrates the end-to-end similarity run.
package similarity

import (
	"fmt"
	"sort"

	"github.com/turtacn/molsim/internal/domain/molecule"
	"github.com/turtacn/molsim/pkg/errors"
)

// DefaultTopN is the number of ranked entries kept per list.
const DefaultTopN = 20

// Candidate pairs a library record with its fingerprint.
type Candidate struct {
	Record      *molecule.MoleculeRecord
	Fingerprint *molecule.Fingerprint
}

// Entry is a scored library record.
type Entry struct {
	Record *molecule.MoleculeRecord
	Score  float64
}

// ID returns the record identifier.
func (e Entry) ID() string { return e.Record.ID }

// Legend returns the caption drawn under the molecule.
func (e Entry) Legend() string { return FormatLegend(e.Record.ID, e.Score) }

// FormatLegend renders "<id> - <score>" with six decimal places.
func FormatLegend(id string, score float64) string {
	return fmt.Sprintf("%s - %f", id, score)
}

// Ranking is the outcome of Ranker.Rank. Top and Bottom both start with the
// query entry followed by at most TopN ranked entries. The query stays in the
// ranked pool, so with a non-empty fingerprint it normally also appears at
// Top[1] with a score of 1.
type Ranking struct {
	Metric molecule.SimilarityMetric
	Query  Entry
	Scores []Entry // every candidate, in library order
	Top    []Entry
	Bottom []Entry
}

// Ranker scores candidates against a query with a similarity calculator.
type Ranker struct {
	calc molecule.SimilarityCalculator
	topN int
}

// NewRanker returns a Ranker that keeps topN entries per list.
func NewRanker(calc molecule.SimilarityCalculator, topN int) (*Ranker, error) {
	if calc == nil {
		return nil, errors.InvalidParam("similarity calculator is required")
	}
	if topN < 1 {
		return nil, errors.InvalidParam("top N must be positive").WithDetail(fmt.Sprintf("top_n=%d", topN))
	}
	return &Ranker{calc: calc, topN: topN}, nil
}

// Rank scores every candidate, the query included, against the candidate
// identified by queryID. Both lists are ordered with a stable sort over pool
// order, so ties keep the earlier entry first.
func (r *Ranker) Rank(queryID string, pool []Candidate) (*Ranking, error) {
	if len(pool) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyLibrary, "no molecules to rank")
	}

	var query *Candidate
	for i := range pool {
		if pool[i].Record.ID == queryID {
			query = &pool[i]
			break
		}
	}
	if query == nil {
		return nil, errors.New(errors.ErrCodeMoleculeNotFound, "query molecule not in pool").WithDetail(queryID)
	}

	scores := make([]Entry, len(pool))
	var queryEntry Entry
	for i, c := range pool {
		s, err := r.calc.Calculate(query.Fingerprint, c.Fingerprint)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSimilaritySearchFailed, "failed to score molecule").WithDetail(c.Record.ID)
		}
		scores[i] = Entry{Record: c.Record, Score: s}
		if c.Record == query.Record {
			queryEntry = scores[i]
		}
	}

	desc := append([]Entry(nil), scores...)
	sort.SliceStable(desc, func(a, b int) bool { return desc[a].Score > desc[b].Score })
	asc := append([]Entry(nil), scores...)
	sort.SliceStable(asc, func(a, b int) bool { return asc[a].Score < asc[b].Score })

	return &Ranking{
		Metric: r.calc.Metric(),
		Query:  queryEntry,
		Scores: scores,
		Top:    withQuery(queryEntry, desc, r.topN),
		Bottom: withQuery(queryEntry, asc, r.topN),
	}, nil
}

func withQuery(q Entry, ranked []Entry, n int) []Entry {
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Entry, 0, n+1)
	out = append(out, q)
	return append(out, ranked[:n]...)
}
