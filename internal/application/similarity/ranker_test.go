package similarity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molsim/internal/domain/molecule"
	"github.com/turtacn/molsim/pkg/errors"
	mtypes "github.com/turtacn/molsim/pkg/types/molecule"
)

func candidate(id string, numBits int, on ...int) Candidate {
	fp := molecule.NewFingerprint(mtypes.FPMorgan, 2, numBits)
	for _, i := range on {
		fp.SetBit(i)
	}
	return Candidate{Record: &molecule.MoleculeRecord{ID: id, SMILES: "C"}, Fingerprint: fp}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID()
	}
	return out
}

func newTanimotoRanker(t *testing.T, n int) *Ranker {
	t.Helper()
	r, err := NewRanker(&molecule.TanimotoCalculator{}, n)
	require.NoError(t, err)
	return r
}

func TestRanker_OrderAndTies(t *testing.T) {
	pool := []Candidate{
		candidate("q", 16, 0, 1, 2, 3),
		candidate("a", 16, 0, 1, 2, 3),
		candidate("b", 16, 0, 1),
		candidate("c", 16),
		candidate("d", 16, 0, 1),
		candidate("e", 16, 4),
	}

	r, err := newTanimotoRanker(t, 3).Rank("q", pool)
	require.NoError(t, err)

	assert.Equal(t, molecule.MetricTanimoto, r.Metric)
	assert.Equal(t, "q", r.Query.ID())
	assert.Equal(t, 1.0, r.Query.Score)
	assert.Equal(t, []string{"q", "a", "b", "c", "d", "e"}, ids(r.Scores))

	assert.Equal(t, []string{"q", "q", "a", "b"}, ids(r.Top))
	assert.Equal(t, []string{"q", "c", "e", "b"}, ids(r.Bottom))
	assert.Equal(t, 0.5, r.Top[3].Score)
	assert.Equal(t, 0.0, r.Bottom[1].Score)
}

func TestRanker_ListsHaveTopNPlusQuery(t *testing.T) {
	pool := make([]Candidate, 30)
	for i := range pool {
		pool[i] = candidate(fmt.Sprintf("m%02d", i), 64, i, i+1, i+2)
	}

	r, err := newTanimotoRanker(t, DefaultTopN).Rank("m00", pool)
	require.NoError(t, err)
	assert.Len(t, r.Top, 21)
	assert.Len(t, r.Bottom, 21)
	assert.Equal(t, "m00", r.Top[0].ID())
	assert.Equal(t, "m00", r.Top[1].ID())
	assert.Equal(t, "m00", r.Bottom[0].ID())

	for i := 2; i < len(r.Top); i++ {
		assert.GreaterOrEqual(t, r.Top[i-1].Score, r.Top[i].Score)
	}
	for i := 2; i < len(r.Bottom); i++ {
		assert.LessOrEqual(t, r.Bottom[i-1].Score, r.Bottom[i].Score)
	}
}

func TestRanker_SmallPool(t *testing.T) {
	pool := []Candidate{candidate("only", 8, 1)}
	r, err := newTanimotoRanker(t, 20).Rank("only", pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"only", "only"}, ids(r.Top))
	assert.Equal(t, []string{"only", "only"}, ids(r.Bottom))
}

func TestRanker_EmptyQueryFingerprint(t *testing.T) {
	pool := []Candidate{candidate("q", 8), candidate("a", 8, 1)}
	r, err := newTanimotoRanker(t, 20).Rank("q", pool)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Query.Score)
	assert.Equal(t, "q - 0.000000", r.Query.Legend())
}

func TestRanker_Errors(t *testing.T) {
	r := newTanimotoRanker(t, 20)

	_, err := r.Rank("q", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyLibrary))

	_, err = r.Rank("missing", []Candidate{candidate("q", 8, 1)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeNotFound))

	_, err = r.Rank("q", []Candidate{candidate("q", 8, 1), candidate("x", 16, 1)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSimilaritySearchFailed))
}

func TestNewRanker_Validation(t *testing.T) {
	_, err := NewRanker(nil, 20)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	_, err = NewRanker(&molecule.TanimotoCalculator{}, 0)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.Contains(t, err.Error(), "top_n=0")
}

func TestRanker_MorganToyInput(t *testing.T) {
	gen := molecule.NewMorganGenerator(2, 2048)
	var pool []Candidate
	for _, rec := range []struct{ id, smi string }{{"mol1", "CCO"}, {"mol2", "CCC"}} {
		mol := molecule.MustParseSMILES(rec.smi)
		fp, err := gen.Generate(mol)
		require.NoError(t, err)
		pool = append(pool, Candidate{
			Record:      &molecule.MoleculeRecord{ID: rec.id, SMILES: rec.smi, Molecule: mol},
			Fingerprint: fp,
		})
	}

	first, err := newTanimotoRanker(t, 20).Rank("mol1", pool)
	require.NoError(t, err)
	second, err := newTanimotoRanker(t, 20).Rank("mol1", pool)
	require.NoError(t, err)

	assert.Equal(t, 1.0, first.Scores[0].Score)
	assert.Greater(t, first.Scores[1].Score, 0.0)
	assert.Less(t, first.Scores[1].Score, 1.0)
	assert.Equal(t, first.Scores[1].Score, second.Scores[1].Score)
	assert.Equal(t, []string{"mol1", "mol1", "mol2"}, ids(first.Top))
	assert.Equal(t, []string{"mol1", "mol2", "mol1"}, ids(first.Bottom))
}

func TestFormatLegend(t *testing.T) {
	assert.Equal(t, "ZINC000001 - 1.000000", FormatLegend("ZINC000001", 1))
	assert.Equal(t, "x - 0.333333", FormatLegend("x", 1.0/3))
	assert.Equal(t, "x - 0.123457", FormatLegend("x", 0.1234567))
}
