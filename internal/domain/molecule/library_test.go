package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, smiles string, line int) *MoleculeRecord {
	return &MoleculeRecord{ID: id, SMILES: smiles, Line: line, Molecule: MustParseSMILES(smiles)}
}

func TestLibrary_AddAndGet(t *testing.T) {
	lib := NewLibrary("data/AAAA.smi")

	_, ok := lib.Query()
	assert.False(t, ok)

	assert.True(t, lib.Add(record("mol1", "CCO", 2)))
	assert.True(t, lib.Add(record("mol2", "CCC", 3)))
	assert.Equal(t, 2, lib.Len())
	assert.Equal(t, "mol1", lib.QueryID)

	q, ok := lib.Query()
	require.True(t, ok)
	assert.Equal(t, "CCO", q.SMILES)

	got, ok := lib.Get("mol2")
	require.True(t, ok)
	assert.Equal(t, 3, got.Line)

	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestLibrary_DuplicateKeepsPosition(t *testing.T) {
	lib := NewLibrary("x")
	lib.Add(record("a", "C", 2))
	lib.Add(record("b", "CC", 3))
	assert.False(t, lib.Add(record("a", "CCC", 4)))

	assert.Equal(t, 2, lib.Len())
	assert.Equal(t, 1, lib.Duplicates)
	assert.Equal(t, "a", lib.Records[0].ID)
	assert.Equal(t, "CCC", lib.Records[0].SMILES)
	assert.Equal(t, "a", lib.QueryID)
}

func TestLibrary_Skip(t *testing.T) {
	lib := &Library{}
	lib.Skip(5, "badid", "invalid SMILES")
	assert.Equal(t, []SkippedLine{{Line: 5, ID: "badid", Reason: "invalid SMILES"}}, lib.Skipped)
	assert.True(t, lib.Add(record("z", "C", 6)))
}
