package molecule

// MoleculeRecord is one successfully parsed dataset entry.
type MoleculeRecord struct {
	ID       string
	SMILES   string
	Line     int
	Molecule *Molecule
}

// SkippedLine records a data line that did not yield a molecule.
type SkippedLine struct {
	Line   int
	ID     string
	Reason string
}

// Library is an identifier-keyed collection of parsed molecules that keeps
// the order in which identifiers were first seen.
type Library struct {
	Source     string
	Records    []*MoleculeRecord
	QueryID    string
	Skipped    []SkippedLine
	Duplicates int

	index map[string]int
}

// NewLibrary returns an empty Library.
func NewLibrary(source string) *Library {
	return &Library{Source: source, index: make(map[string]int)}
}

// Add stores rec. The first record added becomes the query. A record whose
// identifier is already present replaces the stored molecule in place, so the
// identifier keeps its original position; Add then reports false.
func (l *Library) Add(rec *MoleculeRecord) bool {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[rec.ID]; ok {
		l.Records[i] = rec
		l.Duplicates++
		return false
	}
	if len(l.Records) == 0 {
		l.QueryID = rec.ID
	}
	l.index[rec.ID] = len(l.Records)
	l.Records = append(l.Records, rec)
	return true
}

// Skip records a data line that produced no molecule.
func (l *Library) Skip(line int, id, reason string) {
	l.Skipped = append(l.Skipped, SkippedLine{Line: line, ID: id, Reason: reason})
}

// Get returns the record for id.
func (l *Library) Get(id string) (*MoleculeRecord, bool) {
	i, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.Records[i], true
}

// Len returns the number of distinct identifiers.
func (l *Library) Len() int {
	return len(l.Records)
}

// Query returns the query record, or false for an empty library.
func (l *Library) Query() (*MoleculeRecord, bool) {
	if len(l.Records) == 0 {
		return nil, false
	}
	return l.Get(l.QueryID)
}
