// Package molecule implements the chemistry used by molsim: a SMILES parser
// producing an in-memory molecular graph, circular (Morgan) fingerprints,
// bit-vector similarity metrics and a 2D layout for depiction.
package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Bond order
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the type of a bond. The numeric values double as the bond codes
// hashed into Morgan invariants.
type BondOrder int

const (
	BondSingle    BondOrder = 1
	BondDouble    BondOrder = 2
	BondTriple    BondOrder = 3
	BondQuadruple BondOrder = 4
	BondAromatic  BondOrder = 12
)

// Valence returns the bond's contribution to an atom's valence, counting an
// aromatic bond as one.
func (o BondOrder) Valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondQuadruple:
		return "quadruple"
	case BondAromatic:
		return "aromatic"
	default:
		return fmt.Sprintf("BondOrder(%d)", int(o))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom, Bond, Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Atom is a heavy atom (or an explicit bracket hydrogen) of a Molecule.
// Implicit hydrogens are counted, not materialised.
type Atom struct {
	Index        int
	Symbol       string
	AtomicNumber int
	Aromatic     bool
	Charge       int
	Isotope      int
	ExplicitH    int // hydrogens written inside brackets
	ImplicitH    int // hydrogens implied by the organic-subset valence rules
	Bracket      bool
	Chirality    string
	MapClass     int
	InRing       bool
}

// TotalH returns the number of hydrogens attached to the atom that are not
// themselves graph atoms.
func (a *Atom) TotalH() int {
	return a.ExplicitH + a.ImplicitH
}

// Bond connects atoms Begin and End.
type Bond struct {
	Index    int
	Begin    int
	End      int
	Order    BondOrder
	InRing   bool
	implicit bool // order was not written in the SMILES
}

// Neighbor is an adjacent atom together with the bond that reaches it.
type Neighbor struct {
	Atom int
	Bond int
}

// Molecule is the in-memory molecular graph produced by ParseSMILES. It is
// not modified after parsing.
type Molecule struct {
	SMILES string
	Atoms  []*Atom
	Bonds  []*Bond

	adjacency [][]Neighbor
}

func newMolecule(smiles string) *Molecule {
	return &Molecule{SMILES: smiles}
}

func (m *Molecule) addAtom(a *Atom) int {
	a.Index = len(m.Atoms)
	m.Atoms = append(m.Atoms, a)
	m.adjacency = append(m.adjacency, nil)
	return a.Index
}

func (m *Molecule) addBond(begin, end int, order BondOrder, implicit bool) *Bond {
	b := &Bond{Index: len(m.Bonds), Begin: begin, End: end, Order: order, implicit: implicit}
	m.Bonds = append(m.Bonds, b)
	m.adjacency[begin] = append(m.adjacency[begin], Neighbor{Atom: end, Bond: b.Index})
	m.adjacency[end] = append(m.adjacency[end], Neighbor{Atom: begin, Bond: b.Index})
	return b
}

// NumAtoms returns the number of graph atoms.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }

// Neighbors returns the atoms adjacent to atom i in bond order of appearance.
// The returned slice must not be modified.
func (m *Molecule) Neighbors(i int) []Neighbor {
	return m.adjacency[i]
}

// Degree returns the number of explicit graph neighbours of atom i.
func (m *Molecule) Degree(i int) int {
	return len(m.adjacency[i])
}

// TotalDegree returns the degree of atom i including its hydrogens.
func (m *Molecule) TotalDegree(i int) int {
	return len(m.adjacency[i]) + m.Atoms[i].TotalH()
}

// BondBetween returns the bond joining atoms a and b, or nil.
func (m *Molecule) BondBetween(a, b int) *Bond {
	for _, n := range m.adjacency[a] {
		if n.Atom == b {
			return m.Bonds[n.Bond]
		}
	}
	return nil
}

// bondValence sums the valence contributions of the bonds of atom i.
func (m *Molecule) bondValence(i int) int {
	sum := 0
	for _, n := range m.adjacency[i] {
		sum += m.Bonds[n.Bond].Order.Valence()
	}
	return sum
}

// Components partitions the atoms into connected components, each listed in
// ascending index order. Components are ordered by their lowest atom index.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var out [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, n := range m.adjacency[cur] {
				if !seen[n.Atom] {
					seen[n.Atom] = true
					stack = append(stack, n.Atom)
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

// Formula returns the molecular formula in Hill order: C, then H, then the
// remaining elements alphabetically. Without carbon every element, H included,
// is alphabetical. A net charge is appended as "+", "2-", etc.
func (m *Molecule) Formula() string {
	counts := map[string]int{}
	charge := 0
	for _, a := range m.Atoms {
		counts[a.Symbol]++
		if h := a.TotalH(); h > 0 {
			counts["H"] += h
		}
		charge += a.Charge
	}

	var b strings.Builder
	write := func(sym string) {
		n := counts[sym]
		if n == 0 {
			return
		}
		b.WriteString(sym)
		if n > 1 {
			fmt.Fprintf(&b, "%d", n)
		}
		delete(counts, sym)
	}

	if counts["C"] > 0 {
		write("C")
		write("H")
	}
	rest := make([]string, 0, len(counts))
	for sym := range counts {
		rest = append(rest, sym)
	}
	sort.Strings(rest)
	for _, sym := range rest {
		write(sym)
	}

	switch {
	case charge == 1:
		b.WriteString("+")
	case charge == -1:
		b.WriteString("-")
	case charge > 1:
		fmt.Fprintf(&b, "%d+", charge)
	case charge < -1:
		fmt.Fprintf(&b, "%d-", -charge)
	}
	return b.String()
}
