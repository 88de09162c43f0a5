package molecule

import (
	"strings"

	"github.com/turtacn/molsim/pkg/errors"
)

var bondSymbols = map[byte]BondOrder{
	'-':  BondSingle,
	'=':  BondDouble,
	'#':  BondTriple,
	'$':  BondQuadruple,
	':':  BondAromatic,
	'/':  BondSingle,
	'\\': BondSingle,
}

var chiralClasses = map[string]bool{"TH": true, "AL": true, "SP": true, "TB": true, "OH": true}

type openRing struct {
	atom     int
	order    BondOrder
	explicit bool
	pos      int
}

type smilesParser struct {
	src      string
	pos      int
	mol      *Molecule
	prev     int
	bond     BondOrder
	hasBond  bool
	branches []int
	rings    map[int]openRing
}

// ParseSMILES parses a SMILES string into a Molecule. It supports the organic
// subset, bracket atoms (isotope, chirality, hydrogen count, charge, atom
// class), all bond symbols, branches, ring closures (including %nn) and
// disconnected fragments. Implicit hydrogens are derived from the default
// valences of the organic subset.
//
// Errors carry code MOL_001 for syntax problems and MOL_002 when an atom
// exceeds every valence its element allows.
func ParseSMILES(smiles string) (*Molecule, error) {
	src := strings.TrimSpace(smiles)
	if src == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}

	p := &smilesParser{
		src:   src,
		mol:   newMolecule(src),
		prev:  -1,
		rings: make(map[int]openRing),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}

	perceiveRings(p.mol)

	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

// MustParseSMILES is ParseSMILES that panics on error. Intended for tests and
// package-level fixtures.
func MustParseSMILES(smiles string) *Molecule {
	m, err := ParseSMILES(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) errorf(format string, args ...interface{}) error {
	return errors.Errorf(errors.ErrCodeMoleculeInvalidSMILES, format, args...).
		WithDetail(p.src)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errorf("branch opened before any atom at position %d", p.pos)
			}
			if p.hasBond {
				return p.errorf("bond symbol before branch at position %d", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.pos++

		case c == ')':
			if len(p.branches) == 0 {
				return p.errorf("unmatched ')' at position %d", p.pos)
			}
			if p.hasBond {
				return p.errorf("dangling bond at position %d", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++

		case bondSymbols[c] != 0:
			if p.hasBond {
				return p.errorf("consecutive bond symbols at position %d", p.pos)
			}
			p.bond = bondSymbols[c]
			p.hasBond = true
			p.pos++

		case c == '.':
			if p.hasBond {
				return p.errorf("dangling bond at position %d", p.pos)
			}
			p.prev = -1
			p.pos++

		case c >= '0' && c <= '9':
			start := p.pos
			p.pos++
			if err := p.ringClosure(int(c-'0'), start); err != nil {
				return err
			}

		case c == '%':
			start := p.pos
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.errorf("'%%' must be followed by two digits at position %d", p.pos)
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			p.pos += 3
			if err := p.ringClosure(n, start); err != nil {
				return err
			}

		case c == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.attach(atom); err != nil {
				return err
			}

		default:
			atom, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.attach(atom); err != nil {
				return err
			}
		}
	}

	if p.hasBond {
		return p.errorf("dangling bond at end of SMILES")
	}
	if len(p.branches) > 0 {
		return p.errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		first := -1
		for n, r := range p.rings {
			if first < 0 || r.pos < p.rings[first].pos {
				first = n
			}
		}
		return p.errorf("unclosed ring %d opened at position %d", first, p.rings[first].pos)
	}
	if len(p.mol.Atoms) == 0 {
		return p.errorf("no atoms")
	}
	return nil
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) attach(atom *Atom) error {
	if p.prev < 0 && p.hasBond {
		return p.errorf("bond without preceding atom before position %d", p.pos)
	}
	idx := p.mol.addAtom(atom)
	if p.prev >= 0 {
		if p.hasBond {
			p.mol.addBond(p.prev, idx, p.bond, false)
		} else {
			p.mol.addBond(p.prev, idx, p.defaultOrder(p.prev, idx), true)
		}
	}
	p.hasBond = false
	p.prev = idx
	return nil
}

func (p *smilesParser) ringClosure(n, at int) error {
	if p.prev < 0 {
		return p.errorf("ring closure %d without preceding atom at position %d", n, at)
	}

	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = openRing{atom: p.prev, order: p.bond, explicit: p.hasBond, pos: at}
		p.hasBond = false
		return nil
	}
	delete(p.rings, n)

	if open.atom == p.prev {
		return p.errorf("ring closure %d bonds an atom to itself", n)
	}
	if p.mol.BondBetween(open.atom, p.prev) != nil {
		return p.errorf("ring closure %d duplicates an existing bond", n)
	}

	switch {
	case p.hasBond && open.explicit && p.bond != open.order:
		return p.errorf("conflicting bond orders on ring closure %d", n)
	case p.hasBond:
		p.mol.addBond(open.atom, p.prev, p.bond, false)
	case open.explicit:
		p.mol.addBond(open.atom, p.prev, open.order, false)
	default:
		p.mol.addBond(open.atom, p.prev, p.defaultOrder(open.atom, p.prev), true)
	}
	p.hasBond = false
	return nil
}

func (p *smilesParser) organicAtom() (*Atom, error) {
	rest := p.src[p.pos:]
	for _, two := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, two) {
			p.pos += 2
			z, _ := AtomicNumber(two)
			return &Atom{Symbol: two, AtomicNumber: z}, nil
		}
	}

	c := rest[0]
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		sym := string(c)
		z, _ := AtomicNumber(sym)
		return &Atom{Symbol: sym, AtomicNumber: z}, nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		sym := aromaticSymbols[string(c)]
		z, _ := AtomicNumber(sym)
		return &Atom{Symbol: sym, AtomicNumber: z, Aromatic: true}, nil
	case '*':
		p.pos++
		return &Atom{Symbol: "*"}, nil
	}
	return nil, p.errorf("unexpected character %q at position %d", c, p.pos)
}

func (p *smilesParser) bracketAtom() (*Atom, error) {
	start := p.pos
	end := strings.IndexByte(p.src[start:], ']')
	if end < 0 {
		return nil, p.errorf("unclosed bracket atom at position %d", start)
	}
	body := p.src[start+1 : start+end]
	p.pos = start + end + 1

	atom := &Atom{Bracket: true}
	i := 0

	for i < len(body) && isDigit(body[i]) {
		atom.Isotope = atom.Isotope*10 + int(body[i]-'0')
		i++
	}

	if i >= len(body) {
		return nil, p.errorf("bracket atom without element at position %d", start)
	}
	switch c := body[i]; {
	case c == '*':
		atom.Symbol = "*"
		i++
	case c >= 'a' && c <= 'z':
		if i+1 < len(body) {
			if sym, ok := aromaticSymbols[body[i:i+2]]; ok {
				atom.Symbol, atom.Aromatic = sym, true
				i += 2
				break
			}
		}
		sym, ok := aromaticSymbols[body[i:i+1]]
		if !ok {
			return nil, p.errorf("unknown aromatic element %q at position %d", body[i:i+1], start)
		}
		atom.Symbol, atom.Aromatic = sym, true
		i++
	case c >= 'A' && c <= 'Z':
		sym := body[i : i+1]
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' {
			if _, ok := AtomicNumber(body[i : i+2]); ok {
				sym = body[i : i+2]
			}
		}
		if _, ok := AtomicNumber(sym); !ok {
			return nil, p.errorf("unknown element %q at position %d", sym, start)
		}
		atom.Symbol = sym
		i += len(sym)
	default:
		return nil, p.errorf("unexpected %q in bracket atom at position %d", c, start)
	}
	atom.AtomicNumber, _ = AtomicNumber(atom.Symbol)

	if i < len(body) && body[i] == '@' {
		j := i + 1
		if j < len(body) && body[j] == '@' {
			j++
		} else if j+2 < len(body) && chiralClasses[body[j:j+2]] && isDigit(body[j+2]) {
			j += 2
			for j < len(body) && isDigit(body[j]) {
				j++
			}
		}
		atom.Chirality = body[i:j]
		i = j
	}

	if i < len(body) && body[i] == 'H' {
		i++
		atom.ExplicitH = 1
		if i < len(body) && isDigit(body[i]) {
			atom.ExplicitH = 0
			for i < len(body) && isDigit(body[i]) {
				atom.ExplicitH = atom.ExplicitH*10 + int(body[i]-'0')
				i++
			}
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := body[i]
		i++
		magnitude := 1
		if i < len(body) && isDigit(body[i]) {
			magnitude = 0
			for i < len(body) && isDigit(body[i]) {
				magnitude = magnitude*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == sign {
				magnitude++
				i++
			}
		}
		if sign == '-' {
			magnitude = -magnitude
		}
		atom.Charge = magnitude
	}

	if i < len(body) && body[i] == ':' {
		i++
		if i >= len(body) || !isDigit(body[i]) {
			return nil, p.errorf("atom class requires digits at position %d", start)
		}
		for i < len(body) && isDigit(body[i]) {
			atom.MapClass = atom.MapClass*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return nil, p.errorf("unexpected %q in bracket atom at position %d", body[i], start)
	}
	return atom, nil
}

// finish runs after ring perception: aromatic flags are checked against ring
// membership, implicit aromatic bonds outside rings become single bonds,
// valences are checked, implicit hydrogen counts are assigned and every
// aromatic system must have a Kekulé structure.
func (p *smilesParser) finish() error {
	m := p.mol

	for _, b := range m.Bonds {
		if b.implicit && b.Order == BondAromatic && !b.InRing {
			b.Order = BondSingle
		}
	}

	for _, a := range m.Atoms {
		if a.Aromatic && !a.InRing {
			return p.errorf("non-ring atom %d marked aromatic", a.Index)
		}
	}

	for _, a := range m.Atoms {
		if a.Symbol == "*" {
			continue
		}
		if a.Bracket {
			if err := p.checkBracketValence(a); err != nil {
				return err
			}
			continue
		}
		sum := m.bondValence(a.Index)
		valence, ok := lowestValence(a.Symbol, sum)
		if !ok {
			return p.valenceError(a, sum)
		}
		h := valence - sum
		if a.Aromatic {
			h--
		}
		if h < 0 {
			h = 0
		}
		a.ImplicitH = h
	}

	if !p.kekulizable() {
		return p.errorf("can't kekulize aromatic system")
	}
	return nil
}

func (p *smilesParser) valenceError(a *Atom, valence int) error {
	return errors.Errorf(errors.ErrCodeMoleculeInvalidValence,
		"explicit valence %d for atom %d (%s) is greater than permitted", valence, a.Index, a.Symbol).
		WithDetail(p.src)
}

// checkBracketValence rejects bracket atoms whose bonds and written hydrogens
// exceed the largest valence of the element. Elements without a valence rule
// are accepted as written.
func (p *smilesParser) checkBracketValence(a *Atom) error {
	vals := allowedValences(a.Symbol, a.Charge)
	if vals == nil {
		return nil
	}
	total := p.mol.bondValence(a.Index) + a.ExplicitH
	for _, v := range vals {
		if v >= total {
			return nil
		}
	}
	return p.valenceError(a, total)
}

// kekulizable reports whether the aromatic bonds admit a Kekulé structure:
// every aromatic atom with a free valence must take exactly one double bond
// to an aromatic neighbour. Pyrrole-type atoms ([nH], o, s) and atoms with an
// exocyclic double bond have no free valence. Wildcards and elements without
// a valence rule may take a double bond but need not.
func (p *smilesParser) kekulizable() bool {
	m := p.mol
	k := &kekuleState{
		mol:  m,
		need: make([]bool, len(m.Atoms)),
		open: make([]bool, len(m.Atoms)),
	}
	aromatic := false
	for _, a := range m.Atoms {
		if !a.Aromatic {
			continue
		}
		aromatic = true
		vals := allowedValences(a.Symbol, a.Charge)
		if a.Symbol == "*" || vals == nil {
			k.open[a.Index] = true
			continue
		}
		total := m.bondValence(a.Index) + a.ExplicitH
		for _, v := range vals {
			if v >= total {
				k.need[a.Index] = v > total
				break
			}
		}
		k.open[a.Index] = k.need[a.Index]
	}
	if !aromatic {
		return true
	}
	return k.solve()
}

type kekuleState struct {
	mol  *Molecule
	need []bool // must take a double bond
	open []bool // may still take a double bond
}

func (k *kekuleState) candidates(i int) []int {
	var out []int
	for _, n := range k.mol.Neighbors(i) {
		if k.open[n.Atom] && k.mol.Bonds[n.Bond].Order == BondAromatic {
			out = append(out, n.Atom)
		}
	}
	return out
}

// solve assigns double bonds depth first, always branching on the unmatched
// atom with the fewest open neighbours.
func (k *kekuleState) solve() bool {
	best, bestN := -1, 0
	for i, need := range k.need {
		if !need || !k.open[i] {
			continue
		}
		n := len(k.candidates(i))
		if n == 0 {
			return false
		}
		if best < 0 || n < bestN {
			best, bestN = i, n
		}
	}
	if best < 0 {
		return true
	}

	k.open[best] = false
	for _, j := range k.candidates(best) {
		k.open[j] = false
		if k.solve() {
			return true
		}
		k.open[j] = true
	}
	k.open[best] = true
	return false
}

// allowedValences returns the ascending valences of symbol carrying charge. A
// charged atom takes the valences of its isoelectronic neutral element, so N+
// behaves like C and O- like F. It returns nil when no rule is known.
func allowedValences(symbol string, charge int) []int {
	z, ok := AtomicNumber(symbol)
	if !ok || z == 0 {
		return nil
	}
	if charge != 0 {
		z -= charge
		if z <= 0 || z >= len(elementSymbols) {
			return nil
		}
		symbol = ElementSymbol(z)
	}
	if v, ok := organicValences[symbol]; ok {
		return v
	}
	return bracketValences[symbol]
}

// lowestValence returns the smallest allowed valence of symbol that is not
// below sum.
func lowestValence(symbol string, sum int) (int, bool) {
	for _, v := range organicValences[symbol] {
		if v >= sum {
			return v, true
		}
	}
	return 0, false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
