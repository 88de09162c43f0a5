package molecule

// elementSymbols lists element symbols indexed by atomic number. Index 0 is
// the wildcard atom "*".
var elementSymbols = [...]string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba",
	"La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra",
	"Ac", "Th", "Pa", "U",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for z, sym := range elementSymbols {
		m[sym] = z
	}
	return m
}()

// organicValences holds the allowed valences, ascending, of the SMILES
// organic subset. Atoms written outside brackets must be one of these.
var organicValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// bracketValences covers elements that only appear inside brackets.
var bracketValences = map[string][]int{
	"H":  {1},
	"Si": {4},
	"Ge": {4},
	"As": {3, 5},
	"Se": {2, 4, 6},
	"Te": {2, 4, 6},
}

// aromaticSymbols are the element symbols that may be written in lowercase.
var aromaticSymbols = map[string]string{
	"b":  "B",
	"c":  "C",
	"n":  "N",
	"o":  "O",
	"p":  "P",
	"s":  "S",
	"se": "Se",
	"as": "As",
	"te": "Te",
}

// AtomicNumber returns the atomic number of symbol, or false if the symbol is
// not a known element. The wildcard "*" has atomic number 0.
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumbers[symbol]
	return z, ok
}

// ElementSymbol returns the symbol for atomic number z.
func ElementSymbol(z int) string {
	if z < 0 || z >= len(elementSymbols) {
		return "?"
	}
	return elementSymbols[z]
}
