package molecule

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/molsim/pkg/errors"
	mtypes "github.com/turtacn/molsim/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is a fixed-length molecular bit vector.
type Fingerprint struct {
	Type    mtypes.FingerprintType
	Radius  int
	NumBits int
	Bits    *bitset.BitSet
}

// NewFingerprint returns an all-zero fingerprint of numBits bits.
func NewFingerprint(fpType mtypes.FingerprintType, radius, numBits int) *Fingerprint {
	return &Fingerprint{
		Type:    fpType,
		Radius:  radius,
		NumBits: numBits,
		Bits:    bitset.New(uint(numBits)),
	}
}

// SetBit sets bit i. Out-of-range indices are ignored.
func (fp *Fingerprint) SetBit(i int) {
	if i < 0 || i >= fp.NumBits {
		return
	}
	fp.Bits.Set(uint(i))
}

// GetBit reports whether bit i is set.
func (fp *Fingerprint) GetBit(i int) bool {
	if i < 0 || i >= fp.NumBits {
		return false
	}
	return fp.Bits.Test(uint(i))
}

// BitCount returns the number of set bits.
func (fp *Fingerprint) BitCount() int {
	return int(fp.Bits.Count())
}

// OnBits returns the indices of the set bits in ascending order.
func (fp *Fingerprint) OnBits() []int {
	out := make([]int, 0, fp.Bits.Count())
	for i, ok := fp.Bits.NextSet(0); ok; i, ok = fp.Bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// Equal reports whether both fingerprints have the same parameters and bits.
func (fp *Fingerprint) Equal(other *Fingerprint) bool {
	if fp == nil || other == nil {
		return fp == other
	}
	return fp.Type == other.Type &&
		fp.Radius == other.Radius &&
		fp.NumBits == other.NumBits &&
		fp.Bits.Equal(other.Bits)
}

func (fp *Fingerprint) compatible(other *Fingerprint) error {
	if fp == nil || other == nil {
		return errors.New(errors.ErrCodeSimilaritySearchFailed, "nil fingerprint")
	}
	if fp.Type != other.Type || fp.NumBits != other.NumBits {
		return errors.Errorf(errors.ErrCodeSimilaritySearchFailed,
			"incompatible fingerprints: %s/%d vs %s/%d", fp.Type, fp.NumBits, other.Type, other.NumBits)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprinter
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprinter turns a molecule into a fingerprint.
type Fingerprinter interface {
	Generate(mol *Molecule) (*Fingerprint, error)
}

// MorganGenerator computes circular Morgan (ECFP-like) bit-vector
// fingerprints. The zero value is not usable; set NumBits.
type MorganGenerator struct {
	Radius  int
	NumBits int
}

// NewMorganGenerator returns a generator for the given radius and length.
func NewMorganGenerator(radius, numBits int) *MorganGenerator {
	return &MorganGenerator{Radius: radius, NumBits: numBits}
}

type morganEnv struct {
	atom         int
	invariant    uint64
	neighborhood *roaring.Bitmap
	key          string
}

// Generate computes the fingerprint of mol. Every atom contributes its
// initial invariant; each of the following Radius iterations contributes
// the invariant of every atom environment whose bond set has not been seen
// before. An invariant v sets bit v mod NumBits.
func (g *MorganGenerator) Generate(mol *Molecule) (*Fingerprint, error) {
	if mol == nil {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "nil molecule")
	}
	if g.NumBits < 1 {
		return nil, errors.Errorf(errors.ErrCodeFingerprintGenerationFailed, "fingerprint length must be positive, got %d", g.NumBits)
	}
	if g.Radius < 0 {
		return nil, errors.Errorf(errors.ErrCodeFingerprintGenerationFailed, "fingerprint radius must not be negative, got %d", g.Radius)
	}

	fp := NewFingerprint(mtypes.FPMorgan, g.Radius, g.NumBits)
	n := mol.NumAtoms()

	invariants := make([]uint64, n)
	neighborhoods := make([]*roaring.Bitmap, n)
	dead := make([]bool, n)
	for i := 0; i < n; i++ {
		invariants[i] = atomInvariant(mol, i)
		neighborhoods[i] = roaring.New()
		g.set(fp, invariants[i])
	}

	seen := make(map[string]struct{})
	for layer := 1; layer <= g.Radius; layer++ {
		round := make([]morganEnv, 0, n)
		next := make([]uint64, n)
		copy(next, invariants)

		for i := 0; i < n; i++ {
			if dead[i] {
				continue
			}
			nbrs := mol.Neighbors(i)
			if len(nbrs) == 0 {
				dead[i] = true
				continue
			}

			env := neighborhoods[i].Clone()
			pairs := make([][2]uint64, 0, len(nbrs))
			for _, nb := range nbrs {
				env.Add(uint32(nb.Bond))
				env.Or(neighborhoods[nb.Atom])
				pairs = append(pairs, [2]uint64{uint64(mol.Bonds[nb.Bond].Order), invariants[nb.Atom]})
			}
			sort.Slice(pairs, func(a, b int) bool {
				if pairs[a][0] != pairs[b][0] {
					return pairs[a][0] < pairs[b][0]
				}
				return pairs[a][1] < pairs[b][1]
			})

			next[i] = layerInvariant(layer, invariants[i], pairs)
			round = append(round, morganEnv{
				atom:         i,
				invariant:    next[i],
				neighborhood: env,
				key:          bitmapKey(env),
			})
		}

		sort.SliceStable(round, func(a, b int) bool {
			if c := compareBitmaps(round[a].neighborhood, round[b].neighborhood); c != 0 {
				return c < 0
			}
			if round[a].invariant != round[b].invariant {
				return round[a].invariant < round[b].invariant
			}
			return round[a].atom < round[b].atom
		})

		for _, env := range round {
			if _, dup := seen[env.key]; dup {
				dead[env.atom] = true
				continue
			}
			seen[env.key] = struct{}{}
			g.set(fp, env.invariant)
		}

		for _, env := range round {
			neighborhoods[env.atom] = env.neighborhood
		}
		invariants = next
	}

	return fp, nil
}

func (g *MorganGenerator) set(fp *Fingerprint, invariant uint64) {
	fp.Bits.Set(uint(invariant % uint64(g.NumBits)))
}

// atomInvariant hashes the connectivity invariants of atom i: atomic number,
// total degree, hydrogen count, formal charge, isotope and ring membership.
func atomInvariant(mol *Molecule, i int) uint64 {
	a := mol.Atoms[i]
	ring := int64(0)
	if a.InRing {
		ring = 1
	}
	return hashInts(
		int64(a.AtomicNumber),
		int64(mol.TotalDegree(i)),
		int64(a.TotalH()),
		int64(a.Charge),
		int64(a.Isotope),
		ring,
	)
}

func layerInvariant(layer int, prev uint64, pairs [][2]uint64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	write(uint64(layer))
	write(prev)
	for _, p := range pairs {
		write(p[0])
		write(p[1])
	}
	return d.Sum64()
}

func hashInts(vals ...int64) uint64 {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return xxhash.Sum64(buf)
}

func bitmapKey(b *roaring.Bitmap) string {
	var sb strings.Builder
	for _, v := range b.ToArray() {
		fmt.Fprintf(&sb, "%d,", v)
	}
	return sb.String()
}

// compareBitmaps orders bitmaps lexicographically by their sorted members.
func compareBitmaps(a, b *roaring.Bitmap) int {
	x, y := a.ToArray(), b.ToArray()
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(x) < len(y):
		return -1
	case len(x) > len(y):
		return 1
	}
	return 0
}
