// Package render draws molecule grid images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/turtacn/molsim/internal/domain/molecule"
	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molsim/pkg/errors"
)

// Cell is one molecule drawn in a grid together with its caption. A nil
// Molecule leaves the drawing area blank.
type Cell struct {
	Molecule *molecule.Molecule
	Legend   string
}

// Options controls grid geometry.
type Options struct {
	MolsPerRow int
	CellWidth  int
	CellHeight int
	FontSize   float64
}

// DefaultOptions returns a two-column grid of 400×400 cells.
func DefaultOptions() Options {
	return Options{MolsPerRow: 2, CellWidth: 400, CellHeight: 400, FontSize: 14}
}

func (o Options) validate() error {
	if o.MolsPerRow < 1 || o.CellWidth < 1 || o.CellHeight < 1 || o.FontSize <= 0 {
		return errors.Errorf(errors.ErrCodeValidation,
			"invalid grid options: %d per row, %dx%d cells, font %g", o.MolsPerRow, o.CellWidth, o.CellHeight, o.FontSize)
	}
	return nil
}

const (
	cellPadding   = 20.0
	maxBondPixels = 40.0
	bondWidth     = 2.0
	innerOffset   = 0.18
	innerShorten  = 0.15
)

// GridRenderer draws cells row-major into a single PNG. The image is always
// MolsPerRow cells wide and ceil(len(cells)/MolsPerRow) cells tall.
type GridRenderer struct {
	opts       Options
	legendFace font.Face
	atomFace   font.Face
	logger     logging.Logger
}

// NewGridRenderer creates a renderer using the embedded Go Regular font.
func NewGridRenderer(opts Options, log logging.Logger) (*GridRenderer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to load legend font")
	}

	return &GridRenderer{
		opts:       opts,
		legendFace: truetype.NewFace(ttf, &truetype.Options{Size: opts.FontSize, DPI: 72}),
		atomFace:   truetype.NewFace(ttf, &truetype.Options{Size: opts.FontSize + 2, DPI: 72}),
		logger:     log,
	}, nil
}

// Size returns the pixel dimensions of a grid holding n cells.
func (r *GridRenderer) Size(n int) (width, height int) {
	rows := (n + r.opts.MolsPerRow - 1) / r.opts.MolsPerRow
	return r.opts.MolsPerRow * r.opts.CellWidth, rows * r.opts.CellHeight
}

// RenderImage draws cells and returns the image.
func (r *GridRenderer) RenderImage(cells []Cell) (image.Image, error) {
	dc, err := r.draw(cells)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// Render draws cells and returns PNG-encoded bytes.
func (r *GridRenderer) Render(cells []Cell) ([]byte, error) {
	dc, err := r.draw(cells)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to encode PNG")
	}
	return buf.Bytes(), nil
}

func (r *GridRenderer) draw(cells []Cell) (*gg.Context, error) {
	if len(cells) == 0 {
		return nil, errors.New(errors.ErrCodeRenderNoCells, "no molecules to render")
	}

	w, h := r.Size(len(cells))
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	for i, cell := range cells {
		x0 := float64((i % r.opts.MolsPerRow) * r.opts.CellWidth)
		y0 := float64((i / r.opts.MolsPerRow) * r.opts.CellHeight)
		r.drawCell(dc, cell, x0, y0)
	}
	return dc, nil
}

// RenderToFile renders cells to a PNG at path, creating parent directories
// and replacing any existing file. It returns the number of bytes written.
func (r *GridRenderer) RenderToFile(cells []Cell, path string) (int, error) {
	data, err := r.Render(cells)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to create output directory").WithDetail(path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to write image").WithDetail(path)
	}
	r.logger.Debug("grid image written",
		logging.String("path", path),
		logging.Int("cells", len(cells)),
		logging.Int("bytes", len(data)))
	return len(data), nil
}

func (r *GridRenderer) drawCell(dc *gg.Context, cell Cell, x0, y0 float64) {
	cw, ch := float64(r.opts.CellWidth), float64(r.opts.CellHeight)
	legendBand := r.opts.FontSize * 2

	if cell.Legend != "" {
		dc.SetFontFace(r.legendFace)
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(cell.Legend, x0+cw/2, y0+ch-legendBand/2, 0.5, 0.5)
	}
	if cell.Molecule == nil || cell.Molecule.NumAtoms() == 0 {
		return
	}

	area := box{
		x0: x0 + cellPadding,
		y0: y0 + cellPadding,
		x1: x0 + cw - cellPadding,
		y1: y0 + ch - legendBand - cellPadding/2,
	}
	if area.x1 <= area.x0 || area.y1 <= area.y0 {
		return
	}
	r.drawMolecule(dc, cell.Molecule, area)
}

type box struct {
	x0, y0, x1, y1 float64
}

func (r *GridRenderer) drawMolecule(dc *gg.Context, mol *molecule.Molecule, area box) {
	coords := molecule.Layout(mol)
	minX, minY, maxX, maxY := molecule.Bounds(coords)

	// One bond-length margin keeps labels inside the cell.
	spanX, spanY := maxX-minX+1, maxY-minY+1
	scale := math.Min((area.x1-area.x0)/spanX, (area.y1-area.y0)/spanY)
	scale = math.Min(scale, maxBondPixels)

	cx, cy := (area.x0+area.x1)/2, (area.y0+area.y1)/2
	mx, my := (minX+maxX)/2, (minY+maxY)/2
	pts := make([]gg.Point, len(coords))
	for i, p := range coords {
		pts[i] = gg.Point{X: cx + (p.X-mx)*scale, Y: cy - (p.Y-my)*scale}
	}

	dc.SetLineWidth(bondWidth)
	dc.SetLineCapRound()
	for _, b := range mol.Bonds {
		r.drawBond(dc, mol, b, pts, scale)
	}

	dc.SetFontFace(r.atomFace)
	for i, a := range mol.Atoms {
		if !needsLabel(mol, a) {
			continue
		}
		label := atomLabel(a)
		w, h := dc.MeasureString(label)
		dc.SetColor(color.White)
		dc.DrawRectangle(pts[i].X-w/2-2, pts[i].Y-h/2-2, w+4, h+4)
		dc.Fill()
		dc.SetColor(atomColor(a.Symbol))
		dc.DrawStringAnchored(label, pts[i].X, pts[i].Y, 0.5, 0.35)
	}
}

func (r *GridRenderer) drawBond(dc *gg.Context, mol *molecule.Molecule, b *molecule.Bond, pts []gg.Point, scale float64) {
	p1, p2 := pts[b.Begin], pts[b.End]
	c1 := atomColor(mol.Atoms[b.Begin].Symbol)
	c2 := atomColor(mol.Atoms[b.End].Symbol)

	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	length := math.Hypot(dx, dy)
	if length < 1e-6 {
		return
	}
	nx, ny := -dy/length, dx/length
	off := innerOffset * scale

	switch b.Order {
	case molecule.BondDouble, molecule.BondAromatic:
		splitLine(dc, p1, p2, c1, c2)
		if side, ok := ringSide(mol, b, pts, nx, ny); ok {
			q1, q2 := innerSegment(p1, p2, nx*side*off, ny*side*off)
			if b.Order == molecule.BondAromatic {
				dc.SetDash(4, 3)
			}
			splitLine(dc, q1, q2, c1, c2)
			dc.SetDash()
			return
		}
		if b.Order == molecule.BondAromatic {
			dc.SetDash(4, 3)
			q1, q2 := innerSegment(p1, p2, nx*off, ny*off)
			splitLine(dc, q1, q2, c1, c2)
			dc.SetDash()
			return
		}
		// Acyclic double bonds are drawn as two centred strokes.
		h := off / 2
		splitLine(dc, gg.Point{X: p1.X + nx*h, Y: p1.Y + ny*h}, gg.Point{X: p2.X + nx*h, Y: p2.Y + ny*h}, c1, c2)
		splitLine(dc, gg.Point{X: p1.X - nx*h, Y: p1.Y - ny*h}, gg.Point{X: p2.X - nx*h, Y: p2.Y - ny*h}, c1, c2)
	case molecule.BondTriple, molecule.BondQuadruple:
		splitLine(dc, p1, p2, c1, c2)
		for _, s := range []float64{-1, 1} {
			splitLine(dc,
				gg.Point{X: p1.X + nx*off*s, Y: p1.Y + ny*off*s},
				gg.Point{X: p2.X + nx*off*s, Y: p2.Y + ny*off*s}, c1, c2)
		}
	default:
		splitLine(dc, p1, p2, c1, c2)
	}
}

// ringSide returns +1 or -1 depending on which side of the bond the centre of
// its smallest ring lies.
func ringSide(mol *molecule.Molecule, b *molecule.Bond, pts []gg.Point, nx, ny float64) (float64, bool) {
	ring := mol.SmallestRing(b.Index)
	if len(ring) == 0 {
		return 0, false
	}
	var cx, cy float64
	for _, a := range ring {
		cx += pts[a].X
		cy += pts[a].Y
	}
	cx /= float64(len(ring))
	cy /= float64(len(ring))

	mx := (pts[b.Begin].X + pts[b.End].X) / 2
	my := (pts[b.Begin].Y + pts[b.End].Y) / 2
	if (cx-mx)*nx+(cy-my)*ny < 0 {
		return -1, true
	}
	return 1, true
}

func innerSegment(p1, p2 gg.Point, ox, oy float64) (gg.Point, gg.Point) {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	return gg.Point{X: p1.X + dx*innerShorten + ox, Y: p1.Y + dy*innerShorten + oy},
		gg.Point{X: p2.X - dx*innerShorten + ox, Y: p2.Y - dy*innerShorten + oy}
}

// splitLine strokes a segment whose halves take the colours of its end atoms.
func splitLine(dc *gg.Context, p1, p2 gg.Point, c1, c2 color.Color) {
	mid := gg.Point{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
	dc.SetColor(c1)
	dc.DrawLine(p1.X, p1.Y, mid.X, mid.Y)
	dc.Stroke()
	dc.SetColor(c2)
	dc.DrawLine(mid.X, mid.Y, p2.X, p2.Y)
	dc.Stroke()
}

func needsLabel(mol *molecule.Molecule, a *molecule.Atom) bool {
	return a.Symbol != "C" || a.Charge != 0 || a.Isotope != 0 || mol.Degree(a.Index) == 0
}

func atomLabel(a *molecule.Atom) string {
	label := a.Symbol
	if a.Isotope > 0 {
		label = fmt.Sprintf("%d%s", a.Isotope, label)
	}
	switch h := a.TotalH(); {
	case h == 1:
		label += "H"
	case h > 1:
		label += fmt.Sprintf("H%d", h)
	}
	switch {
	case a.Charge == 1:
		label += "+"
	case a.Charge == -1:
		label += "-"
	case a.Charge > 1:
		label += fmt.Sprintf("%d+", a.Charge)
	case a.Charge < -1:
		label += fmt.Sprintf("%d-", -a.Charge)
	}
	return label
}

var cpkColors = map[string]color.RGBA{
	"N":  {R: 48, G: 80, B: 248, A: 255},
	"O":  {R: 230, G: 13, B: 13, A: 255},
	"S":  {R: 200, G: 160, B: 0, A: 255},
	"P":  {R: 255, G: 128, B: 0, A: 255},
	"F":  {R: 0, G: 160, B: 0, A: 255},
	"Cl": {R: 0, G: 160, B: 0, A: 255},
	"Br": {R: 166, G: 41, B: 41, A: 255},
	"I":  {R: 148, G: 0, B: 148, A: 255},
	"B":  {R: 200, G: 120, B: 120, A: 255},
}

func atomColor(symbol string) color.Color {
	if c, ok := cpkColors[symbol]; ok {
		return c
	}
	return color.Black
}
