package molecule

import (
	"math"
)

// Point is a 2D coordinate in units of one bond length.
type Point struct {
	X, Y float64
}

const (
	layoutIterations = 400
	layoutTolerance  = 1e-5
	componentGap     = 1.5
)

// Layout computes deterministic 2D depiction coordinates for every atom of
// mol, with bonds of roughly unit length. Each connected component is seeded
// with a breadth-first zigzag placement, relaxed by stress majorization over
// graph distances, rotated onto its principal axis and placed left to right.
// The result is centred on the origin.
func Layout(mol *Molecule) []Point {
	pos := make([]Point, mol.NumAtoms())
	if len(pos) == 0 {
		return pos
	}

	cursor := 0.0
	for _, comp := range mol.Components() {
		seedComponent(mol, comp, pos)
		relaxComponent(mol, comp, pos)
		alignComponent(comp, pos)

		minX, minY, maxX, maxY := bounds(pos, comp)
		dx := cursor - minX
		dy := -(minY + maxY) / 2
		for _, a := range comp {
			pos[a].X += dx
			pos[a].Y += dy
		}
		cursor += (maxX - minX) + componentGap
	}

	minX, minY, maxX, maxY := Bounds(pos)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	for i := range pos {
		pos[i].X -= cx
		pos[i].Y -= cy
	}
	return pos
}

// Bounds returns the bounding box of points.
func Bounds(points []Point) (minX, minY, maxX, maxY float64) {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	return bounds(points, idx)
}

func bounds(points []Point, idx []int) (minX, minY, maxX, maxY float64) {
	if len(idx) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, i := range idx {
		p := points[i]
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// seedComponent places the atoms of comp along a breadth-first tree rooted at
// its lowest atom, fanning children out around the incoming bond direction.
func seedComponent(mol *Molecule, comp []int, pos []Point) {
	root := comp[0]
	placed := map[int]bool{root: true}
	heading := map[int]float64{root: 0}
	depth := map[int]int{root: 0}
	pos[root] = Point{}

	queue := []int{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var children []int
		for _, nb := range mol.Neighbors(cur) {
			if !placed[nb.Atom] {
				children = append(children, nb.Atom)
				placed[nb.Atom] = true
			}
		}
		if len(children) == 0 {
			continue
		}

		angles := make([]float64, len(children))
		switch {
		case cur == root:
			for k := range children {
				angles[k] = 2 * math.Pi * float64(k) / float64(len(children))
			}
		case len(children) == 1:
			turn := math.Pi / 3
			if depth[cur]%2 == 1 {
				turn = -turn
			}
			angles[0] = heading[cur] + turn
		default:
			span := 2 * math.Pi / 3
			if len(children) > 2 {
				span = math.Pi
			}
			for k := range children {
				angles[k] = heading[cur] - span/2 + span*float64(k)/float64(len(children)-1)
			}
		}

		for k, c := range children {
			pos[c] = Point{
				X: pos[cur].X + math.Cos(angles[k]),
				Y: pos[cur].Y + math.Sin(angles[k]),
			}
			heading[c] = angles[k]
			depth[c] = depth[cur] + 1
			queue = append(queue, c)
		}
	}
}

// relaxComponent minimises layout stress with localized majorization updates.
// Target distances follow a zigzag chain: 1 for bonded atoms and √3/2 per bond
// beyond.
func relaxComponent(mol *Molecule, comp []int, pos []Point) {
	n := len(comp)
	if n < 3 {
		return
	}

	local := make(map[int]int, n)
	for i, a := range comp {
		local[a] = i
	}

	dist := make([][]int, n)
	for i, src := range comp {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			dist[i][j] = -1
		}
		dist[i][i] = 0
		queue := []int{src}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range mol.Neighbors(cur) {
				j := local[nb.Atom]
				if dist[i][j] < 0 {
					dist[i][j] = dist[i][local[cur]] + 1
					queue = append(queue, nb.Atom)
				}
			}
		}
	}

	target := func(d int) float64 {
		if d == 1 {
			return 1
		}
		return float64(d) * math.Sqrt(3) / 2
	}

	for iter := 0; iter < layoutIterations; iter++ {
		moved := 0.0
		for i, a := range comp {
			var sx, sy, sw float64
			for j, b := range comp {
				if i == j {
					continue
				}
				t := target(dist[i][j])
				w := 1 / (t * t)
				dx := pos[a].X - pos[b].X
				dy := pos[a].Y - pos[b].Y
				l := math.Hypot(dx, dy)
				if l < 1e-9 {
					// Coincident atoms are pushed apart along a fixed axis.
					dx, dy, l = 1e-3*float64(i-j), 1e-3, math.Hypot(1e-3*float64(i-j), 1e-3)
				}
				sx += w * (pos[b].X + t*dx/l)
				sy += w * (pos[b].Y + t*dy/l)
				sw += w
			}
			nx, ny := sx/sw, sy/sw
			moved += math.Hypot(nx-pos[a].X, ny-pos[a].Y)
			pos[a] = Point{X: nx, Y: ny}
		}
		if moved/float64(n) < layoutTolerance {
			break
		}
	}
}

// alignComponent centres comp and rotates it so that its principal axis is
// horizontal.
func alignComponent(comp []int, pos []Point) {
	var cx, cy float64
	for _, a := range comp {
		cx += pos[a].X
		cy += pos[a].Y
	}
	cx /= float64(len(comp))
	cy /= float64(len(comp))

	var sxx, syy, sxy float64
	for _, a := range comp {
		dx, dy := pos[a].X-cx, pos[a].Y-cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	cos, sin := math.Cos(-theta), math.Sin(-theta)

	for _, a := range comp {
		dx, dy := pos[a].X-cx, pos[a].Y-cy
		pos[a] = Point{X: dx*cos - dy*sin, Y: dx*sin + dy*cos}
	}
}
