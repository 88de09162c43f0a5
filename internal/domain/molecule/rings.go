package molecule

// perceiveRings marks ring bonds and ring atoms. A bond is a ring bond exactly
// when it is not a bridge of the molecular graph.
func perceiveRings(m *Molecule) {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	type frame struct {
		atom     int
		viaBond  int
		nextEdge int
	}

	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{atom: root, viaBond: -1}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			nbrs := m.adjacency[top.atom]
			if top.nextEdge < len(nbrs) {
				nb := nbrs[top.nextEdge]
				top.nextEdge++
				if nb.Bond == top.viaBond {
					continue
				}
				if disc[nb.Atom] < 0 {
					disc[nb.Atom], low[nb.Atom] = timer, timer
					timer++
					stack = append(stack, frame{atom: nb.Atom, viaBond: nb.Bond})
				} else if disc[nb.Atom] < low[top.atom] {
					low[top.atom] = disc[nb.Atom]
				}
				continue
			}

			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1].atom
			if low[done.atom] < low[parent] {
				low[parent] = low[done.atom]
			}
			if low[done.atom] <= disc[parent] {
				m.Bonds[done.viaBond].InRing = true
			}
		}
	}

	for _, b := range m.Bonds {
		if b.InRing {
			m.Atoms[b.Begin].InRing = true
			m.Atoms[b.End].InRing = true
		}
	}
}

// SmallestRing returns the atoms of the smallest ring through bond, in ring
// order starting at the bond's Begin atom, or nil when the bond is acyclic.
func (m *Molecule) SmallestRing(bond int) []int {
	b := m.Bonds[bond]
	if !b.InRing {
		return nil
	}

	// Breadth-first search from End to Begin that never crosses bond itself.
	prev := make([]int, len(m.Atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[b.End] = -1
	queue := []int{b.End}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b.Begin {
			break
		}
		for _, nb := range m.adjacency[cur] {
			if nb.Bond == bond || prev[nb.Atom] != -2 {
				continue
			}
			prev[nb.Atom] = cur
			queue = append(queue, nb.Atom)
		}
	}
	if prev[b.Begin] == -2 {
		return nil
	}

	var ring []int
	for a := b.Begin; a != -1; a = prev[a] {
		ring = append(ring, a)
	}
	return ring
}

// RingCount returns the cyclomatic number (bonds − atoms + components), which
// equals the number of rings in a smallest set of smallest rings.
func (m *Molecule) RingCount() int {
	return len(m.Bonds) - len(m.Atoms) + len(m.Components())
}
