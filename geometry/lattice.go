package geometry

// LatticePoint addresses the points created by refining a cell once. Each
// coordinate is 0 or 2 at the ends of the parent cell along that axis and 1
// at its midpoint.
type LatticePoint [3]int

// NumLatticePoints returns 3^dim
func (o *Info) NumLatticePoints() int {
	n := 1
	for d := 0; d < o.Dim; d++ {
		n *= 3
	}
	return n
}

// LatticePointAt decodes a lattice index, axis 0 varying fastest
func (o *Info) LatticePointAt(index int) (l LatticePoint) {
	for d := 0; d < o.Dim; d++ {
		l[d] = index % 3
		index /= 3
	}
	return
}

// LatticeIndex encodes a lattice point
func (o *Info) LatticeIndex(l LatticePoint) int {
	index, stride := 0, 1
	for d := 0; d < o.Dim; d++ {
		index += l[d] * stride
		stride *= 3
	}
	return index
}

// ChildLatticePoint returns the lattice point at local vertex v of child c
func (o *Info) ChildLatticePoint(c, v int) (l LatticePoint) {
	for d := 0; d < o.Dim; d++ {
		l[d] = (c>>d)&1 + (v>>d)&1
	}
	return
}

// LatticeOrder is the dimension of the sub-object whose centre is l:
// 0 for a vertex, 1 for a line midpoint, 2 for a quad centre, 3 for a hex centre
func (o *Info) LatticeOrder(l LatticePoint) (order int) {
	for d := 0; d < o.Dim; d++ {
		if l[d] == 1 {
			order++
		}
	}
	return
}

// LatticeCorners returns the local vertices spanning the sub-object centred at
// l, in increasing (lexicographic) order
func (o *Info) LatticeCorners(l LatticePoint) []int {
	corners := make([]int, 0, 1<<o.LatticeOrder(l))
	for v := 0; v < o.VerticesPerCell; v++ {
		match := true
		for d := 0; d < o.Dim; d++ {
			if l[d] != 1 && (v>>d)&1 != l[d]/2 {
				match = false
				break
			}
		}
		if match {
			corners = append(corners, v)
		}
	}
	return corners
}

// LatticeSubPoints returns the lattice points of a given order lying on the
// closure of the sub-object centred at l
func (o *Info) LatticeSubPoints(l LatticePoint, order int) (points []LatticePoint) {
	for i := 0; i < o.NumLatticePoints(); i++ {
		q := o.LatticePointAt(i)
		if o.LatticeOrder(q) != order {
			continue
		}
		inside := true
		for d := 0; d < o.Dim; d++ {
			if l[d] != 1 && q[d] != l[d] {
				inside = false
				break
			}
		}
		if inside {
			points = append(points, q)
		}
	}
	return
}

// LatticeByOrder groups all lattice points by their order, lowest first
func (o *Info) LatticeByOrder() [][]LatticePoint {
	groups := make([][]LatticePoint, o.Dim+1)
	for i := 0; i < o.NumLatticePoints(); i++ {
		l := o.LatticePointAt(i)
		k := o.LatticeOrder(l)
		groups[k] = append(groups[k], l)
	}
	return groups
}

// EnclosingObject returns the smallest sub-object of the parent cell that
// contains all the given lattice points, as its order and corner vertices
func (o *Info) EnclosingObject(points []LatticePoint) (order int, corners []int) {
	var l LatticePoint
	for d := 0; d < o.Dim; d++ {
		lo, hi := points[0][d], points[0][d]
		for _, p := range points[1:] {
			lo = min(lo, p[d])
			hi = max(hi, p[d])
		}
		if lo != hi || lo == 1 {
			l[d] = 1
		} else {
			l[d] = lo
		}
	}
	return o.LatticeOrder(l), o.LatticeCorners(l)
}

// CoonsWeight is the weight of a sub-object centre of order sub in the
// transfinite interpolation of the centre of an object of order obj
func CoonsWeight(obj, sub int) float64 {
	w := 1.0 / float64(int(1)<<(obj-sub))
	if (obj-1-sub)%2 != 0 {
		w = -w
	}
	return w
}
