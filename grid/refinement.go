package grid

import (
	"fmt"

	"github.com/notargets/gridgen/geometry"
	"github.com/notargets/gridgen/manifold"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// RefineGlobal refines every active cell, times times
func (t *Triangulation) RefineGlobal(times int) error {
	if t.Empty() {
		return fmt.Errorf("cannot refine an empty triangulation")
	}
	for i := 0; i < times; i++ {
		for _, c := range t.ActiveCells() {
			c.SetRefineFlag()
		}
		if err := t.ExecuteCoarseningAndRefinement(); err != nil {
			return fmt.Errorf("global refinement step %d: %w", i+1, err)
		}
	}
	return nil
}

// PrepareCoarseningAndRefinement adjusts the flags so that executing them
// keeps active face neighbours within one level of each other. Coarser
// neighbours of cells flagged for refinement get flagged too, and coarsen
// flags survive only on complete sets of siblings whose removal keeps the
// level rule. It reports whether any flag changed.
func (t *Triangulation) PrepareCoarseningAndRefinement() (changed bool) {
	for _, c := range t.cells {
		if c != nil && !c.IsActive() && (c.refine || c.coarsen) {
			c.refine, c.coarsen = false, false
			changed = true
		}
	}

	atVertex := t.activeCellsAtVertices()
	for {
		more := false
		for _, c := range t.cells {
			if c == nil || !c.IsActive() || !c.refine {
				continue
			}
			for f := 0; f < t.info.FacesPerCell; f++ {
				n := c.Neighbor(f)
				if n != nil && n.IsActive() && n.Level < c.Level && !n.refine {
					n.refine, n.coarsen = true, false
					more, changed = true, true
				}
			}
			// in 3D cells meeting only along a line obey the same rule
			if t.info.Dim == 3 {
				for _, n := range t.coarserLineNeighbors(c, atVertex) {
					if !n.refine {
						n.refine, n.coarsen = true, false
						more, changed = true, true
					}
				}
			}
		}
		if !more {
			break
		}
	}

	for _, p := range t.cells {
		if p == nil || p.IsActive() {
			continue
		}
		if t.anyChildFlagged(p) && !t.canCoarsen(p, atVertex) {
			for _, id := range p.Children {
				if t.cells[id].coarsen {
					t.cells[id].coarsen = false
					changed = true
				}
			}
		}
	}
	return
}

func (t *Triangulation) anyChildFlagged(p *Cell) bool {
	for _, id := range p.Children {
		if t.cells[id].coarsen {
			return true
		}
	}
	return false
}

// canCoarsen reports whether the children of p may be removed
func (t *Triangulation) canCoarsen(p *Cell, atVertex map[int][]*Cell) bool {
	for _, id := range p.Children {
		ch := t.cells[id]
		if !ch.IsActive() || !ch.coarsen || ch.refine {
			return false
		}
	}
	for _, id := range p.Children {
		ch := t.cells[id]
		for f := 0; f < t.info.FacesPerCell; f++ {
			if !t.info.ChildOnFace(ch.ChildIndex, f) {
				continue
			}
			n := ch.Neighbor(f)
			if n != nil && n.Level == ch.Level && (n.HasChildren() || n.refine) {
				return false
			}
		}
		if t.info.Dim != 3 {
			continue
		}
		// a finer cell at a corner may touch a line of the restored parent
		for _, v := range ch.Vertices {
			for _, n := range atVertex[v] {
				if n.Parent == p.ID {
					continue
				}
				if n.Level > ch.Level || (n.Level == ch.Level && n.refine) {
					return false
				}
			}
		}
	}
	return true
}

// activeCellsAtVertices maps each vertex to the active cells having it as a
// corner
func (t *Triangulation) activeCellsAtVertices() map[int][]*Cell {
	atVertex := make(map[int][]*Cell)
	for _, c := range t.ActiveCells() {
		for _, v := range c.Vertices {
			atVertex[v] = append(atVertex[v], c)
		}
	}
	return atVertex
}

// lineDepth returns how many times the line (v,u) was halved towards v to
// reach the line (v,w), 0 when (v,w) is not such a part of it
func (t *Triangulation) lineDepth(v, u, w int) int {
	for depth := 1; ; depth++ {
		mid, ok := t.centers[makeKey(v, u)]
		if !ok {
			return 0
		}
		if mid == w {
			return depth
		}
		u = mid
	}
}

// coarserLineNeighbors returns the active cells of a lower level than c
// having a line that contains a line of c
func (t *Triangulation) coarserLineNeighbors(c *Cell, atVertex map[int][]*Cell) []*Cell {
	coarser := false
	for _, v := range c.Vertices {
		for _, n := range atVertex[v] {
			coarser = coarser || n.Level < c.Level
		}
	}
	if !coarser {
		return nil
	}
	var (
		found []*Cell
		seen  = make(map[int]bool)
	)
	t.lineNeighbors(c, atVertex, func(n *Cell, depth int) {
		if n.Level < c.Level && !seen[n.ID] {
			seen[n.ID] = true
			found = append(found, n)
		}
	})
	return found
}

// lineNeighbors calls fn for each active cell n sharing a corner with c whose
// line through that corner was halved depth times to give a line of c
func (t *Triangulation) lineNeighbors(c *Cell, atVertex map[int][]*Cell, fn func(n *Cell, depth int)) {
	for _, lv := range t.info.LineVertices {
		ends := [2]int{c.Vertices[lv[0]], c.Vertices[lv[1]]}
		for e := 0; e < 2; e++ {
			v, w := ends[e], ends[1-e]
			for _, n := range atVertex[v] {
				if n.ID == c.ID {
					continue
				}
				for _, nl := range t.info.LineVertices {
					var u int
					switch v {
					case n.Vertices[nl[0]]:
						u = n.Vertices[nl[1]]
					case n.Vertices[nl[1]]:
						u = n.Vertices[nl[0]]
					default:
						continue
					}
					if depth := t.lineDepth(v, u, w); depth > 0 {
						fn(n, depth)
					}
				}
			}
		}
	}
}

// ExecuteCoarseningAndRefinement applies the refine and coarsen flags of the
// active cells and clears them
func (t *Triangulation) ExecuteCoarseningAndRefinement() error {
	if t.Empty() {
		return fmt.Errorf("cannot refine an empty triangulation")
	}
	t.PrepareCoarseningAndRefinement()

	var coarsened, refined int
	atVertex := t.activeCellsAtVertices()
	for _, p := range t.cells {
		if p != nil && p.HasChildren() && t.canCoarsen(p, atVertex) {
			t.coarsenCell(p)
			coarsened++
		}
	}

	for _, c := range t.ActiveCells() {
		if !c.refine {
			continue
		}
		if err := t.refineCell(c); err != nil {
			return err
		}
		refined++
	}

	for _, c := range t.cells {
		if c != nil {
			c.refine, c.coarsen = false, false
		}
	}
	t.logger.Debug("executed coarsening and refinement",
		zap.Int("refined", refined),
		zap.Int("coarsened", coarsened),
		zap.Int("activeCells", t.NActiveCells()),
		zap.Int("levels", t.NLevels()))
	return nil
}

func (t *Triangulation) coarsenCell(p *Cell) {
	for _, id := range p.Children {
		t.removeFaces(t.cells[id])
		t.cells[id] = nil
	}
	p.Children = nil
}

// refineCell splits c into 2^dim children, creating or reusing the vertices
// at line midpoints, face centres and the cell centre
func (t *Triangulation) refineCell(c *Cell) error {
	info := t.info
	lattice := make([]int, info.NumLatticePoints())
	for order, group := range t.lattice {
		for _, l := range group {
			idx := info.LatticeIndex(l)
			corners := t.globalCorners(c, info.LatticeCorners(l))
			if order == 0 {
				lattice[idx] = corners[0]
				continue
			}
			shared := order < info.Dim
			var k key
			if shared {
				k = makeKey(corners...)
				if v, ok := t.centers[k]; ok {
					lattice[idx] = v
					continue
				}
			}
			mid := c.ManifoldID
			if shared {
				mid = t.objectManifoldID(k)
			}
			p := t.newPoint(l, order, corners, lattice, t.Manifold(mid))
			lattice[idx] = t.addVertex(p)
			if shared {
				t.centers[k] = lattice[idx]
			}
		}
	}

	base := len(t.cells)
	c.Children = make([]int, info.ChildrenPerCell)
	for ch := 0; ch < info.ChildrenPerCell; ch++ {
		verts := make([]int, info.VerticesPerCell)
		for v := range verts {
			verts[v] = lattice[info.LatticeIndex(info.ChildLatticePoint(ch, v))]
		}
		child := &Cell{
			ID:         base + ch,
			Level:      c.Level + 1,
			Vertices:   verts,
			Parent:     c.ID,
			ChildIndex: ch,
			MaterialID: c.MaterialID,
			ManifoldID: c.ManifoldID,
			tria:       t,
		}
		t.cells = append(t.cells, child)
		c.Children[ch] = child.ID
		t.addFaces(child)
		t.inheritObjectIDs(c, child)
	}
	c.refine = false
	return nil
}

func (t *Triangulation) globalCorners(c *Cell, local []int) []int {
	global := make([]int, len(local))
	for i, v := range local {
		global[i] = c.Vertices[v]
	}
	return global
}

// newPoint places the vertex at the centre of the sub-object l. Curved
// objects use their manifold on the corners; flat ones blend the centres of
// their already placed sub-objects so they follow curved neighbours.
func (t *Triangulation) newPoint(l geometry.LatticePoint, order int, corners, lattice []int,
	m manifold.Manifold) r3.Vec {
	info := t.info
	if _, flat := m.(manifold.Flat); !flat {
		points := make([]r3.Vec, len(corners))
		weights := make([]float64, len(corners))
		for i, v := range corners {
			points[i] = t.vertices[v]
			weights[i] = 1 / float64(len(corners))
		}
		return m.NewPoint(points, weights)
	}
	var (
		points  []r3.Vec
		weights []float64
	)
	for sub := 0; sub < order; sub++ {
		w := geometry.CoonsWeight(order, sub)
		for _, q := range info.LatticeSubPoints(l, sub) {
			points = append(points, t.vertices[lattice[info.LatticeIndex(q)]])
			weights = append(weights, w)
		}
	}
	return m.NewPoint(points, weights)
}

// inheritObjectIDs copies boundary and manifold ids from the smallest object
// of the parent containing each face and line of the child
func (t *Triangulation) inheritObjectIDs(parent, child *Cell) {
	info := t.info
	ch := child.ChildIndex
	parentObject := func(local []int) (order int, k key) {
		points := make([]geometry.LatticePoint, len(local))
		for i, v := range local {
			points[i] = info.ChildLatticePoint(ch, v)
		}
		order, corners := info.EnclosingObject(points)
		if order == info.Dim {
			// inside the parent cell, no object key
			return order, key{}
		}
		return order, makeKey(t.globalCorners(parent, corners)...)
	}
	inherit := func(order int, pk key) ManifoldID {
		if order == info.Dim {
			return parent.ManifoldID
		}
		return t.objectManifoldID(pk)
	}

	for f := 0; f < info.FacesPerCell; f++ {
		order, pk := parentObject(info.FaceVertices[f])
		k := child.faceKey(f)
		if b, ok := t.boundary[pk]; ok && order == info.Dim-1 {
			t.boundary[k] = b
		}
		t.setObjectManifoldID(k, inherit(order, pk))
	}
	if info.Dim == 3 {
		for l, lv := range info.LineVertices {
			order, pk := parentObject(lv[:])
			t.setObjectManifoldID(child.lineKey(l), inherit(order, pk))
		}
	}
}
