package grid

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is a node of a refinement tree. Active cells have no children.
type Cell struct {
	ID         int
	Level      int
	Vertices   []int // global vertex indices, lexicographic order
	Parent     int   // -1 on the coarse level
	ChildIndex int   // position among the parent's children, -1 on the coarse level
	Children   []int // nil while active
	MaterialID MaterialID
	ManifoldID ManifoldID

	refine  bool
	coarsen bool
	tria    *Triangulation
}

func (c *Cell) IsActive() bool    { return len(c.Children) == 0 }
func (c *Cell) HasChildren() bool { return len(c.Children) > 0 }

// Vertex returns the location of local vertex i
func (c *Cell) Vertex(i int) r3.Vec { return c.tria.vertices[c.Vertices[i]] }

// ParentCell returns the parent, nil on the coarse level
func (c *Cell) ParentCell() *Cell {
	if c.Parent < 0 {
		return nil
	}
	return c.tria.cells[c.Parent]
}

// Child returns child i of a refined cell
func (c *Cell) Child(i int) *Cell { return c.tria.cells[c.Children[i]] }

// SetRefineFlag marks an active cell for refinement; ignored on refined cells
func (c *Cell) SetRefineFlag() {
	if c.IsActive() {
		c.refine = true
		c.coarsen = false
	}
}

func (c *Cell) ClearRefineFlag()    { c.refine = false }
func (c *Cell) RefineFlagSet() bool { return c.refine }

// SetCoarsenFlag marks an active cell for coarsening; the parent is only
// restored when all its children carry the flag
func (c *Cell) SetCoarsenFlag() {
	if c.IsActive() && c.Parent >= 0 && !c.refine {
		c.coarsen = true
	}
}

func (c *Cell) ClearCoarsenFlag()    { c.coarsen = false }
func (c *Cell) CoarsenFlagSet() bool { return c.coarsen }

// Center is the mean of the vertices
func (c *Cell) Center() (p r3.Vec) {
	for i := range c.Vertices {
		p = r3.Add(p, c.Vertex(i))
	}
	return r3.Scale(1/float64(len(c.Vertices)), p)
}

// Diameter is the largest distance between two vertices
func (c *Cell) Diameter() (d float64) {
	for i := range c.Vertices {
		for j := i + 1; j < len(c.Vertices); j++ {
			d = math.Max(d, r3.Norm(r3.Sub(c.Vertex(i), c.Vertex(j))))
		}
	}
	return
}

// Measure is the area (2D) or volume (3D) of the multilinear cell
func (c *Cell) Measure() (vol float64) {
	info := c.tria.info
	dim := info.Dim
	J := mat.NewDense(dim, dim, nil)
	for q, r := range c.tria.qPoints {
		grad := info.ShapeGradients(r)
		J.Zero()
		for v := range c.Vertices {
			x := coords(c.Vertex(v))
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					J.Set(i, j, J.At(i, j)+x[i]*grad[v][j])
				}
			}
		}
		vol += mat.Det(J) * c.tria.qWeights[q]
	}
	return
}

func coords(p r3.Vec) [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

// FaceVertices returns the global vertex indices of face f
func (c *Cell) FaceVertices(f int) []int {
	local := c.tria.info.FaceVertices[f]
	verts := make([]int, len(local))
	for i, v := range local {
		verts[i] = c.Vertices[v]
	}
	return verts
}

func (c *Cell) faceKey(f int) key { return makeKey(c.FaceVertices(f)...) }

func (c *Cell) lineKey(l int) key {
	lv := c.tria.info.LineVertices[l]
	return makeKey(c.Vertices[lv[0]], c.Vertices[lv[1]])
}

// faceLines returns the local lines bounding face f
func (c *Cell) faceLines(f int) []int {
	info := c.tria.info
	if info.Dim == 2 {
		return []int{f}
	}
	onFace := make(map[int]bool)
	for _, v := range info.FaceVertices[f] {
		onFace[v] = true
	}
	var lines []int
	for l, lv := range info.LineVertices {
		if onFace[lv[0]] && onFace[lv[1]] {
			lines = append(lines, l)
		}
	}
	return lines
}

// faceIndex returns the local face with the given key, -1 if none
func (c *Cell) faceIndex(k key) int {
	for f := 0; f < c.tria.info.FacesPerCell; f++ {
		if c.faceKey(f) == k {
			return f
		}
	}
	return -1
}

// AtBoundary reports whether face f lies on the domain boundary
func (c *Cell) AtBoundary(f int) bool {
	_, ok := c.tria.boundary[c.faceKey(f)]
	return ok
}

// BoundaryID returns the boundary id of face f, InteriorFaceID if interior
func (c *Cell) BoundaryID(f int) BoundaryID {
	if b, ok := c.tria.boundary[c.faceKey(f)]; ok {
		return b
	}
	return InteriorFaceID
}

func (c *Cell) FaceManifoldID(f int) ManifoldID { return c.tria.objectManifoldID(c.faceKey(f)) }

func (c *Cell) LineManifoldID(l int) ManifoldID { return c.tria.objectManifoldID(c.lineKey(l)) }

// Neighbor returns the cell across face f: a cell of the same level (possibly
// refined), an active coarser cell when the face is hanging, or nil at the
// boundary
func (c *Cell) Neighbor(f int) *Cell {
	t := c.tria
	k := c.faceKey(f)
	for _, id := range t.faceCells[k] {
		if id != c.ID {
			return t.cells[id]
		}
	}
	if _, ok := t.boundary[k]; ok || c.Parent < 0 {
		return nil
	}
	if !t.info.ChildOnFace(c.ChildIndex, f) {
		return nil
	}
	return t.cells[c.Parent].Neighbor(f)
}
