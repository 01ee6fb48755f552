// Package grid holds hierarchical quadrilateral and hexahedral meshes with
// isotropic refinement, hanging nodes and manifold-aware vertex placement.
package grid

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/gridgen/geometry"
	"github.com/notargets/gridgen/manifold"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

type (
	ManifoldID int
	BoundaryID int
	MaterialID int
)

const (
	// FlatManifoldID marks objects whose new points lie on straight lines
	FlatManifoldID ManifoldID = -1
	// InteriorFaceID is reported as the boundary id of interior faces
	InteriorFaceID BoundaryID = -1
)

// CellData describes a coarse cell. Vertices follow the lexicographic
// ordering of geometry.Info. ManifoldID is taken as given, so cells meant to
// be flat must say FlatManifoldID.
type CellData struct {
	Vertices   []int
	MaterialID MaterialID
	ManifoldID ManifoldID
}

// ObjectData attaches ids to a line or face of the coarse mesh. As with
// CellData the manifold id is applied as given.
type ObjectData struct {
	Vertices   []int
	BoundaryID BoundaryID
	ManifoldID ManifoldID
}

// SubCellData carries boundary and manifold ids of coarse faces and lines. In
// 2D faces are lines; give them in Faces.
type SubCellData struct {
	Faces []ObjectData
	Lines []ObjectData
}

// Triangulation is a mesh of quadrilaterals (2D) or hexahedra (3D) organised
// as a forest of refinement trees rooted at the coarse cells.
type Triangulation struct {
	info *geometry.Info

	vertices []r3.Vec
	cells    []*Cell // indexed by Cell.ID; nil once removed by coarsening
	nCoarse  int

	manifolds   map[ManifoldID]manifold.Manifold
	objManifold map[key]ManifoldID // lines and faces that are not flat
	boundary    map[key]BoundaryID // boundary faces of every level
	centers     map[key]int        // vertex at the centre of a refined line or face
	faceCells   map[key][]int      // cells sharing a face

	// quadrature for measures
	qPoints  [][3]float64
	qWeights []float64

	lattice [][]geometry.LatticePoint

	logger *zap.Logger
}

// NewTriangulation returns an empty triangulation of dimension 2 or 3
func NewTriangulation(dim int) (*Triangulation, error) {
	info, err := geometry.InfoFor(dim)
	if err != nil {
		return nil, err
	}
	t := &Triangulation{
		info:      info,
		manifolds: make(map[ManifoldID]manifold.Manifold),
		logger:    zap.NewNop(),
		lattice:   info.LatticeByOrder(),
	}
	t.qPoints, t.qWeights = info.TensorRule(2)
	t.reset()
	return t, nil
}

func (t *Triangulation) reset() {
	t.vertices = nil
	t.cells = nil
	t.nCoarse = 0
	t.objManifold = make(map[key]ManifoldID)
	t.boundary = make(map[key]BoundaryID)
	t.centers = make(map[key]int)
	t.faceCells = make(map[key][]int)
}

// SetLogger directs debug output of refinement to l
func (t *Triangulation) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	t.logger = l
}

func (t *Triangulation) Dim() int { return t.info.Dim }

func (t *Triangulation) Info() *geometry.Info { return t.info }

func (t *Triangulation) Empty() bool { return len(t.cells) == 0 }

func (t *Triangulation) NVertices() int { return len(t.vertices) }

func (t *Triangulation) Vertex(i int) r3.Vec { return t.vertices[i] }

func (t *Triangulation) NCoarseCells() int { return t.nCoarse }

// Cell returns the cell with the given ID, nil if coarsening removed it
func (t *Triangulation) Cell(id int) *Cell { return t.cells[id] }

func (t *Triangulation) Logger() *zap.Logger { return t.logger }

// Vertices returns a copy of all vertices, used or not
func (t *Triangulation) Vertices() []r3.Vec { return append([]r3.Vec(nil), t.vertices...) }

func (t *Triangulation) CoarseCells() []*Cell { return append([]*Cell(nil), t.cells[:t.nCoarse]...) }

func (t *Triangulation) HasManifold(id ManifoldID) bool {
	_, ok := t.manifolds[id]
	return ok
}

// Clear removes all cells and vertices; attached manifolds stay
func (t *Triangulation) Clear() {
	t.reset()
}

// CreateTriangulation builds the coarse mesh. Faces owned by a single cell
// are boundary faces with boundary id 0 unless sub says otherwise.
func (t *Triangulation) CreateTriangulation(vertices []r3.Vec, cells []CellData, sub *SubCellData) error {
	if !t.Empty() {
		return fmt.Errorf("triangulation already holds %d cells", len(t.cells))
	}
	if len(vertices) == 0 || len(cells) == 0 {
		return fmt.Errorf("need vertices and cells, got %d vertices and %d cells", len(vertices), len(cells))
	}
	info := t.info
	for i, cd := range cells {
		if len(cd.Vertices) != info.VerticesPerCell {
			return fmt.Errorf("cell %d has %d vertices, need %d", i, len(cd.Vertices), info.VerticesPerCell)
		}
		seen := make(map[int]bool, len(cd.Vertices))
		for _, v := range cd.Vertices {
			if v < 0 || v >= len(vertices) {
				return fmt.Errorf("cell %d references vertex %d out of range [0,%d)", i, v, len(vertices))
			}
			if seen[v] {
				return fmt.Errorf("cell %d uses vertex %d twice", i, v)
			}
			seen[v] = true
		}
	}

	t.vertices = append([]r3.Vec(nil), vertices...)
	for i, cd := range cells {
		c := &Cell{
			ID:         i,
			Vertices:   append([]int(nil), cd.Vertices...),
			Parent:     -1,
			ChildIndex: -1,
			MaterialID: cd.MaterialID,
			ManifoldID: cd.ManifoldID,
			tria:       t,
		}
		if m := c.Measure(); m <= 0 {
			t.reset()
			return fmt.Errorf("cell %d has non-positive measure %g; check the vertex ordering", i, m)
		}
		t.cells = append(t.cells, c)
		t.addFaces(c)
	}
	t.nCoarse = len(cells)

	for k, owners := range t.faceCells {
		switch len(owners) {
		case 1:
			t.boundary[k] = 0
		case 2:
		default:
			t.reset()
			return fmt.Errorf("face %v is shared by %d cells", k.Vertices(), len(owners))
		}
	}

	if sub != nil {
		if err := t.applySubCellData(sub); err != nil {
			t.reset()
			return err
		}
	}
	t.logger.Debug("created coarse mesh",
		zap.Int("dim", info.Dim),
		zap.Int("vertices", len(t.vertices)),
		zap.Int("cells", t.nCoarse),
		zap.Int("boundaryFaces", len(t.boundary)))
	return nil
}

func (t *Triangulation) applySubCellData(sub *SubCellData) error {
	for i, fd := range sub.Faces {
		if len(fd.Vertices) != t.info.VerticesPerFace {
			return fmt.Errorf("face data %d has %d vertices, need %d", i, len(fd.Vertices), t.info.VerticesPerFace)
		}
		k := makeKey(fd.Vertices...)
		if _, ok := t.faceCells[k]; !ok {
			return fmt.Errorf("face data %d %v is not a face of the mesh", i, fd.Vertices)
		}
		if _, ok := t.boundary[k]; ok {
			t.boundary[k] = fd.BoundaryID
		} else if fd.BoundaryID != 0 {
			return fmt.Errorf("face data %d %v is interior and cannot carry boundary id %d", i, fd.Vertices, fd.BoundaryID)
		}
		t.setObjectManifoldID(k, fd.ManifoldID)
	}
	if len(sub.Lines) > 0 && t.info.Dim == 2 {
		return fmt.Errorf("lines are faces in 2D; give them as faces")
	}
	lines := make(map[key]bool)
	for _, c := range t.cells {
		for l := 0; l < t.info.LinesPerCell; l++ {
			lines[c.lineKey(l)] = true
		}
	}
	for i, ld := range sub.Lines {
		if len(ld.Vertices) != 2 {
			return fmt.Errorf("line data %d has %d vertices, need 2", i, len(ld.Vertices))
		}
		k := makeKey(ld.Vertices...)
		if !lines[k] {
			return fmt.Errorf("line data %d %v is not a line of the mesh", i, ld.Vertices)
		}
		t.setObjectManifoldID(k, ld.ManifoldID)
	}
	return nil
}

func (t *Triangulation) addFaces(c *Cell) {
	for f := 0; f < t.info.FacesPerCell; f++ {
		k := c.faceKey(f)
		t.faceCells[k] = append(t.faceCells[k], c.ID)
	}
}

func (t *Triangulation) removeFaces(c *Cell) {
	for f := 0; f < t.info.FacesPerCell; f++ {
		k := c.faceKey(f)
		owners := t.faceCells[k]
		for i, id := range owners {
			if id == c.ID {
				owners = append(owners[:i], owners[i+1:]...)
				break
			}
		}
		if len(owners) == 0 {
			delete(t.faceCells, k)
			delete(t.boundary, k)
		} else {
			t.faceCells[k] = owners
		}
	}
}

// Manifolds

// SetManifold attaches m to all objects carrying manifold id
func (t *Triangulation) SetManifold(id ManifoldID, m manifold.Manifold) error {
	if id == FlatManifoldID {
		return fmt.Errorf("manifold id %d is reserved for flat objects", id)
	}
	if m == nil {
		return fmt.Errorf("nil manifold for id %d", id)
	}
	t.manifolds[id] = m
	t.logger.Debug("attached manifold", zap.Int("id", int(id)), zap.String("manifold", m.Name()))
	return nil
}

// ResetManifold detaches the manifold with the given id; objects carrying the
// id are treated as flat afterwards
func (t *Triangulation) ResetManifold(id ManifoldID) {
	delete(t.manifolds, id)
}

func (t *Triangulation) ResetAllManifolds() {
	t.manifolds = make(map[ManifoldID]manifold.Manifold)
}

// Manifold returns the manifold attached to id, or a flat manifold
func (t *Triangulation) Manifold(id ManifoldID) manifold.Manifold {
	if m, ok := t.manifolds[id]; ok {
		return m
	}
	return manifold.Flat{}
}

func (t *Triangulation) objectManifoldID(k key) ManifoldID {
	if id, ok := t.objManifold[k]; ok {
		return id
	}
	return FlatManifoldID
}

func (t *Triangulation) setObjectManifoldID(k key, id ManifoldID) {
	if id == FlatManifoldID {
		delete(t.objManifold, k)
		return
	}
	t.objManifold[k] = id
}

// SetAllManifoldIDs gives every cell, face and line the manifold id
func (t *Triangulation) SetAllManifoldIDs(id ManifoldID) {
	for _, c := range t.cells {
		if c == nil {
			continue
		}
		c.ManifoldID = id
		for f := 0; f < t.info.FacesPerCell; f++ {
			t.setObjectManifoldID(c.faceKey(f), id)
		}
		for l := 0; l < t.info.LinesPerCell; l++ {
			t.setObjectManifoldID(c.lineKey(l), id)
		}
	}
}

// SetAllManifoldIDsOnBoundary gives every boundary face and its lines the manifold id
func (t *Triangulation) SetAllManifoldIDsOnBoundary(id ManifoldID) {
	t.setBoundaryManifoldIDs(func(BoundaryID) bool { return true }, id)
}

// SetManifoldIDsOnBoundary gives boundary faces with boundary id bid, and
// their lines, the manifold id
func (t *Triangulation) SetManifoldIDsOnBoundary(bid BoundaryID, id ManifoldID) {
	t.setBoundaryManifoldIDs(func(b BoundaryID) bool { return b == bid }, id)
}

func (t *Triangulation) setBoundaryManifoldIDs(match func(BoundaryID) bool, id ManifoldID) {
	for _, c := range t.cells {
		if c == nil {
			continue
		}
		for f := 0; f < t.info.FacesPerCell; f++ {
			k := c.faceKey(f)
			b, ok := t.boundary[k]
			if !ok || !match(b) {
				continue
			}
			t.setObjectManifoldID(k, id)
			for _, l := range c.faceLines(f) {
				t.setObjectManifoldID(c.lineKey(l), id)
			}
		}
	}
}

// Cell queries

// ActiveCells returns the cells without children in ID order
func (t *Triangulation) ActiveCells() []*Cell {
	active := make([]*Cell, 0, len(t.cells))
	for _, c := range t.cells {
		if c != nil && c.IsActive() {
			active = append(active, c)
		}
	}
	return active
}

// CellsOnLevel returns all cells, active or not, of a refinement level
func (t *Triangulation) CellsOnLevel(level int) []*Cell {
	var cells []*Cell
	for _, c := range t.cells {
		if c != nil && c.Level == level {
			cells = append(cells, c)
		}
	}
	return cells
}

func (t *Triangulation) NActiveCells() (n int) {
	for _, c := range t.cells {
		if c != nil && c.IsActive() {
			n++
		}
	}
	return
}

// NCells counts the cells of all levels
func (t *Triangulation) NCells() (n int) {
	for _, c := range t.cells {
		if c != nil {
			n++
		}
	}
	return
}

// NLevels is one more than the finest level present
func (t *Triangulation) NLevels() (n int) {
	for _, c := range t.cells {
		if c != nil && c.Level+1 > n {
			n = c.Level + 1
		}
	}
	return
}

// UsedVertices marks the vertices of active cells
func (t *Triangulation) UsedVertices() []bool {
	used := make([]bool, len(t.vertices))
	for _, c := range t.cells {
		if c != nil && c.IsActive() {
			for _, v := range c.Vertices {
				used[v] = true
			}
		}
	}
	return used
}

func (t *Triangulation) NUsedVertices() (n int) {
	for _, u := range t.UsedVertices() {
		if u {
			n++
		}
	}
	return
}

// BoundingBox returns the corners of the box around the used vertices
func (t *Triangulation) BoundingBox() (lo, hi r3.Vec) {
	var xs, ys, zs []float64
	for i, u := range t.UsedVertices() {
		if u {
			xs = append(xs, t.vertices[i].X)
			ys = append(ys, t.vertices[i].Y)
			zs = append(zs, t.vertices[i].Z)
		}
	}
	if len(xs) == 0 {
		return
	}
	lo = r3.Vec{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)}
	hi = r3.Vec{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)}
	return
}

// BoundaryIDs lists the distinct boundary ids of the active mesh
func (t *Triangulation) BoundaryIDs() []BoundaryID {
	seen := make(map[BoundaryID]bool)
	for _, bf := range t.ActiveBoundaryFaces() {
		seen[bf.BoundaryID] = true
	}
	ids := make([]BoundaryID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BoundaryFace is a face of an active cell on the domain boundary
type BoundaryFace struct {
	Cell       *Cell
	Face       int
	BoundaryID BoundaryID
	ManifoldID ManifoldID
}

// ActiveBoundaryFaces lists the boundary faces of the active cells
func (t *Triangulation) ActiveBoundaryFaces() (faces []BoundaryFace) {
	for _, c := range t.ActiveCells() {
		for f := 0; f < t.info.FacesPerCell; f++ {
			k := c.faceKey(f)
			if b, ok := t.boundary[k]; ok {
				faces = append(faces, BoundaryFace{Cell: c, Face: f, BoundaryID: b, ManifoldID: t.objectManifoldID(k)})
			}
		}
	}
	return
}

// Line is an edge of the active mesh
type Line struct {
	V0, V1     int
	AtBoundary bool
}

// ActiveLines lists every line of the active cells once
func (t *Triangulation) ActiveLines() []Line {
	boundaryLines := make(map[key]bool)
	for _, bf := range t.ActiveBoundaryFaces() {
		for _, l := range bf.Cell.faceLines(bf.Face) {
			boundaryLines[bf.Cell.lineKey(l)] = true
		}
	}
	seen := make(map[key]bool)
	var lines []Line
	for _, c := range t.ActiveCells() {
		for l := 0; l < t.info.LinesPerCell; l++ {
			k := c.lineKey(l)
			if seen[k] {
				continue
			}
			seen[k] = true
			lv := t.info.LineVertices[l]
			lines = append(lines, Line{
				V0:         c.Vertices[lv[0]],
				V1:         c.Vertices[lv[1]],
				AtBoundary: boundaryLines[k],
			})
		}
	}
	return lines
}

// ActiveFaceNeighbors returns the active cells across face f of c: none at
// the boundary, one of the same or a coarser level, or the finer active
// cells covering the face
func (t *Triangulation) ActiveFaceNeighbors(c *Cell, f int) []*Cell {
	n := c.Neighbor(f)
	if n == nil {
		return nil
	}
	if n.IsActive() {
		return []*Cell{n}
	}
	nf := n.faceIndex(c.faceKey(f))
	if nf < 0 {
		return nil
	}
	return t.activeOnFace(n, nf)
}

func (t *Triangulation) activeOnFace(c *Cell, f int) []*Cell {
	if c.IsActive() {
		return []*Cell{c}
	}
	var cells []*Cell
	for _, ch := range t.info.ChildrenOnFace(f) {
		cells = append(cells, t.activeOnFace(t.cells[c.Children[ch]], f)...)
	}
	return cells
}

// LevelDifferenceOK reports whether active face neighbours, and in 3D active
// cells sharing part of a line, differ by at most one level
func (t *Triangulation) LevelDifferenceOK() bool {
	var atVertex map[int][]*Cell
	if t.info.Dim == 3 {
		atVertex = t.activeCellsAtVertices()
	}
	ok := true
	for _, c := range t.ActiveCells() {
		for f := 0; f < t.info.FacesPerCell; f++ {
			for _, n := range t.ActiveFaceNeighbors(c, f) {
				if int(math.Abs(float64(n.Level-c.Level))) > 1 {
					return false
				}
			}
		}
		if atVertex != nil {
			t.lineNeighbors(c, atVertex, func(n *Cell, depth int) {
				if depth > 1 {
					ok = false
				}
			})
		}
	}
	return ok
}

func (t *Triangulation) addVertex(p r3.Vec) int {
	t.vertices = append(t.vertices, p)
	return len(t.vertices) - 1
}
