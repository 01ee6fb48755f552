package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitSquare(t *testing.T) *Triangulation {
	tria, err := NewTriangulation(2)
	require.NoError(t, err)
	require.NoError(t, tria.CreateTriangulation(
		[]r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
		[]CellData{{Vertices: []int{0, 1, 2, 3}, ManifoldID: FlatManifoldID}},
		nil))
	return tria
}

func unitCube(t *testing.T) *Triangulation {
	tria, err := NewTriangulation(3)
	require.NoError(t, err)
	verts := make([]r3.Vec, 8)
	for v := range verts {
		verts[v] = r3.Vec{X: float64(v & 1), Y: float64((v >> 1) & 1), Z: float64((v >> 2) & 1)}
	}
	require.NoError(t, tria.CreateTriangulation(verts,
		[]CellData{{Vertices: []int{0, 1, 2, 3, 4, 5, 6, 7}, ManifoldID: FlatManifoldID}}, nil))
	return tria
}

// twoSquares is [0,2]x[0,1] split at x=1
func twoSquares(t *testing.T) *Triangulation {
	tria, err := NewTriangulation(2)
	require.NoError(t, err)
	require.NoError(t, tria.CreateTriangulation(
		[]r3.Vec{{X: 0}, {X: 1}, {X: 2}, {Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
		[]CellData{
			{Vertices: []int{0, 1, 3, 4}, ManifoldID: FlatManifoldID},
			{Vertices: []int{1, 2, 4, 5}, ManifoldID: FlatManifoldID, MaterialID: 3},
		}, nil))
	return tria
}

func totalMeasure(tria *Triangulation) (sum float64) {
	for _, c := range tria.ActiveCells() {
		sum += c.Measure()
	}
	return
}

func TestNewTriangulation(t *testing.T) {
	_, err := NewTriangulation(1)
	assert.Error(t, err)
	tria, err := NewTriangulation(3)
	require.NoError(t, err)
	assert.True(t, tria.Empty())
	assert.Error(t, tria.RefineGlobal(1))
	assert.Error(t, tria.ExecuteCoarseningAndRefinement())
}

func TestCreateTriangulationErrors(t *testing.T) {
	verts := []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	cases := map[string][]CellData{
		"vertex count": {{Vertices: []int{0, 1, 2}}},
		"out of range": {{Vertices: []int{0, 1, 2, 4}}},
		"duplicate":    {{Vertices: []int{0, 1, 1, 3}}},
		"inverted":     {{Vertices: []int{1, 0, 3, 2}}},
	}
	for name, cells := range cases {
		tria, _ := NewTriangulation(2)
		assert.Error(t, tria.CreateTriangulation(verts, cells, nil), name)
		assert.True(t, tria.Empty(), name)
	}

	tria, _ := NewTriangulation(2)
	assert.Error(t, tria.CreateTriangulation(nil, nil, nil))

	tria = unitSquare(t)
	assert.Error(t, tria.CreateTriangulation(verts, []CellData{{Vertices: []int{0, 1, 2, 3}}}, nil))

	// interior faces cannot carry boundary ids
	tria, _ = NewTriangulation(2)
	err := tria.CreateTriangulation(
		[]r3.Vec{{X: 0}, {X: 1}, {X: 2}, {Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
		[]CellData{{Vertices: []int{0, 1, 3, 4}}, {Vertices: []int{1, 2, 4, 5}}},
		&SubCellData{Faces: []ObjectData{{Vertices: []int{1, 4}, BoundaryID: 5, ManifoldID: FlatManifoldID}}})
	assert.Error(t, err)
}

func TestMeasure(t *testing.T) {
	tria, _ := NewTriangulation(2)
	// parallelogram with base 2 and height 1
	require.NoError(t, tria.CreateTriangulation(
		[]r3.Vec{{X: 0}, {X: 2}, {X: 1, Y: 1}, {X: 3, Y: 1}},
		[]CellData{{Vertices: []int{0, 1, 2, 3}, ManifoldID: FlatManifoldID}}, nil))
	c := tria.Cell(0)
	assert.InDelta(t, 2.0, c.Measure(), 1e-14)
	assert.InDelta(t, 1.5, c.Center().X, 1e-15)
	assert.InDelta(t, r3.Norm(r3.Vec{X: 3, Y: 1}), c.Diameter(), 1e-15)
}

func TestRefineGlobalSquare(t *testing.T) {
	tria := unitSquare(t)
	require.NoError(t, tria.RefineGlobal(4))
	assert.Equal(t, 256, tria.NActiveCells())
	assert.Equal(t, 1+4+16+64+256, tria.NCells())
	assert.Equal(t, 5, tria.NLevels())
	assert.Equal(t, 17*17, tria.NUsedVertices())
	assert.Equal(t, 17*17, tria.NVertices())
	assert.InDelta(t, 1.0, totalMeasure(tria), 1e-12)
	assert.Len(t, tria.ActiveBoundaryFaces(), 64)
	assert.Len(t, tria.CellsOnLevel(2), 16)
	assert.True(t, tria.LevelDifferenceOK())

	lo, hi := tria.BoundingBox()
	assert.Equal(t, r3.Vec{}, lo)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, hi)
}

func TestRefineGlobalCube(t *testing.T) {
	tria := unitCube(t)
	require.NoError(t, tria.RefineGlobal(2))
	assert.Equal(t, 64, tria.NActiveCells())
	assert.Equal(t, 125, tria.NUsedVertices())
	assert.InDelta(t, 1.0, totalMeasure(tria), 1e-12)
	assert.Len(t, tria.ActiveBoundaryFaces(), 96)
	for _, c := range tria.ActiveCells() {
		assert.InDelta(t, 1.0/64, c.Measure(), 1e-14)
	}
}

func TestActiveLines(t *testing.T) {
	tria := unitSquare(t)
	require.NoError(t, tria.RefineGlobal(1))
	lines := tria.ActiveLines()
	assert.Len(t, lines, 12)
	nb := 0
	for _, l := range lines {
		if l.AtBoundary {
			nb++
		}
	}
	assert.Equal(t, 8, nb)

	cube := unitCube(t)
	assert.Len(t, cube.ActiveLines(), 12)
}

func TestNeighbors(t *testing.T) {
	tria := twoSquares(t)
	left, right := tria.Cell(0), tria.Cell(1)
	assert.Same(t, right, left.Neighbor(1))
	assert.Same(t, left, right.Neighbor(0))
	assert.Nil(t, left.Neighbor(0))
	assert.True(t, left.AtBoundary(0))
	assert.False(t, left.AtBoundary(1))
	assert.Equal(t, InteriorFaceID, left.BoundaryID(1))
	assert.Equal(t, BoundaryID(0), left.BoundaryID(2))

	left.SetRefineFlag()
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 5, tria.NActiveCells())
	assert.Equal(t, 11, tria.NUsedVertices())

	// hanging face: the finer child sees the coarse neighbour
	assert.Same(t, right, left.Child(1).Neighbor(1))
	assert.Same(t, left.Child(0), left.Child(1).Neighbor(0))
	assert.Same(t, left.Child(2), left.Child(0).Neighbor(3))
	assert.Same(t, left, left.Child(3).ParentCell())
	assert.Nil(t, left.ParentCell())

	fine := tria.ActiveFaceNeighbors(right, 0)
	require.Len(t, fine, 2)
	assert.Equal(t, left.Children[1], fine[0].ID)
	assert.Equal(t, left.Children[3], fine[1].ID)

	// children keep the material
	assert.Equal(t, MaterialID(0), left.Child(2).MaterialID)
	assert.True(t, tria.LevelDifferenceOK())
}

func TestRefinementSmoothing(t *testing.T) {
	tria := twoSquares(t)
	tria.Cell(0).SetRefineFlag()
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())

	tria.Cell(0).Child(1).SetRefineFlag()
	changed := tria.PrepareCoarseningAndRefinement()
	assert.True(t, changed)
	assert.True(t, tria.Cell(1).RefineFlagSet())

	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 11, tria.NActiveCells())
	assert.Equal(t, 3, tria.NLevels())
	assert.True(t, tria.LevelDifferenceOK())
	assert.InDelta(t, 2.0, totalMeasure(tria), 1e-12)
	for _, c := range tria.ActiveCells() {
		assert.False(t, c.RefineFlagSet())
	}
}

func TestCoarsening(t *testing.T) {
	tria := unitSquare(t)
	require.NoError(t, tria.RefineGlobal(2))
	root := tria.Cell(0)

	// refine the level 2 cell next to the lower right quadrant
	a := root.Child(0).Child(1)
	a.SetRefineFlag()
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 19, tria.NActiveCells())

	// the lower right quadrant cannot be coarsened next to level 3 cells
	p1 := root.Child(1)
	for _, id := range p1.Children {
		tria.Cell(id).SetCoarsenFlag()
	}
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 19, tria.NActiveCells())
	assert.True(t, p1.HasChildren())

	// the upper right quadrant can
	p3 := root.Child(3)
	for _, id := range p3.Children {
		tria.Cell(id).SetCoarsenFlag()
	}
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 16, tria.NActiveCells())
	assert.True(t, p3.IsActive())
	assert.True(t, tria.LevelDifferenceOK())
	assert.InDelta(t, 1.0, totalMeasure(tria), 1e-12)
	assert.Len(t, tria.ActiveBoundaryFaces(), 5+4+3+3)

	// re-refining reuses the line midpoints, only the centre is new
	nv := tria.NVertices()
	p3.SetRefineFlag()
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, nv+1, tria.NVertices())
}

func TestPartialCoarsenFlagsAreDropped(t *testing.T) {
	tria := unitSquare(t)
	require.NoError(t, tria.RefineGlobal(1))
	root := tria.Cell(0)
	root.Child(0).SetCoarsenFlag()
	root.Child(1).SetCoarsenFlag()
	assert.True(t, tria.PrepareCoarseningAndRefinement())
	assert.False(t, root.Child(0).CoarsenFlagSet())
	require.NoError(t, tria.ExecuteCoarseningAndRefinement())
	assert.Equal(t, 4, tria.NActiveCells())

	// flags on refined cells are ignored
	root.SetRefineFlag()
	assert.False(t, root.RefineFlagSet())
}
