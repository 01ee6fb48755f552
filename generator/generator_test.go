package generator

import (
	"math"
	"testing"

	"github.com/notargets/gridgen/grid"
	"github.com/notargets/gridgen/manifold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTria(t *testing.T, dim int) *grid.Triangulation {
	tria, err := grid.NewTriangulation(dim)
	require.NoError(t, err)
	return tria
}

func measure(tria *grid.Triangulation) (sum float64) {
	for _, c := range tria.ActiveCells() {
		sum += c.Measure()
	}
	return
}

func TestHyperCube(t *testing.T) {
	sq := newTria(t, 2)
	require.NoError(t, HyperCube(sq, -1, 1, false))
	assert.Equal(t, 1, sq.NActiveCells())
	assert.Equal(t, 4, sq.NVertices())
	assert.InDelta(t, 4.0, measure(sq), 1e-14)
	assert.Equal(t, []grid.BoundaryID{0}, sq.BoundaryIDs())

	cube := newTria(t, 3)
	require.NoError(t, HyperCube(cube, 0, 2, true))
	assert.InDelta(t, 8.0, measure(cube), 1e-13)
	assert.Equal(t, []grid.BoundaryID{0, 1, 2, 3, 4, 5}, cube.BoundaryIDs())
	c := cube.Cell(0)
	for f := 0; f < 6; f++ {
		assert.Equal(t, grid.BoundaryID(f), c.BoundaryID(f))
	}

	assert.Error(t, HyperCube(newTria(t, 2), 1, 1, false))
	assert.Error(t, HyperCube(sq, 0, 1, false), "already filled")
}

func TestHyperRectangle(t *testing.T) {
	tria := newTria(t, 2)
	require.NoError(t, HyperRectangle(tria, r3.Vec{X: 1, Y: 2, Z: 9}, r3.Vec{X: 4, Y: 3}, true))
	assert.InDelta(t, 3.0, measure(tria), 1e-14)
	lo, hi := tria.BoundingBox()
	assert.Equal(t, r3.Vec{X: 1, Y: 2}, lo)
	assert.Equal(t, r3.Vec{X: 4, Y: 3}, hi)

	assert.Error(t, HyperRectangle(newTria(t, 3), r3.Vec{}, r3.Vec{X: 1, Y: 1}, false))
}

func TestHyperBall(t *testing.T) {
	tria := newTria(t, 2)
	center := r3.Vec{X: 2, Y: -1}
	require.NoError(t, HyperBall(tria, center, 1))
	assert.Equal(t, 5, tria.NActiveCells())
	assert.Equal(t, 8, tria.NVertices())
	assert.InDelta(t, 2.0, measure(tria), 1e-13)

	faces := tria.ActiveBoundaryFaces()
	require.Len(t, faces, 4)
	for _, bf := range faces {
		assert.Equal(t, HullManifoldID, bf.ManifoldID)
		for _, v := range bf.Cell.FaceVertices(bf.Face) {
			assert.InDelta(t, 1.0, r3.Norm(r3.Sub(tria.Vertex(v), center)), 1e-14)
		}
	}
	for _, c := range tria.ActiveCells() {
		assert.Equal(t, grid.FlatManifoldID, c.ManifoldID)
	}

	require.NoError(t, tria.SetManifold(HullManifoldID, manifold.NewSpherical(center)))
	require.NoError(t, tria.RefineGlobal(3))
	assert.Equal(t, 5*64, tria.NActiveCells())
	for _, bf := range tria.ActiveBoundaryFaces() {
		for _, v := range bf.Cell.FaceVertices(bf.Face) {
			assert.InDelta(t, 1.0, r3.Norm(r3.Sub(tria.Vertex(v), center)), 1e-12)
		}
	}
	// the union of the cells is the regular 32-gon
	assert.InDelta(t, 16*math.Sin(math.Pi/16), measure(tria), 1e-10)

	assert.Error(t, HyperBall(newTria(t, 3), r3.Vec{}, 1))
	assert.Error(t, HyperBall(newTria(t, 2), r3.Vec{}, 0))
}

func TestHyperShell(t *testing.T) {
	center := r3.Vec{X: 1}
	tria := newTria(t, 2)
	require.NoError(t, HyperShell(tria, center, 0.5, 1, 10, true))
	assert.Equal(t, 10, tria.NActiveCells())
	assert.Equal(t, 20, tria.NVertices())
	assert.Equal(t, []grid.BoundaryID{0, 1}, tria.BoundaryIDs())
	for _, bf := range tria.ActiveBoundaryFaces() {
		want := 0.5
		if bf.BoundaryID == 1 {
			want = 1
		}
		for _, v := range bf.Cell.FaceVertices(bf.Face) {
			assert.InDelta(t, want, r3.Norm(r3.Sub(tria.Vertex(v), center)), 1e-14)
		}
	}
	for _, c := range tria.ActiveCells() {
		assert.Equal(t, grid.ManifoldID(0), c.ManifoldID)
		assert.Greater(t, c.Measure(), 0.0)
	}

	require.NoError(t, tria.SetManifold(0, manifold.NewSpherical(center)))
	require.NoError(t, tria.RefineGlobal(2))
	assert.InDelta(t, 20*math.Sin(2*math.Pi/40)*0.75, measure(tria), 1e-10)

	def := newTria(t, 2)
	require.NoError(t, HyperShell(def, r3.Vec{}, 1, 2, 0, false))
	assert.Equal(t, 8, def.NActiveCells())
	assert.Equal(t, []grid.BoundaryID{0}, def.BoundaryIDs())

	assert.Error(t, HyperShell(newTria(t, 2), r3.Vec{}, 1, 2, 2, false))
	assert.Error(t, HyperShell(newTria(t, 2), r3.Vec{}, 1, 1, 5, false))
	assert.Error(t, HyperShell(newTria(t, 2), r3.Vec{}, 0, 1, 5, false))
	assert.Error(t, HyperShell(newTria(t, 3), r3.Vec{}, 1, 2, 5, false))
}

func TestCylinder(t *testing.T) {
	tria := newTria(t, 3)
	require.NoError(t, Cylinder(tria, 0.5, 1))
	assert.Equal(t, 10, tria.NActiveCells())
	assert.Equal(t, 24, tria.NVertices())
	assert.Equal(t, []grid.BoundaryID{0, 1, 2}, tria.BoundaryIDs())
	assert.InDelta(t, 2*0.25*2, measure(tria), 1e-13)

	counts := make(map[grid.BoundaryID]int)
	for _, bf := range tria.ActiveBoundaryFaces() {
		counts[bf.BoundaryID]++
		if bf.BoundaryID == 0 {
			assert.Equal(t, HullManifoldID, bf.ManifoldID)
		} else {
			assert.Equal(t, grid.FlatManifoldID, bf.ManifoldID)
		}
	}
	assert.Equal(t, map[grid.BoundaryID]int{0: 8, 1: 5, 2: 5}, counts)

	axis, err := manifold.NewCylindricalAxis(0)
	require.NoError(t, err)
	require.NoError(t, tria.SetManifold(HullManifoldID, axis))
	require.NoError(t, tria.RefineGlobal(2))
	assert.Equal(t, 10*64, tria.NActiveCells())
	lo, hi := tria.BoundingBox()
	assert.InDelta(t, -1.0, lo.X, 1e-14)
	assert.InDelta(t, 1.0, hi.X, 1e-14)
	for _, bf := range tria.ActiveBoundaryFaces() {
		if bf.BoundaryID != 0 {
			continue
		}
		for _, v := range bf.Cell.FaceVertices(bf.Face) {
			p := tria.Vertex(v)
			assert.InDelta(t, 0.5, math.Hypot(p.Y, p.Z), 1e-12)
		}
	}
	// every cross-section is the regular 16-gon of radius 0.5
	assert.InDelta(t, 2*8*0.25*math.Sin(math.Pi/8), measure(tria), 1e-10)

	assert.Error(t, Cylinder(newTria(t, 2), 1, 1))
	assert.Error(t, Cylinder(newTria(t, 3), 1, 0))
}
