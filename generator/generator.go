// Package generator builds coarse meshes of simple domains.
package generator

import (
	"fmt"
	"math"

	"github.com/notargets/gridgen/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// HullManifoldID is the manifold id given to the curved boundary of balls
// and cylinders
const HullManifoldID grid.ManifoldID = 0

// HyperCube fills t with the single cell [left,right]^dim. With colorize the
// boundary id of each face is its local face number.
func HyperCube(t *grid.Triangulation, left, right float64, colorize bool) error {
	p1 := r3.Vec{X: left, Y: left, Z: left}
	p2 := r3.Vec{X: right, Y: right, Z: right}
	return HyperRectangle(t, p1, p2, colorize)
}

// HyperRectangle fills t with one axis aligned cell spanning p1 and p2; the
// z components are ignored in 2D
func HyperRectangle(t *grid.Triangulation, p1, p2 r3.Vec, colorize bool) error {
	dim := t.Dim()
	lo, hi := [3]float64{p1.X, p1.Y, p1.Z}, [3]float64{p2.X, p2.Y, p2.Z}
	for d := 0; d < dim; d++ {
		if lo[d] >= hi[d] {
			return fmt.Errorf("hyper rectangle: coordinate %d has %g >= %g", d, lo[d], hi[d])
		}
	}
	info := t.Info()
	verts := make([]r3.Vec, info.VerticesPerCell)
	ids := make([]int, info.VerticesPerCell)
	for v := range verts {
		var x [3]float64
		for d := 0; d < dim; d++ {
			x[d] = lo[d]
			if (v>>d)&1 == 1 {
				x[d] = hi[d]
			}
		}
		verts[v] = r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		ids[v] = v
	}
	var sub *grid.SubCellData
	if colorize {
		sub = &grid.SubCellData{}
		for f := 0; f < info.FacesPerCell; f++ {
			sub.Faces = append(sub.Faces, grid.ObjectData{
				Vertices:   info.FaceVertices[f],
				BoundaryID: grid.BoundaryID(f),
				ManifoldID: grid.FlatManifoldID,
			})
		}
	}
	return t.CreateTriangulation(verts,
		[]grid.CellData{{Vertices: ids, ManifoldID: grid.FlatManifoldID}}, sub)
}

// ballCells are the five quadrilaterals of the disc: four around the inner
// square and the square itself
var ballCells = [5][4]int{
	{0, 1, 2, 3},
	{0, 2, 6, 4},
	{2, 3, 4, 5},
	{1, 7, 3, 5},
	{6, 4, 7, 5},
}

// discVertices returns the eight vertices of the five cell disc in the plane
func discVertices(radius float64) [8][2]float64 {
	d := radius / math.Sqrt2
	a := d / (1 + math.Sqrt2)
	return [8][2]float64{
		{-d, -d}, {d, -d},
		{-a, -a}, {a, -a},
		{-a, a}, {a, a},
		{-d, d}, {d, d},
	}
}

// HyperBall fills the 2D triangulation t with a disc of five cells. The
// boundary carries boundary id 0 and manifold id HullManifoldID; the cells
// are flat.
func HyperBall(t *grid.Triangulation, center r3.Vec, radius float64) error {
	if t.Dim() != 2 {
		return fmt.Errorf("hyper ball is implemented in 2D only, triangulation has dimension %d", t.Dim())
	}
	if radius <= 0 {
		return fmt.Errorf("hyper ball: radius %g must be positive", radius)
	}
	var verts []r3.Vec
	for _, p := range discVertices(radius) {
		verts = append(verts, r3.Add(center, r3.Vec{X: p[0], Y: p[1]}))
	}
	cells := make([]grid.CellData, len(ballCells))
	for i, c := range ballCells {
		cells[i] = grid.CellData{Vertices: c[:], ManifoldID: grid.FlatManifoldID}
	}
	if err := t.CreateTriangulation(verts, cells, nil); err != nil {
		return err
	}
	t.SetAllManifoldIDsOnBoundary(HullManifoldID)
	return nil
}

// HyperShell fills the 2D triangulation t with the annulus between the
// circles of radius inner and outer around center, using nCells cells around
// the ring (8 when nCells is 0). Every object gets manifold id 0, the caller
// attaches the manifold. With colorize the inner boundary has id 0 and the
// outer id 1, otherwise both have id 0.
func HyperShell(t *grid.Triangulation, center r3.Vec, inner, outer float64, nCells int, colorize bool) error {
	if t.Dim() != 2 {
		return fmt.Errorf("hyper shell is implemented in 2D only, triangulation has dimension %d", t.Dim())
	}
	if inner <= 0 || outer <= inner {
		return fmt.Errorf("hyper shell: need 0 < inner < outer, got %g and %g", inner, outer)
	}
	if nCells == 0 {
		nCells = 8
	}
	if nCells < 3 {
		return fmt.Errorf("hyper shell: need at least 3 cells, got %d", nCells)
	}
	verts := make([]r3.Vec, 2*nCells)
	for i := 0; i < nCells; i++ {
		phi := 2 * math.Pi * float64(i) / float64(nCells)
		dir := r3.Vec{X: math.Cos(phi), Y: math.Sin(phi)}
		verts[i] = r3.Add(center, r3.Scale(inner, dir))
		verts[nCells+i] = r3.Add(center, r3.Scale(outer, dir))
	}
	cells := make([]grid.CellData, nCells)
	for i := range cells {
		j := (i + 1) % nCells
		cells[i] = grid.CellData{Vertices: []int{i, nCells + i, j, nCells + j}}
	}
	var sub *grid.SubCellData
	if colorize {
		sub = &grid.SubCellData{}
		for i := 0; i < nCells; i++ {
			j := (i + 1) % nCells
			sub.Faces = append(sub.Faces, grid.ObjectData{Vertices: []int{nCells + i, nCells + j}, BoundaryID: 1})
		}
	}
	if err := t.CreateTriangulation(verts, cells, sub); err != nil {
		return err
	}
	t.SetAllManifoldIDs(0)
	return nil
}

// Cylinder fills the 3D triangulation t with a cylinder around the x axis
// from -halfLength to halfLength. Each of its two layers is the five cell
// disc extruded along x. The hull has boundary id 0 and manifold id
// HullManifoldID, the face at -halfLength id 1 and the one at +halfLength
// id 2. Cells and end faces are flat.
func Cylinder(t *grid.Triangulation, radius, halfLength float64) error {
	if t.Dim() != 3 {
		return fmt.Errorf("cylinder needs a 3D triangulation, got dimension %d", t.Dim())
	}
	if radius <= 0 || halfLength <= 0 {
		return fmt.Errorf("cylinder: radius %g and half length %g must be positive", radius, halfLength)
	}
	disc := discVertices(radius)
	xs := [3]float64{-halfLength, 0, halfLength}
	var verts []r3.Vec
	for _, x := range xs {
		for _, p := range disc {
			verts = append(verts, r3.Vec{X: x, Y: p[0], Z: p[1]})
		}
	}

	var (
		cells []grid.CellData
		sub   grid.SubCellData
	)
	for layer := 0; layer < 2; layer++ {
		for _, q := range ballCells {
			hex := make([]int, 8)
			for v := range hex {
				hex[v] = 8*(layer+(v&1)) + q[v>>1]
			}
			cells = append(cells, grid.CellData{Vertices: hex, ManifoldID: grid.FlatManifoldID})
			end := grid.ObjectData{BoundaryID: 1, ManifoldID: grid.FlatManifoldID}
			if layer == 0 {
				end.Vertices = []int{hex[0], hex[2], hex[4], hex[6]}
			} else {
				end.Vertices = []int{hex[1], hex[3], hex[5], hex[7]}
				end.BoundaryID = 2
			}
			sub.Faces = append(sub.Faces, end)
		}
	}
	if err := t.CreateTriangulation(verts, cells, &sub); err != nil {
		return err
	}
	t.SetManifoldIDsOnBoundary(0, HullManifoldID)
	return nil
}
