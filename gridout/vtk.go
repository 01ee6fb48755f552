package gridout

import (
	"fmt"
	"io"

	"github.com/notargets/gridgen/grid"
)

// VtkFlags control the legacy VTK and VTU output
type VtkFlags struct {
	Title string
	// BoundaryFaces appends the active boundary faces as extra cells with a
	// BoundaryID array; cell arrays read -1 on them
	BoundaryFaces bool
	// CellData holds extra integer fields, one value per active cell
	CellData map[string][]int
}

const (
	vtkLine = 3
	vtkQuad = 9
)

type vtkCell struct {
	code  int
	verts []int // output vertex numbers in VTK order
}

// WriteVTK writes the active mesh as a legacy ASCII unstructured grid with
// the cell arrays MaterialID, ManifoldID and Level
func WriteVTK(t *grid.Triangulation, w io.Writer, flags VtkFlags) error {
	if t.Empty() {
		return fmt.Errorf("cannot write an empty triangulation")
	}
	names, err := checkFields(t, flags.CellData)
	if err != nil {
		return err
	}
	info := t.Info()
	order, index := usedVertices(t)
	active := t.ActiveCells()

	var cells []vtkCell
	for _, c := range active {
		vc := vtkCell{code: info.VtkCode}
		for _, lv := range info.VtkOrder {
			vc.verts = append(vc.verts, index[c.Vertices[lv]])
		}
		cells = append(cells, vc)
	}
	var faces []grid.BoundaryFace
	if flags.BoundaryFaces {
		faces = t.ActiveBoundaryFaces()
		for _, bf := range faces {
			fv := bf.Cell.FaceVertices(bf.Face)
			vc := vtkCell{code: vtkLine}
			if info.Dim == 3 {
				vc.code = vtkQuad
				fv = []int{fv[0], fv[1], fv[3], fv[2]}
			}
			for _, v := range fv {
				vc.verts = append(vc.verts, index[v])
			}
			cells = append(cells, vc)
		}
	}

	title := flags.Title
	if title == "" {
		title = "gridgen"
	}
	ew := &errWriter{w: w}
	ew.printf("# vtk DataFile Version 3.0\n%s\nASCII\nDATASET UNSTRUCTURED_GRID\n\n", title)
	ew.printf("POINTS %d double\n", len(order))
	for _, v := range order {
		p := point(t.Vertex(v))
		ew.printf("%.16g %.16g %.16g\n", p[0], p[1], p[2])
	}

	size := 0
	for _, c := range cells {
		size += len(c.verts) + 1
	}
	ew.printf("\nCELLS %d %d\n", len(cells), size)
	for _, c := range cells {
		ew.printf("%d", len(c.verts))
		for _, v := range c.verts {
			ew.printf(" %d", v)
		}
		ew.printf("\n")
	}
	ew.printf("\nCELL_TYPES %d\n", len(cells))
	for _, c := range cells {
		ew.printf("%d\n", c.code)
	}

	pad := func(vals []int) []int {
		for range faces {
			vals = append(vals, -1)
		}
		return vals
	}
	scalars := func(name string, vals []int) {
		ew.printf("SCALARS %s int 1\nLOOKUP_TABLE default\n", name)
		for _, v := range vals {
			ew.printf("%d\n", v)
		}
	}
	material := make([]int, len(active))
	manifold := make([]int, len(active))
	level := make([]int, len(active))
	for i, c := range active {
		material[i] = int(c.MaterialID)
		manifold[i] = int(c.ManifoldID)
		level[i] = c.Level
	}
	ew.printf("\nCELL_DATA %d\n", len(cells))
	scalars("MaterialID", pad(material))
	scalars("ManifoldID", pad(manifold))
	scalars("Level", pad(level))
	for _, name := range names {
		scalars(name, pad(append([]int(nil), flags.CellData[name]...)))
	}
	if flags.BoundaryFaces {
		bids := make([]int, len(active), len(cells))
		for i := range bids {
			bids[i] = -1
		}
		for _, bf := range faces {
			bids = append(bids, int(bf.BoundaryID))
		}
		scalars("BoundaryID", bids)
	}
	return ew.err
}

// WriteVTU writes the active mesh as an XML unstructured grid with the
// arrays nid, eid, level, tag and the extra cell fields
func WriteVTU(t *grid.Triangulation, w io.Writer, fields map[string][]int) error {
	if t.Empty() {
		return fmt.Errorf("cannot write an empty triangulation")
	}
	names, err := checkFields(t, fields)
	if err != nil {
		return err
	}
	info := t.Info()
	order, index := usedVertices(t)
	active := t.ActiveCells()

	ew := &errWriter{w: w}
	ew.printf("<?xml version=\"1.0\"?>\n<VTKFile type=\"UnstructuredGrid\" version=\"0.1\" byte_order=\"LittleEndian\">\n<UnstructuredGrid>\n")
	ew.printf("<Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n", len(order), len(active))

	ew.printf("<Points>\n<DataArray type=\"Float64\" NumberOfComponents=\"3\" format=\"ascii\">\n")
	for _, v := range order {
		p := point(t.Vertex(v))
		ew.printf("%23.15e %23.15e %23.15e ", p[0], p[1], p[2])
	}
	ew.printf("\n</DataArray>\n</Points>\n")

	ew.printf("<Cells>\n<DataArray type=\"Int32\" Name=\"connectivity\" format=\"ascii\">\n")
	for _, c := range active {
		for _, lv := range info.VtkOrder {
			ew.printf("%d ", index[c.Vertices[lv]])
		}
	}
	ew.printf("\n</DataArray>\n<DataArray type=\"Int32\" Name=\"offsets\" format=\"ascii\">\n")
	for i := range active {
		ew.printf("%d ", (i+1)*info.VerticesPerCell)
	}
	ew.printf("\n</DataArray>\n<DataArray type=\"UInt8\" Name=\"types\" format=\"ascii\">\n")
	for range active {
		ew.printf("%d ", info.VtkCode)
	}
	ew.printf("\n</DataArray>\n</Cells>\n")

	ew.printf("<PointData Scalars=\"TheScalars\">\n")
	ew.printf("<DataArray type=\"Int32\" Name=\"nid\" NumberOfComponents=\"1\" format=\"ascii\">\n")
	for _, v := range order {
		ew.printf("%d ", v)
	}
	ew.printf("\n</DataArray>\n</PointData>\n")

	array := func(name string, vals func(i int, c *grid.Cell) int) {
		ew.printf("<DataArray type=\"Int32\" Name=\"%s\" NumberOfComponents=\"1\" format=\"ascii\">\n", name)
		for i, c := range active {
			ew.printf("%d ", vals(i, c))
		}
		ew.printf("\n</DataArray>\n")
	}
	ew.printf("<CellData Scalars=\"TheScalars\">\n")
	array("eid", func(_ int, c *grid.Cell) int { return c.ID })
	array("level", func(_ int, c *grid.Cell) int { return c.Level })
	array("tag", func(_ int, c *grid.Cell) int { return int(c.MaterialID) })
	for _, name := range names {
		vals := fields[name]
		array(name, func(i int, _ *grid.Cell) int { return vals[i] })
	}
	ew.printf("</CellData>\n")
	ew.printf("</Piece>\n</UnstructuredGrid>\n</VTKFile>\n")
	return ew.err
}
