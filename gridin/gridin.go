// Package gridin reads coarse meshes into a triangulation: gofem JSON meshes
// directly, Gmsh and Gambit files through the gocfd readers.
package gridin

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"github.com/notargets/gocfd/utils"
	"github.com/notargets/gridgen/geometry"
	"github.com/notargets/gridgen/grid"
	"github.com/notargets/gridgen/gridout"
	"gonum.org/v1/gonum/spatial/r3"
)

// gmshHex maps lexicographic hex vertices onto the counter-clockwise node
// order gocfd uses for every hexahedron; its first half does the same for
// quadrilaterals
var gmshHex = [8]int{0, 1, 3, 2, 4, 5, 7, 6}

// ReadMsh decodes a gofem JSON mesh. Cell tags become material ids and face
// tags boundary ids; all objects are flat.
func ReadMsh(r io.Reader) (*grid.Triangulation, error) {
	var msh gridout.Msh
	if err := json.NewDecoder(r).Decode(&msh); err != nil {
		return nil, fmt.Errorf("decode msh: %w", err)
	}
	if len(msh.Verts) < 2 || len(msh.Cells) < 1 {
		return nil, fmt.Errorf("msh needs at least 2 vertices and 1 cell, got %d and %d",
			len(msh.Verts), len(msh.Cells))
	}
	dim := len(msh.Verts[0].C)
	info, err := geometry.InfoFor(dim)
	if err != nil {
		return nil, fmt.Errorf("msh vertex 0: %w", err)
	}

	verts := make([]r3.Vec, len(msh.Verts))
	for i, v := range msh.Verts {
		if v.ID != i {
			return nil, fmt.Errorf("msh vertex %d has id %d", i, v.ID)
		}
		if len(v.C) != dim {
			return nil, fmt.Errorf("msh vertex %d has %d coordinates, expected %d", i, len(v.C), dim)
		}
		var x [3]float64
		copy(x[:], v.C)
		verts[i] = r3.Vec{X: x[0], Y: x[1], Z: x[2]}
	}

	cells := make([]grid.CellData, len(msh.Cells))
	sub := &grid.SubCellData{}
	for i, c := range msh.Cells {
		if c.Type != info.GofemType {
			return nil, fmt.Errorf("msh cell %d has type %q, only %q is supported in %dD", i, c.Type, info.GofemType, dim)
		}
		if len(c.Verts) != info.VerticesPerCell {
			return nil, fmt.Errorf("msh cell %d has %d vertices", i, len(c.Verts))
		}
		lex := make([]int, info.VerticesPerCell)
		for k, lv := range info.VtkOrder {
			lex[lv] = c.Verts[k]
		}
		cells[i] = grid.CellData{
			Vertices:   lex,
			MaterialID: gridout.MaterialFromTag(c.Tag),
			ManifoldID: grid.FlatManifoldID,
		}
		if len(c.FTags) > 0 && len(c.FTags) != info.FacesPerCell {
			return nil, fmt.Errorf("msh cell %d has %d face tags for %d faces", i, len(c.FTags), info.FacesPerCell)
		}
		for k, tag := range c.FTags {
			b, ok := gridout.BoundaryFromTag(tag)
			if !ok {
				continue
			}
			local := info.FaceVertices[info.GofemFaces[k]]
			fv := make([]int, len(local))
			for j, lv := range local {
				fv[j] = lex[lv]
			}
			sub.Faces = append(sub.Faces, grid.ObjectData{Vertices: fv, BoundaryID: b, ManifoldID: grid.FlatManifoldID})
		}
	}

	t, err := grid.NewTriangulation(dim)
	if err != nil {
		return nil, err
	}
	if err := t.CreateTriangulation(verts, cells, sub); err != nil {
		return nil, fmt.Errorf("msh: %w", err)
	}
	return t, nil
}

func ReadMshFile(path string) (*grid.Triangulation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadMsh(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadMeshFile reads a Gmsh, Gambit or SU2 file. The cells are the
// hexahedra of a 3D mesh or the quadrilaterals of a 2D one, higher order
// variants contribute their corners. Boundary elements become boundary ids:
// the number of a "boundary_<n>" tag, the physical tag of a named group, or
// ids above those for the remaining names in sorted order.
func ReadMeshFile(path string) (*grid.Triangulation, error) {
	m, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := fromGocfdMesh(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func fromGocfdMesh(m *mesh.Mesh) (*grid.Triangulation, error) {
	dim := m.GetMeshDimension()
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("mesh of dimension %d has no quadrilateral or hexahedral cells", dim)
	}
	verts := make([][3]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		copy(verts[i][:], v)
	}

	ids := boundaryIDs(m)
	var (
		elems [][]int
		faces []grid.ObjectData
	)
	for k := 0; k < m.NumElements; k++ {
		etype := m.ElementTypes[k]
		switch etype.GetDimension() {
		case dim:
			corners, ok := cellCorners(etype, dim)
			if !ok {
				return nil, fmt.Errorf("element %d is a %s, only quadrilaterals and hexahedra are supported", k, etype)
			}
			if len(m.EtoV[k]) < corners {
				return nil, fmt.Errorf("element %d has %d nodes, need %d", k, len(m.EtoV[k]), corners)
			}
			elems = append(elems, m.EtoV[k][:corners])
		case dim - 1:
			// boundary elements listed before the cells
			var tag int
			if len(m.ElementTags[k]) > 0 {
				tag = m.ElementTags[k][0]
			}
			if f, ok := boundaryFace(etype, m.EtoV[k], dim, grid.BoundaryID(tag)); ok {
				faces = append(faces, f)
			}
		}
	}

	names := make([]string, 0, len(m.BoundaryElements))
	for name := range m.BoundaryElements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, be := range m.BoundaryElements[name] {
			etype, nodes := be.ElementType, be.Nodes
			if len(nodes) == 0 {
				// given as a face of a cell
				nodes = parentFace(m, be.ParentElement, be.ParentFace)
				etype = utils.Line
				if len(nodes) == 4 {
					etype = utils.Quad
				}
			}
			if f, ok := boundaryFace(etype, nodes, dim, ids[name]); ok {
				faces = append(faces, f)
			}
		}
	}

	var sub *grid.SubCellData
	if len(faces) > 0 {
		sub = &grid.SubCellData{Faces: faces}
	}
	if dim == 2 {
		return fromQuadElements(verts, elems, sub)
	}
	return fromHexElements(verts, elems, sub)
}

func parentFace(m *mesh.Mesh, elem, face int) []int {
	if elem < 0 || elem >= m.NumElements || face < 0 {
		return nil
	}
	if _, ok := cellCorners(m.ElementTypes[elem], m.ElementTypes[elem].GetDimension()); !ok {
		return nil
	}
	faces := utils.GetElementFaces(m.ElementTypes[elem], m.EtoV[elem])
	if face >= len(faces) {
		return nil
	}
	return faces[face]
}

// cellCorners returns the number of corner nodes of a cell type usable in a
// mesh of dimension dim
func cellCorners(etype utils.ElementType, dim int) (int, bool) {
	switch {
	case dim == 3 && (etype == utils.Hex || etype == utils.Hex20 || etype == utils.Hex27):
		return 8, true
	case dim == 2 && (etype == utils.Quad || etype == utils.Quad8 || etype == utils.Quad9):
		return 4, true
	}
	return 0, false
}

func boundaryFace(etype utils.ElementType, nodes []int, dim int, id grid.BoundaryID) (grid.ObjectData, bool) {
	want := 2
	if dim == 3 {
		if _, ok := cellCorners(etype, 2); !ok {
			return grid.ObjectData{}, false
		}
		want = 4
	} else if etype != utils.Line && etype != utils.Line3 {
		return grid.ObjectData{}, false
	}
	if len(nodes) < want {
		return grid.ObjectData{}, false
	}
	return grid.ObjectData{
		Vertices:   append([]int(nil), nodes[:want]...),
		BoundaryID: id,
		ManifoldID: grid.FlatManifoldID,
	}, true
}

// boundaryIDs numbers the boundary tag names of m
func boundaryIDs(m *mesh.Mesh) map[string]grid.BoundaryID {
	groups := make(map[string]int)
	for tag, g := range m.ElementGroups {
		if g != nil && g.Name != "" {
			groups[g.Name] = tag
		}
	}
	ids := make(map[string]grid.BoundaryID)
	var unnamed []string
	next := grid.BoundaryID(1)
	for name := range m.BoundaryElements {
		var n int
		if _, err := fmt.Sscanf(name, "boundary_%d", &n); err == nil {
			ids[name] = grid.BoundaryID(n)
		} else if tag, ok := groups[name]; ok {
			ids[name] = grid.BoundaryID(tag)
		} else {
			unnamed = append(unnamed, name)
			continue
		}
		if ids[name] >= next {
			next = ids[name] + 1
		}
	}
	sort.Strings(unnamed)
	for _, name := range unnamed {
		ids[name] = next
		next++
	}
	return ids
}

// fromHexElements builds a 3D triangulation from hexahedra given in Gmsh
// node order
func fromHexElements(verts [][3]float64, elems [][]int, sub *grid.SubCellData) (*grid.Triangulation, error) {
	return fromElements(3, verts, elems, gmshHex[:], sub)
}

// fromQuadElements builds a 2D triangulation from counter-clockwise
// quadrilaterals
func fromQuadElements(verts [][3]float64, elems [][]int, sub *grid.SubCellData) (*grid.Triangulation, error) {
	return fromElements(2, verts, elems, gmshHex[:4], sub)
}

func fromElements(dim int, verts [][3]float64, elems [][]int, order []int, sub *grid.SubCellData) (*grid.Triangulation, error) {
	points := make([]r3.Vec, len(verts))
	for i, v := range verts {
		points[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	cells := make([]grid.CellData, len(elems))
	for k, e := range elems {
		if len(e) != len(order) {
			return nil, fmt.Errorf("element %d has %d vertices, need %d", k, len(e), len(order))
		}
		lex := make([]int, len(order))
		for v := range lex {
			lex[v] = e[order[v]]
		}
		cells[k] = grid.CellData{Vertices: lex, ManifoldID: grid.FlatManifoldID}
	}
	t, err := grid.NewTriangulation(dim)
	if err != nil {
		return nil, err
	}
	if err := t.CreateTriangulation(points, cells, sub); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadFile picks the reader from the extension. A .msh file holding JSON is
// a gofem mesh, any other .msh is left to the Gmsh reader.
func ReadFile(path string) (*grid.Triangulation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msh":
		isJSON, err := startsWithBrace(path)
		if err != nil {
			return nil, err
		}
		if isJSON {
			return ReadMshFile(path)
		}
		return ReadMeshFile(path)
	case ".neu", ".su2":
		return ReadMeshFile(path)
	}
	return nil, fmt.Errorf("unknown mesh format %q", filepath.Ext(path))
}

func startsWithBrace(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 64)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	head = bytes.TrimSpace(head[:n])
	return len(head) > 0 && head[0] == '{', nil
}
