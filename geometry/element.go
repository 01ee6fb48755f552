package geometry

import "fmt"

type Dimensionality uint8

const (
	D1 Dimensionality = iota
	D2
	D3
)

// Int returns the space dimension as a count
func (d Dimensionality) Int() int { return int(d) + 1 }

type ElementGeometry uint8

const (
	Hex ElementGeometry = iota
	Rectangle
	Line
)

func (g ElementGeometry) String() string {
	switch g {
	case Hex:
		return "Hex"
	case Rectangle:
		return "Rectangle"
	case Line:
		return "Line"
	}
	return fmt.Sprintf("ElementGeometry(%d)", uint8(g))
}

// Info describes the reference hypercube [0,1]^dim.
//
// Local vertices are numbered lexicographically: bit d of a vertex number is
// its reference coordinate along axis d. Face 2d+s is the face on which axis d
// equals s. Child c of a refined cell owns corner vertex c of its parent.
type Info struct {
	Dim             int
	Dimensions      Dimensionality
	Geometry        ElementGeometry
	VerticesPerCell int
	VerticesPerFace int
	FacesPerCell    int
	LinesPerCell    int
	ChildrenPerCell int

	// Face -> local vertices, lexicographic within the face
	FaceVertices [][]int
	// Line -> local vertices
	LineVertices [][2]int

	VtkCode   int    // VTK cell type
	VtkOrder  []int  // VTK node i is local vertex VtkOrder[i]
	GofemType string // gofem geometry name
	// gofem face i is local face GofemFaces[i]
	GofemFaces []int
}

var quadInfo = &Info{
	Dim:             2,
	Dimensions:      D2,
	Geometry:        Rectangle,
	VerticesPerCell: 4,
	VerticesPerFace: 2,
	FacesPerCell:    4,
	LinesPerCell:    4,
	ChildrenPerCell: 4,
	FaceVertices: [][]int{
		{0, 2}, {1, 3}, {0, 1}, {2, 3},
	},
	LineVertices: [][2]int{
		{0, 2}, {1, 3}, {0, 1}, {2, 3},
	},
	VtkCode:    9,
	VtkOrder:   []int{0, 1, 3, 2},
	GofemType:  "qua4",
	GofemFaces: []int{2, 1, 3, 0},
}

var hexInfo = &Info{
	Dim:             3,
	Dimensions:      D3,
	Geometry:        Hex,
	VerticesPerCell: 8,
	VerticesPerFace: 4,
	FacesPerCell:    6,
	LinesPerCell:    12,
	ChildrenPerCell: 8,
	FaceVertices: [][]int{
		{0, 2, 4, 6}, {1, 3, 5, 7},
		{0, 1, 4, 5}, {2, 3, 6, 7},
		{0, 1, 2, 3}, {4, 5, 6, 7},
	},
	LineVertices: [][2]int{
		{0, 2}, {1, 3}, {0, 1}, {2, 3},
		{4, 6}, {5, 7}, {4, 5}, {6, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	},
	VtkCode:    12,
	VtkOrder:   []int{0, 1, 3, 2, 4, 5, 7, 6},
	GofemType:  "hex8",
	GofemFaces: []int{0, 1, 2, 3, 4, 5},
}

// InfoFor returns the reference cell description for a space dimension
func InfoFor(dim int) (*Info, error) {
	switch dim {
	case 2:
		return quadInfo, nil
	case 3:
		return hexInfo, nil
	}
	return nil, fmt.Errorf("unsupported dimension %d, need 2 or 3", dim)
}

// InfoForGofemType returns the reference cell for a gofem geometry name
func InfoForGofemType(name string) (*Info, error) {
	for _, info := range []*Info{quadInfo, hexInfo} {
		if info.GofemType == name {
			return info, nil
		}
	}
	return nil, fmt.Errorf("unsupported cell type %q", name)
}

// ReferenceVertex returns the reference coordinates of a local vertex
func (o *Info) ReferenceVertex(v int) (r [3]float64) {
	for d := 0; d < o.Dim; d++ {
		r[d] = float64((v >> d) & 1)
	}
	return
}

// OppositeFace returns the face parallel to f on the other side of the cell
func (o *Info) OppositeFace(f int) int { return f ^ 1 }

// FaceNormalAxis returns the axis a face is normal to
func (o *Info) FaceNormalAxis(f int) int { return f / 2 }

// ChildOnFace reports whether child c touches parent face f
func (o *Info) ChildOnFace(c, f int) bool {
	return (c>>(f/2))&1 == f%2
}

// ChildrenOnFace lists the children touching parent face f
func (o *Info) ChildrenOnFace(f int) []int {
	children := make([]int, 0, o.ChildrenPerCell/2)
	for c := 0; c < o.ChildrenPerCell; c++ {
		if o.ChildOnFace(c, f) {
			children = append(children, c)
		}
	}
	return children
}
