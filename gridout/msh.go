package gridout

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/notargets/gridgen/grid"
)

// Msh is the JSON mesh layout read by gofem: vertices, cells with negative
// tags, and per face tags where 0 means untagged
type Msh struct {
	Verts []*MshVert `json:"verts"`
	Cells []*MshCell `json:"cells"`
}

type MshVert struct {
	ID  int       `json:"id"`
	Tag int       `json:"tag"`
	C   []float64 `json:"c"`
}

type MshCell struct {
	ID    int    `json:"id"`
	Tag   int    `json:"tag"`
	Type  string `json:"type"`
	Part  int    `json:"part"`
	Verts []int  `json:"verts"`
	FTags []int  `json:"ftags,omitempty"`
}

// CellTag maps a material id onto a negative cell tag
func CellTag(m grid.MaterialID) int { return -(int(m) + 1) }

// MaterialFromTag inverts CellTag; non-negative tags are taken as they are
func MaterialFromTag(tag int) grid.MaterialID {
	if tag < 0 {
		return grid.MaterialID(-tag - 1)
	}
	return grid.MaterialID(tag)
}

// FaceTag maps a boundary id onto a negative face tag
func FaceTag(b grid.BoundaryID) int { return -(int(b) + 1) }

// BoundaryFromTag inverts FaceTag; ok is false for untagged faces
func BoundaryFromTag(tag int) (b grid.BoundaryID, ok bool) {
	switch {
	case tag < 0:
		return grid.BoundaryID(-tag - 1), true
	case tag > 0:
		return grid.BoundaryID(tag), true
	}
	return 0, false
}

// BuildMsh converts the active mesh. parts, if given, holds a partition id
// per active cell.
func BuildMsh(t *grid.Triangulation, parts []int) (*Msh, error) {
	if t.Empty() {
		return nil, fmt.Errorf("cannot write an empty triangulation")
	}
	active := t.ActiveCells()
	if parts != nil && len(parts) != len(active) {
		return nil, fmt.Errorf("%d partition ids for %d active cells", len(parts), len(active))
	}
	info := t.Info()
	dim := t.Dim()
	order, index := usedVertices(t)

	msh := &Msh{}
	for i, v := range order {
		p := point(t.Vertex(v))
		msh.Verts = append(msh.Verts, &MshVert{ID: i, C: append([]float64(nil), p[:dim]...)})
	}
	for i, c := range active {
		mc := &MshCell{
			ID:    i,
			Tag:   CellTag(c.MaterialID),
			Type:  info.GofemType,
			Verts: make([]int, info.VerticesPerCell),
			FTags: make([]int, info.FacesPerCell),
		}
		if parts != nil {
			mc.Part = parts[i]
		}
		for k, lv := range info.VtkOrder {
			mc.Verts[k] = index[c.Vertices[lv]]
		}
		hasTag := false
		for k, f := range info.GofemFaces {
			if c.AtBoundary(f) {
				mc.FTags[k] = FaceTag(c.BoundaryID(f))
				hasTag = true
			}
		}
		if !hasTag {
			mc.FTags = nil
		}
		msh.Cells = append(msh.Cells, mc)
	}
	return msh, nil
}

// WriteMsh writes the active mesh as gofem JSON
func WriteMsh(t *grid.Triangulation, w io.Writer, parts []int) error {
	msh, err := BuildMsh(t, parts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(msh)
}
