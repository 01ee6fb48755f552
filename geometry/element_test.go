package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoFor(t *testing.T) {
	_, err := InfoFor(1)
	assert.Error(t, err)

	for _, dim := range []int{2, 3} {
		info, err := InfoFor(dim)
		require.NoError(t, err)
		assert.Equal(t, dim, info.Dim)
		assert.Equal(t, dim, info.Dimensions.Int())
		assert.Equal(t, 1<<dim, info.VerticesPerCell)
		assert.Equal(t, 2*dim, info.FacesPerCell)
		assert.Len(t, info.FaceVertices, info.FacesPerCell)
		assert.Len(t, info.LineVertices, info.LinesPerCell)

		// every face vertex sits on the face plane
		for f, verts := range info.FaceVertices {
			assert.Len(t, verts, info.VerticesPerFace)
			axis := info.FaceNormalAxis(f)
			for _, v := range verts {
				r := info.ReferenceVertex(v)
				assert.Equal(t, float64(f%2), r[axis], "face %d vertex %d", f, v)
			}
		}

		// lines join vertices differing in exactly one bit
		for _, l := range info.LineVertices {
			diff := l[0] ^ l[1]
			assert.True(t, diff != 0 && diff&(diff-1) == 0, "line %v", l)
		}
	}
}

func TestChildrenOnFace(t *testing.T) {
	info, _ := InfoFor(3)
	assert.Equal(t, []int{0, 2, 4, 6}, info.ChildrenOnFace(0))
	assert.Equal(t, []int{4, 5, 6, 7}, info.ChildrenOnFace(5))
	assert.Equal(t, 3, info.OppositeFace(2))

	info2, _ := InfoFor(2)
	assert.Equal(t, []int{2, 3}, info2.ChildrenOnFace(3))
}

func TestInfoForGofemType(t *testing.T) {
	info, err := InfoForGofemType("hex8")
	require.NoError(t, err)
	assert.Equal(t, Hex, info.Geometry)
	_, err = InfoForGofemType("tri3")
	assert.Error(t, err)
	assert.Equal(t, "Rectangle", Rectangle.String())
}
