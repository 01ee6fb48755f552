package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatticeRoundTrip(t *testing.T) {
	info, _ := InfoFor(3)
	assert.Equal(t, 27, info.NumLatticePoints())
	for i := 0; i < info.NumLatticePoints(); i++ {
		assert.Equal(t, i, info.LatticeIndex(info.LatticePointAt(i)))
	}
	groups := info.LatticeByOrder()
	assert.Len(t, groups[0], 8)
	assert.Len(t, groups[1], 12)
	assert.Len(t, groups[2], 6)
	assert.Len(t, groups[3], 1)
}

func TestChildLatticePoint(t *testing.T) {
	info, _ := InfoFor(2)
	// child 3 occupies the upper right quarter; its vertex 0 is the cell centre
	assert.Equal(t, LatticePoint{1, 1, 0}, info.ChildLatticePoint(3, 0))
	assert.Equal(t, LatticePoint{2, 2, 0}, info.ChildLatticePoint(3, 3))
	assert.Equal(t, LatticePoint{0, 1, 0}, info.ChildLatticePoint(0, 2))
}

func TestLatticeCorners(t *testing.T) {
	info, _ := InfoFor(3)
	assert.Equal(t, []int{0, 1}, info.LatticeCorners(LatticePoint{1, 0, 0}))
	assert.Equal(t, []int{4, 5, 6, 7}, info.LatticeCorners(LatticePoint{1, 1, 2}))
	assert.Len(t, info.LatticeCorners(LatticePoint{1, 1, 1}), 8)
	assert.Equal(t, []int{7}, info.LatticeCorners(LatticePoint{2, 2, 2}))
}

func TestEnclosingObject(t *testing.T) {
	info, _ := InfoFor(3)

	// half of the bottom front line
	order, corners := info.EnclosingObject([]LatticePoint{{0, 0, 0}, {1, 0, 0}})
	assert.Equal(t, 1, order)
	assert.Equal(t, []int{0, 1}, corners)

	// a line inside face z=0
	order, corners = info.EnclosingObject([]LatticePoint{{1, 0, 0}, {1, 1, 0}})
	assert.Equal(t, 2, order)
	assert.Equal(t, []int{0, 1, 2, 3}, corners)

	// a line through the cell interior
	order, _ = info.EnclosingObject([]LatticePoint{{1, 1, 0}, {1, 1, 1}})
	assert.Equal(t, 3, order)
}

func TestCoonsWeights(t *testing.T) {
	info, _ := InfoFor(3)
	for obj := 1; obj <= 3; obj++ {
		l := LatticePoint{}
		for d := 0; d < obj; d++ {
			l[d] = 1
		}
		sum := 0.
		for sub := 0; sub < obj; sub++ {
			sum += float64(len(info.LatticeSubPoints(l, sub))) * CoonsWeight(obj, sub)
		}
		assert.InDelta(t, 1.0, sum, 1e-15, "object order %d", obj)
	}
}
