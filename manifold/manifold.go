// Package manifold describes the geometry new mesh vertices are placed on
// when cells are refined.
package manifold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tol is the distance below which a point is treated as lying on a centre or axis
const Tol = 1e-14

// Manifold computes the location of a new vertex from the vertices of the
// object being refined and their weights. Weights sum to one.
type Manifold interface {
	NewPoint(points []r3.Vec, weights []float64) r3.Vec
	Name() string
}

// Flat places new points on straight lines and planes
type Flat struct{}

func (Flat) Name() string { return "flat" }

func (Flat) NewPoint(points []r3.Vec, weights []float64) r3.Vec {
	return linear(points, weights)
}

func linear(points []r3.Vec, weights []float64) (p r3.Vec) {
	for i, q := range points {
		p = r3.Add(p, r3.Scale(weights[i], q))
	}
	return
}

// Spherical places new points on spheres (circles in 2D) around Center: the
// radius is the weighted mean radius of the inputs and the direction the
// normalised weighted sum of their directions.
type Spherical struct {
	Center r3.Vec
}

func NewSpherical(center r3.Vec) *Spherical {
	return &Spherical{Center: center}
}

func (o *Spherical) Name() string {
	return fmt.Sprintf("spherical(%g,%g,%g)", o.Center.X, o.Center.Y, o.Center.Z)
}

func (o *Spherical) NewPoint(points []r3.Vec, weights []float64) r3.Vec {
	var (
		radius float64
		dir    r3.Vec
	)
	for i, q := range points {
		v := r3.Sub(q, o.Center)
		r := r3.Norm(v)
		radius += weights[i] * r
		if r > Tol {
			dir = r3.Add(dir, r3.Scale(weights[i]/r, v))
		}
	}
	if r3.Norm(dir) < Tol {
		return linear(points, weights)
	}
	return r3.Add(o.Center, r3.Scale(radius, r3.Unit(dir)))
}

// Cylindrical places new points on cylinders around the line through Point
// with direction Axis. The axial coordinate and the radius are weighted means
// of the inputs.
type Cylindrical struct {
	Axis  r3.Vec // unit direction
	Point r3.Vec // a point on the axis
}

// NewCylindrical returns a cylindrical manifold around an arbitrary axis
func NewCylindrical(direction, point r3.Vec) (*Cylindrical, error) {
	n := r3.Norm(direction)
	if n < Tol {
		return nil, fmt.Errorf("cylinder axis direction must be non-zero")
	}
	return &Cylindrical{Axis: r3.Scale(1/n, direction), Point: point}, nil
}

// NewCylindricalAxis returns a cylindrical manifold around the x (0), y (1)
// or z (2) coordinate axis
func NewCylindricalAxis(axis int) (*Cylindrical, error) {
	switch axis {
	case 0:
		return NewCylindrical(r3.Vec{X: 1}, r3.Vec{})
	case 1:
		return NewCylindrical(r3.Vec{Y: 1}, r3.Vec{})
	case 2:
		return NewCylindrical(r3.Vec{Z: 1}, r3.Vec{})
	}
	return nil, fmt.Errorf("invalid cylinder axis %d, need 0, 1 or 2", axis)
}

func (o *Cylindrical) Name() string {
	return fmt.Sprintf("cylindrical(%g,%g,%g)", o.Axis.X, o.Axis.Y, o.Axis.Z)
}

func (o *Cylindrical) NewPoint(points []r3.Vec, weights []float64) r3.Vec {
	var (
		axial, radius float64
		dir           r3.Vec
	)
	for i, q := range points {
		v := r3.Sub(q, o.Point)
		a := r3.Dot(v, o.Axis)
		radial := r3.Sub(v, r3.Scale(a, o.Axis))
		r := r3.Norm(radial)
		axial += weights[i] * a
		radius += weights[i] * r
		if r > Tol {
			dir = r3.Add(dir, r3.Scale(weights[i]/r, radial))
		}
	}
	if r3.Norm(dir) < Tol {
		return linear(points, weights)
	}
	onAxis := r3.Add(o.Point, r3.Scale(axial, o.Axis))
	return r3.Add(onAxis, r3.Scale(radius, r3.Unit(dir)))
}

// Distance returns the distance of p from the axis
func (o *Cylindrical) Distance(p r3.Vec) float64 {
	v := r3.Sub(p, o.Point)
	return r3.Norm(r3.Sub(v, r3.Scale(r3.Dot(v, o.Axis), o.Axis)))
}

// Distance returns the distance of p from the centre
func (o *Spherical) Distance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, o.Center))
}

// Equal compares two points within tol in every coordinate
func Equal(p, q r3.Vec, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol && math.Abs(p.Z-q.Z) <= tol
}
