package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta on [-1,1] from the eigen decomposition of the
// symmetric recurrence matrix
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	if N == 0 {
		return []float64{-(alpha - beta) / (alpha + beta + 2.)}, []float64{2.}
	}

	h1 := make([]float64, N+1)
	for i := range h1 {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: d0[i] = -(β²-α²)/((2i+α+β)*(2i+α+β+2))
	d0 := make([]float64, N+1)
	fac := beta*beta - alpha*alpha
	for i := range d0 {
		d0[i] = fac / (h1[i] * (h1[i] + 2.))
	}
	if alpha+beta < 10*1.e-16 {
		d0[0] = 0.
	}

	d1 := make([]float64, N)
	for i := range d1 {
		ip1 := float64(i + 1)
		d1[i] = 2.0 / (h1[i] + 2.0) * math.Sqrt(
			ip1*(ip1+alpha+beta)*(ip1+alpha)*(ip1+beta)/(h1[i]+1)/(h1[i]+3),
		)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(NewSymTriDiagonal(d0, d1), true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)

	VVr := mat.NewDense(len(X), len(X), nil)
	eig.VectorsTo(VVr)
	W = make([]float64, len(X))
	g0 := Gamma0(alpha, beta)
	for i := range W {
		v := VVr.At(0, i)
		W[i] = v * v * g0
	}
	return X, W
}

func Gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	return math.Gamma(alpha+1.) * math.Gamma(beta+1.) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func NewSymTriDiagonal(d0, d1 []float64) *mat.SymDense {
	n := len(d0)
	tri := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		tri.SetSym(i, i, d0[i])
		if i < n-1 {
			tri.SetSym(i, i+1, d1[i])
		}
	}
	return tri
}

// GaussLegendre returns an n point Gauss rule mapped to [0,1]
func GaussLegendre(n int) (x, w []float64) {
	x, w = JacobiGQ(0, 0, n-1)
	for i := range x {
		x[i] = 0.5 * (x[i] + 1)
		w[i] *= 0.5
	}
	return
}

// TensorRule returns the tensor product of n point Gauss rules on [0,1]^dim
func (o *Info) TensorRule(n int) (points [][3]float64, weights []float64) {
	x, w := GaussLegendre(n)
	total := 1
	for d := 0; d < o.Dim; d++ {
		total *= n
	}
	points = make([][3]float64, total)
	weights = make([]float64, total)
	for q := 0; q < total; q++ {
		weights[q] = 1
		idx := q
		for d := 0; d < o.Dim; d++ {
			points[q][d] = x[idx%n]
			weights[q] *= w[idx%n]
			idx /= n
		}
	}
	return
}

// ShapeGradients evaluates the gradients of the multilinear shape functions
// at reference point r, one row per local vertex
func (o *Info) ShapeGradients(r [3]float64) (grad [][3]float64) {
	grad = make([][3]float64, o.VerticesPerCell)
	for v := range grad {
		for k := 0; k < o.Dim; k++ {
			g := 1.0
			for d := 0; d < o.Dim; d++ {
				bit := (v >> d) & 1
				switch {
				case d == k && bit == 1:
					g *= 1
				case d == k:
					g *= -1
				case bit == 1:
					g *= r[d]
				default:
					g *= 1 - r[d]
				}
			}
			grad[v][k] = g
		}
	}
	return
}
