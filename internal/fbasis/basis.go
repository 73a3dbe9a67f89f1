// Package fbasis evaluates corner-adapted Fourier-Bessel bases on polygons.
//
// For a vertex with interior angle pi/alpha the basis functions are
//
//	J_{alpha j}(sqrt(lambda) r) sin(alpha j phi),  j = 1..order
//
// in polar coordinates (r, phi) about the vertex, phi measured from the
// outgoing edge. Every function vanishes on both edges adjacent to its vertex.
package fbasis

import (
	"errors"
	"fmt"
	"math"

	"github.com/KyungWonPark/mps/internal/geom"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrOrders is returned when the expansion orders do not match the vertices.
	ErrOrders = errors.New("fbasis: invalid expansion orders")

	// ErrNoFunctions is returned when every expansion order is zero.
	ErrNoFunctions = errors.New("fbasis: basis has no functions")

	// ErrNoPoints is returned when there is nothing to evaluate the basis on.
	ErrNoPoints = errors.New("fbasis: no evaluation points")

	// ErrLambda is returned for non-positive or non-finite lambda.
	ErrLambda = errors.New("fbasis: lambda must be positive and finite")
)

type term struct {
	vertex int
	nu     float64
}

// Basis is a Fourier-Bessel basis adapted to the corners of a polygon
type Basis struct {
	origin   []geom.Point
	edge     []float64
	angle    []float64
	radius   []float64
	orders   []int
	terms    []term
	defaults []geom.Point
}

// New builds the basis with orders[k] functions at vertex k
func New(poly *geom.Polygon, orders []int) (*Basis, error) {
	if len(orders) != poly.Len() {
		return nil, fmt.Errorf("%w: %d orders for %d vertices", ErrOrders, len(orders), poly.Len())
	}

	b := &Basis{
		origin: poly.Vertices(),
		edge:   poly.EdgeAngles(),
		angle:  poly.InteriorAngles(),
		radius: poly.Radii(),
		orders: append([]int(nil), orders...),
	}

	for v, order := range orders {
		if order < 0 {
			return nil, fmt.Errorf("%w: order %d at vertex %d", ErrOrders, order, v)
		}
		alpha := math.Pi / b.angle[v]
		for j := 1; j <= order; j++ {
			b.terms = append(b.terms, term{vertex: v, nu: alpha * float64(j)})
		}
	}
	if len(b.terms) == 0 {
		return nil, ErrNoFunctions
	}

	return b, nil
}

// Len returns the number of basis functions
func (b *Basis) Len() int {
	return len(b.terms)
}

// Orders returns the expansion order at every vertex
func (b *Basis) Orders() []int {
	return append([]int(nil), b.orders...)
}

// SetDefaultPoints sets the points used when Eval or Grad get no points
func (b *Basis) SetDefaultPoints(pts []geom.Point) {
	b.defaults = append([]geom.Point(nil), pts...)
}

func (b *Basis) points(pts []geom.Point) ([]geom.Point, error) {
	if pts == nil {
		pts = b.defaults
	}
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}
	return pts, nil
}

// polar returns r, the local angle phi and the global angle psi of p about vertex v
func (b *Basis) polar(v int, p geom.Point) (float64, float64, float64) {
	d := p.Sub(b.origin[v])
	psi := math.Atan2(d.Y, d.X)
	phi := math.Mod(psi-b.edge[v], 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	// branch cut opposite the wedge
	if phi > b.angle[v]/2+math.Pi {
		phi -= 2 * math.Pi
	}
	return d.Norm(), phi, psi
}

// scales returns the per-function normalization at wavenumber k
func (b *Basis) scales(k float64) []float64 {
	s := make([]float64, len(b.terms))
	for c, t := range b.terms {
		x := math.Min(k*b.radius[t.vertex], firstMax(t.nu))
		j, _ := besselJ(t.nu, x)
		s[c] = 1 / j
	}
	return s
}

func wavenumber(lambda float64) (float64, error) {
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return 0, fmt.Errorf("%w: got %g", ErrLambda, lambda)
	}
	return math.Sqrt(lambda), nil
}

// Eval returns the matrix of basis function values, one row per point.
// A nil point set selects the default points.
func (b *Basis) Eval(lambda float64, pts []geom.Point) (*mat.Dense, error) {
	k, err := wavenumber(lambda)
	if err != nil {
		return nil, err
	}
	pts, err = b.points(pts)
	if err != nil {
		return nil, err
	}

	s := b.scales(k)
	a := mat.NewDense(len(pts), len(b.terms), nil)
	for i, p := range pts {
		for c, t := range b.terms {
			r, phi, _ := b.polar(t.vertex, p)
			j, _ := besselJ(t.nu, k*r)
			a.Set(i, c, s[c]*j*math.Sin(t.nu*phi))
		}
	}
	return a, nil
}

// Grad returns the x and y partial derivatives of the basis functions.
// A nil point set selects the default points.
func (b *Basis) Grad(lambda float64, pts []geom.Point) (*mat.Dense, *mat.Dense, error) {
	k, err := wavenumber(lambda)
	if err != nil {
		return nil, nil, err
	}
	pts, err = b.points(pts)
	if err != nil {
		return nil, nil, err
	}

	s := b.scales(k)
	dx := mat.NewDense(len(pts), len(b.terms), nil)
	dy := mat.NewDense(len(pts), len(b.terms), nil)
	for i, p := range pts {
		for c, t := range b.terms {
			r, phi, psi := b.polar(t.vertex, p)
			if r == 0 {
				continue
			}
			j0, j1 := besselJ(t.nu, k*r)
			sin, cos := math.Sincos(t.nu * phi)

			// J'_nu(x) = nu/x J_nu(x) - J_{nu+1}(x)
			dr := s[c] * (t.nu/r*j0 - k*j1) * sin
			dphi := s[c] * t.nu / r * j0 * cos

			sinPsi, cosPsi := math.Sincos(psi)
			dx.Set(i, c, cosPsi*dr-sinPsi*dphi)
			dy.Set(i, c, sinPsi*dr+cosPsi*dphi)
		}
	}
	return dx, dy, nil
}
