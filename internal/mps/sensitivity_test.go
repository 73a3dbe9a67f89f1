package mps

import (
	"errors"
	"math"
	"testing"

	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/quad"
	"github.com/stretchr/testify/require"
)

var (
	scaling     = &Direction{DX: []float64{0, 1, 1, 0}, DY: []float64{0, 0, 1, 1}}
	translation = &Direction{DX: []float64{1, 1, 1, 1}, DY: []float64{0, 0, 0, 0}}
)

func TestOutwardNormalDerivatives(t *testing.T) {
	p := newSquare(t, WithDefaultQuadrature(20, 10))
	lambda := 2 * math.Pi * math.Pi

	dn, err := p.OutwardNormalDerivatives(lambda, 12)
	require.NoError(t, err)
	require.Len(t, dn, 4)

	nodes, _, err := quad.Legendre(12)
	require.NoError(t, err)
	for e, d := range dn {
		r, c := d.Dims()
		require.Equal(t, 12, r)
		require.Equal(t, 1, c)
		// |du/dn| = 2 pi sin(pi t) on every edge of the square
		for i, s := range nodes {
			require.InDelta(t, 2*math.Pi*math.Sin(math.Pi*s), math.Abs(d.At(i, 0)), 1e-2, "edge %d node %d", e, i)
		}
	}

	_, err = p.OutwardNormalDerivatives(lambda, 0)
	require.ErrorIs(t, err, ErrInputShape)
}

func TestGramTensors(t *testing.T) {
	p := newSquare(t, WithDefaultQuadrature(20, 10))
	lambda := 2 * math.Pi * math.Pi

	g, err := p.GramTensors(lambda, DefaultEdgeNodes)
	require.NoError(t, err)
	require.Len(t, g.X, 4)
	require.Len(t, g.Y, 4)
	require.Equal(t, 1, g.Mult())

	// moving the whole square leaves lambda unchanged
	var sx, sy float64
	for v := range g.X {
		sx += g.X[v].At(0, 0)
		sy += g.Y[v].At(0, 0)
	}
	require.InDelta(t, 0, sx, 1e-3*lambda)
	require.InDelta(t, 0, sy, 1e-3*lambda)
}

func TestShapeDerivativeSimple(t *testing.T) {
	p := newSquare(t, WithDefaultQuadrature(20, 10))
	lambda := 2 * math.Pi * math.Pi

	d, err := p.ShapeDerivative(lambda, 1e-4, scaling)
	require.NoError(t, err)
	require.Equal(t, 1, d.Multiplicity)
	require.Len(t, d.Values, 1)
	require.InDelta(t, -2*lambda, d.Values[0], 1e-3*lambda)

	d, err = p.ShapeDerivative(lambda, 1e-4, translation)
	require.NoError(t, err)
	require.InDelta(t, 0, d.Values[0], 1e-3*lambda)

	d, err = p.ShapeDerivative(lambda, 1e-4, nil)
	require.NoError(t, err)
	require.Len(t, d.GradX, 4)
	require.Len(t, d.GradY, 4)
	require.Len(t, d.Gradient(), 8)

	var dot float64
	for v := 0; v < 4; v++ {
		dot += scaling.DX[v]*d.GradX[v] + scaling.DY[v]*d.GradY[v]
	}
	require.InDelta(t, -2*lambda, dot, 1e-3*lambda)
}

func TestShapeDerivativeRepeated(t *testing.T) {
	p := newSquare(t, WithDefaultQuadrature(20, 10))
	lambda := 5 * math.Pi * math.Pi

	_, err := p.ShapeDerivative(lambda, 1e-4, nil)
	var rep *RepeatedEigenvalueError
	require.True(t, errors.As(err, &rep))
	require.Equal(t, 2, rep.Multiplicity)

	d, err := p.ShapeDerivative(lambda, 1e-4, scaling)
	require.NoError(t, err)
	require.Equal(t, 2, d.Multiplicity)
	require.Len(t, d.Values, 2)
	for _, v := range d.Values {
		require.InDelta(t, -2*lambda, v, 1e-2*lambda)
	}
}

func TestShapeDerivativeErrors(t *testing.T) {
	p := newSquare(t, WithDefaultQuadrature(20, 10))
	lambda := 2 * math.Pi * math.Pi

	_, err := p.ShapeDerivative(lambda, 1e-4, &Direction{DX: []float64{1}, DY: []float64{1}})
	require.ErrorIs(t, err, ErrInputShape)

	_, err = p.ShapeDerivative(lambda, 0, nil)
	require.ErrorIs(t, err, ErrInputShape)

	// a tolerance no sine can meet disagrees with the eigenbasis
	_, err = p.ShapeDerivative(lambda, 1e-300, scaling)
	var mm *MultiplicityMismatchError
	require.True(t, errors.As(err, &mm))
	require.Equal(t, 0, mm.Angles)
	require.Equal(t, 1, mm.Gram)

	q := newSquare(t)
	_, err = q.ShapeDerivative(lambda, 1e-4, scaling)
	require.ErrorIs(t, err, ErrNoQuadrature)
}

func TestMeshQuadrature(t *testing.T) {
	grid := []geom.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}, {X: 0, Y: 1}, {X: 0.5, Y: 1}, {X: 1, Y: 1}}
	cells, err := quad.Mesh(grid, [][]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {3, 4, 7, 6}, {4, 5, 8, 7}}, 10)
	require.NoError(t, err)

	p := newSquare(t, WithMeshQuadrature(20, cells))
	require.True(t, p.HasQuadrature())
	lambda := 2 * math.Pi * math.Pi

	d, err := p.ShapeDerivative(lambda, 1e-4, scaling)
	require.NoError(t, err)
	require.InDelta(t, -2*lambda, d.Values[0], 1e-3*lambda)

	_, err = New(square, []int{15, 0, 0, 0}, WithMeshQuadrature(0, cells))
	require.ErrorIs(t, err, ErrInputShape)
}

func TestMeshQuadratureNonStarShaped(t *testing.T) {
	// L shape whose fan from the first vertex folds over the reflex corner
	ell := []geom.Point{{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0}}
	orders := []int{0, 0, 15, 0, 0, 0}

	_, err := New(ell, orders, WithDefaultQuadrature(20, 10))
	require.ErrorIs(t, err, quad.ErrNotStarShaped)

	grid := []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}}
	cells, err := quad.Mesh(grid, [][]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {3, 4, 7, 6}}, 10)
	require.NoError(t, err)
	require.InDelta(t, 3.0, cells.Total(), 1e-12)

	p, err := New(ell, orders, WithMeshQuadrature(20, cells))
	require.NoError(t, err)
	require.True(t, p.HasQuadrature())

	// first eigenvalue of the L shape with unit arms
	at, err := p.WeightedSubspaceSines(9.6397238)
	require.NoError(t, err)
	off, err := p.WeightedSubspaceSines(8.5)
	require.NoError(t, err)
	require.Less(t, at[0], off[0]/10)
}
