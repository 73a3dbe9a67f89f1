package geom

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitSquare(t *testing.T) *Polygon {
	t.Helper()
	p, err := NewPolygon([]Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	require.NoError(t, err)
	return p
}

func TestNewPolygonRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name string
		vs   []Point
		want error
	}{
		{"two vertices", []Point{{0, 0}, {1, 0}}, ErrTooFewVertices},
		{"collinear", []Point{{0, 0}, {1, 0}, {2, 0}}, ErrDegenerate},
		{"repeated vertex", []Point{{0, 0}, {0, 0}, {1, 1}}, ErrDegenerate},
		{"clockwise", []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, ErrClockwise},
		{"nan", []Point{{0, 0}, {math.NaN(), 0}, {1, 1}}, ErrDegenerate},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPolygon(tc.vs)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSquareMeasures(t *testing.T) {
	p := unitSquare(t)
	require.InDelta(t, 1.0, p.Area(), 1e-15)
	require.InDelta(t, 4.0, p.Perimeter(), 1e-15)

	for _, a := range p.InteriorAngles() {
		require.InDelta(t, math.Pi/2, a, 1e-14)
	}

	want := []Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	for i, n := range p.Normals() {
		require.InDelta(t, want[i].X, n.X, 1e-15)
		require.InDelta(t, want[i].Y, n.Y, 1e-15)
	}

	for _, r := range p.Radii() {
		require.InDelta(t, math.Sqrt2, r, 1e-15)
	}
}

func TestReflexAngle(t *testing.T) {
	// L-shape, reflex corner at (1,1)
	p, err := NewPolygon([]Point{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}})
	require.NoError(t, err)
	require.InDelta(t, 3.0, p.Area(), 1e-14)
	require.InDelta(t, 3*math.Pi/2, p.InteriorAngles()[3], 1e-14)
	require.False(t, p.Contains(Point{1.5, 1.5}))
	require.True(t, p.Contains(Point{0.5, 1.5}))
}

func TestBoundaryPointsAndEdgeIndices(t *testing.T) {
	p := unitSquare(t)
	pts, err := p.BoundaryPoints([]int{3, 0, 1, 0})
	require.NoError(t, err)
	require.Len(t, pts, 4)
	require.InDelta(t, 0.25, pts[0].X, 1e-15)
	require.InDelta(t, 0.5, pts[3].X, 1e-15)
	require.InDelta(t, 1.0, pts[3].Y, 1e-15)
	require.Equal(t, []int{0, 0, 0, 2}, p.EdgeIndices(pts))

	_, err = p.BoundaryPoints([]int{1, 2})
	require.ErrorIs(t, err, ErrShape)
}

func TestInteriorPointsAreInside(t *testing.T) {
	p := unitSquare(t)
	pts := p.InteriorPoints(200, rand.New(rand.NewSource(1)))
	require.Len(t, pts, 200)
	for _, q := range pts {
		require.True(t, p.Contains(q))
	}
	for _, e := range p.EdgeIndices(pts) {
		require.Equal(t, -1, e)
	}
}

func TestCoordinateHelpers(t *testing.T) {
	_, err := FromXY([]float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, ErrShape)

	pts, err := FromFlat([]float64{0, 1, 2, 3, 4, 5}, []int{3, 2})
	require.NoError(t, err)
	require.Equal(t, Point{2, 3}, pts[1])

	pts, err = FromFlat([]float64{0, 1, 2, 3, 4, 5}, []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, Point{1, 4}, pts[1])

	_, err = FromFlat([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, []int{3, 3})
	require.ErrorIs(t, err, ErrShape)
}
