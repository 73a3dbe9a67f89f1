package mps

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/KyungWonPark/mps/internal/fbasis"
	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/linalg"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var square = []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// synthetic is a three-function basis whose boundary block is G_B diag(λ-2, 1, 1),
// so λ = 2 is a simple eigenvalue with null vector e1
type synthetic struct {
	gb, gi *mat.Dense
}

func newSynthetic(nb, ni int) *synthetic {
	rng := rand.New(rand.NewSource(7))
	fill := func(r int) *mat.Dense {
		data := make([]float64, r*3)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		return mat.NewDense(r, 3, data)
	}
	return &synthetic{gb: fill(nb), gi: fill(ni)}
}

func (s *synthetic) Len() int { return 3 }

func (s *synthetic) Eval(lambda float64, pts []geom.Point) (*mat.Dense, error) {
	nb, _ := s.gb.Dims()
	ni, _ := s.gi.Dims()
	a := mat.NewDense(nb+ni, 3, nil)
	for i := 0; i < nb; i++ {
		a.Set(i, 0, (lambda-2)*s.gb.At(i, 0))
		a.Set(i, 1, s.gb.At(i, 1))
		a.Set(i, 2, s.gb.At(i, 2))
	}
	for i := 0; i < ni; i++ {
		a.SetRow(nb+i, s.gi.RawRowView(i))
	}
	return a, nil
}

func (s *synthetic) Grad(lambda float64, pts []geom.Point) (*mat.Dense, *mat.Dense, error) {
	n := len(pts)
	return mat.NewDense(n, 3, nil), mat.NewDense(n, 3, nil), nil
}

func (s *synthetic) SetDefaultPoints([]geom.Point) {}

func newSyntheticProblem(t *testing.T) (*Problem, *synthetic) {
	t.Helper()
	return wrappedSyntheticProblem(t, func(s *synthetic) Basis { return s })
}

func wrappedSyntheticProblem(t *testing.T, wrap func(*synthetic) Basis) (*Problem, *synthetic) {
	t.Helper()
	boundary := make([]geom.Point, 10)
	for i := range boundary {
		boundary[i] = geom.Point{X: float64(i+1) / 11, Y: 0}
	}
	interior := make([]geom.Point, 20)
	for i := range interior {
		interior[i] = geom.Point{X: float64(i+1) / 21, Y: 0.5}
	}
	s := newSynthetic(len(boundary), len(interior))

	p, err := New(square, []int{1, 1, 1, 1},
		WithBoundary(boundary),
		WithInterior(interior),
		WithBasis(func(*geom.Polygon, []int) (Basis, error) { return wrap(s), nil }),
		WithWorkers(2),
	)
	require.NoError(t, err)
	return p, s
}

func TestNewRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name   string
		vs     []geom.Point
		orders []int
		opts   []Option
		cause  error
	}{
		{"degenerate polygon", []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}, []int{1, 1, 1}, nil, geom.ErrDegenerate},
		{"zero orders", square, []int{0, 0, 0, 0}, nil, fbasis.ErrNoFunctions},
		{"order count", square, []int{3, 3}, nil, fbasis.ErrOrders},
		{"no boundary points", square, []int{3, 0, 0, 0}, []Option{WithBoundaryPoints(0, "even")}, nil},
		{"unknown interior method", square, []int{3, 0, 0, 0}, []Option{WithInteriorPoints(10, "sobol")}, nil},
		{"bad tolerance", square, []int{3, 0, 0, 0}, []Option{WithTolerances(0, 0)}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.vs, tc.orders, tc.opts...)
			require.ErrorIs(t, err, ErrInputShape)
			if tc.cause != nil {
				require.ErrorIs(t, err, tc.cause)
			}
			var shape *InputShapeError
			require.True(t, errors.As(err, &shape))
			require.Equal(t, "New", shape.Op)
		})
	}
}

func TestSkippedEdges(t *testing.T) {
	require.Equal(t, []int{-1, 0}, skippedEdges([]int{5, 0, 0}))
	require.Equal(t, []int{1, 2}, skippedEdges([]int{0, 0, 4, 0}))
	require.Nil(t, skippedEdges([]int{1, 1, 0}))
}

func TestDefaultSampling(t *testing.T) {
	p, err := New(square, []int{6, 0, 0, 0})
	require.NoError(t, err)

	// the two edges at vertex 0 carry no boundary points
	require.Len(t, p.BoundaryPoints(), 2*DefaultBoundaryPoints)
	require.Len(t, p.InteriorPoints(), DefaultInteriorPoints)
	for _, e := range p.EdgeIndices() {
		require.Contains(t, []int{1, 2}, e)
	}
	for _, q := range p.InteriorPoints() {
		require.True(t, p.Polygon().Contains(q))
	}
	require.False(t, p.HasQuadrature())
	require.InDelta(t, 5.76*math.Pi, p.LowerBound(), 1e-12)
}

func TestWeylEstimate(t *testing.T) {
	p, _ := newSyntheticProblem(t)
	// (P + sqrt(P^2 + 16 pi A k)) / 2A squared, A = 1 and P = 4
	want := math.Pow((4+math.Sqrt(16+16*math.Pi))/2, 2)
	require.InDelta(t, want, p.WeylEstimate(1), 1e-12)
	require.Less(t, p.WeylEstimate(3), p.WeylEstimate(4))
}

func TestSubspaceSinesSynthetic(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	for _, lambda := range []float64{0.5, 1.9, 2, 2.1, 7} {
		s, err := p.SubspaceSines(lambda)
		require.NoError(t, err)
		require.Len(t, s, 3)
		require.True(t, sort.Float64sAreSorted(s))
		for _, v := range s {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1+1e-12)
		}
		if lambda == 2 {
			require.Less(t, s[0], 1e-12)
		} else {
			require.Greater(t, s[0], 1e-3)
		}
	}

	s, err := p.SubspaceSines(2, NoPivot())
	require.NoError(t, err)
	require.Less(t, s[0], 1e-12)

	sigma, err := p.Sigma(2.1)
	require.NoError(t, err)
	s, err = p.SubspaceSines(2.1)
	require.NoError(t, err)
	require.Equal(t, s[0], sigma)
}

func TestEigenbasisSynthetic(t *testing.T) {
	p, s := newSyntheticProblem(t)

	sines, err := p.SubspaceSines(2)
	require.NoError(t, err)
	_, mtol := p.Tolerances()

	c, err := p.UnweightedEigenbasisCoefficients(2)
	require.NoError(t, err)
	rows, mult := c.Dims()
	require.Equal(t, 3, rows)

	count := 0
	for _, v := range sines {
		if v < mtol {
			count++
		}
	}
	require.Equal(t, count, mult)
	require.Equal(t, 1, mult)

	// proportional to e1
	require.Greater(t, math.Abs(c.At(0, 0)), 0.0)
	require.InDelta(t, 0, c.At(1, 0)/c.At(0, 0), 1e-10)
	require.InDelta(t, 0, c.At(2, 0)/c.At(0, 0), 1e-10)

	// vanishes on the boundary
	a, err := s.Eval(2, nil)
	require.NoError(t, err)
	var u mat.Dense
	u.Mul(a, c)
	for i := 0; i < 10; i++ {
		require.Less(t, math.Abs(u.At(i, 0)), mtol)
	}
	require.InDelta(t, 1, mat.Norm(&u, 2), 1e-10)
}

func TestZeroMultiplicity(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	_, err := p.UnweightedEigenbasisCoefficients(7)
	var zm *ZeroMultiplicityError
	require.True(t, errors.As(err, &zm))
	require.Equal(t, 7.0, zm.Lambda)
	require.Greater(t, zm.Sigma, zm.MTol)

	// a loose enough tolerance accepts anything
	c, err := p.UnweightedEigenbasisCoefficients(7, MTol(2))
	require.NoError(t, err)
	_, mult := c.Dims()
	require.Equal(t, 3, mult)
}

func TestEstimatorsAgree(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	for _, m := range []Method{Sines, GSVD, RegularizedGSVD, GEVD} {
		est, err := p.Estimator(m, false)
		require.NoError(t, err)
		got, err := est(2)
		require.NoError(t, err, m)
		require.Less(t, got[0], 1e-6, m)
	}

	for _, lambda := range []float64{3.5, 6} {
		sines, err := p.SubspaceSines(lambda)
		require.NoError(t, err)
		want := make([]float64, len(sines))
		for i, s := range sines {
			want[i] = tangent(s)
		}

		for _, m := range []Method{GSVD, RegularizedGSVD, GEVD} {
			est, err := p.Estimator(m, false)
			require.NoError(t, err)
			got, err := est(lambda)
			require.NoError(t, err, m)
			require.Len(t, got, len(want), m)
			for i := range want {
				require.InDelta(t, want[i], got[i], 1e-8*(1+want[i]), "%v at %g", m, lambda)
			}
		}
	}
}

func TestEstimatorNeedsQuadrature(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	_, err := p.Estimator(Sines, true)
	require.ErrorIs(t, err, ErrNoQuadrature)
	_, err = p.WeightedSubspaceSines(2)
	require.ErrorIs(t, err, ErrNoQuadrature)
	_, err = p.WeightedGSVDTangents(2)
	require.ErrorIs(t, err, ErrNoQuadrature)
	_, err = p.EigenbasisCoefficients(2)
	require.ErrorIs(t, err, ErrNoQuadrature)
	_, err = p.OutwardNormalDerivatives(2, 10)
	require.ErrorIs(t, err, ErrNoQuadrature)
}

func TestLambdaValidation(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	for _, lambda := range []float64{0, -1, math.Inf(1), math.NaN()} {
		_, err := p.SubspaceSines(lambda)
		require.ErrorIs(t, err, ErrInputShape)
		_, err = p.GSVDTangents(lambda)
		require.ErrorIs(t, err, ErrInputShape)
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{Sines, GSVD, RegularizedGSVD, GEVD} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
	got, err := ParseMethod("GEVD")
	require.NoError(t, err)
	require.Equal(t, GEVD, got)

	_, err = ParseMethod("qz")
	require.ErrorIs(t, err, ErrInputShape)
	require.Equal(t, "Method(9)", Method(9).String())
}

func TestCache(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	s1, err := p.SubspaceSines(3)
	require.NoError(t, err)
	s1[0] = -1

	s2, err := p.SubspaceSines(3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, s2[0], 0.0)

	stats := p.CacheStats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, 1, stats.Entries)

	// other tolerances are a different entry
	_, err = p.SubspaceSines(3, RTol(1e-12))
	require.NoError(t, err)
	require.Equal(t, 2, p.CacheStats().Entries)

	c1, err := p.UnweightedEigenbasisCoefficients(2)
	require.NoError(t, err)
	c1.Set(0, 0, 42)
	c2, err := p.UnweightedEigenbasisCoefficients(2)
	require.NoError(t, err)
	require.NotEqual(t, 42.0, c2.At(0, 0))
}

func TestSweep(t *testing.T) {
	p, _ := newSyntheticProblem(t)

	est, err := p.Estimator(Sines, false)
	require.NoError(t, err)
	out, err := p.Sweep(est, 1, 3, 4)
	require.NoError(t, err)

	r, c := out.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 3, c)
	require.Equal(t, []float64{1, 1.5, 2, 2.5, 3}, mat.Col(nil, 0, out))
	require.Less(t, out.At(2, 1), 1e-12)
	for i := 0; i < r; i++ {
		require.LessOrEqual(t, out.At(i, 1), out.At(i, 2))
	}

	_, err = p.Sweep(est, 3, 1, 4)
	require.ErrorIs(t, err, ErrInputShape)
}

func TestLocalHelpers(t *testing.T) {
	require.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, linspace(0, 1, 5))
	require.Len(t, arange(0, 1, 0.25), 4)
	require.InDeltaSlice(t, []float64{1, 2}, unique([]float64{2, 1, 1 + 1e-12, 2 - 1e-13}, 1e-8), 1e-12)

	x, evals, err := golden(func(x float64) (float64, error) { return math.Abs(x - 0.3), nil }, 0, 1, 1e-10)
	require.NoError(t, err)
	require.InDelta(t, 0.3, x, 1e-9)
	require.Greater(t, evals, 2)

	require.True(t, math.IsInf(tangent(1), 1))
	require.InDelta(t, 1, tangent(math.Sqrt(0.5)), 1e-15)
}

// poisoned returns a NaN entry at one value of lambda
type poisoned struct {
	*synthetic
	at float64
}

func (s *poisoned) Eval(lambda float64, pts []geom.Point) (*mat.Dense, error) {
	a, err := s.synthetic.Eval(lambda, pts)
	if err != nil {
		return nil, err
	}
	if lambda == s.at {
		a.Set(3, 1, math.NaN())
	}
	return a, nil
}

func TestNonFiniteBasis(t *testing.T) {
	bad := 2.5
	p, _ := wrappedSyntheticProblem(t, func(s *synthetic) Basis { return &poisoned{synthetic: s, at: bad} })

	calls := map[string]func(float64) error{
		"SubspaceSines": func(x float64) error { _, err := p.SubspaceSines(x); return err },
		"GSVDTangents":  func(x float64) error { _, err := p.GSVDTangents(x); return err },
		"RegularizedGSVDTangents": func(x float64) error {
			_, err := p.RegularizedGSVDTangents(x)
			return err
		},
		"GEVDTangents": func(x float64) error { _, err := p.GEVDTangents(x); return err },
		"UnweightedEigenbasisCoefficients": func(x float64) error {
			_, err := p.UnweightedEigenbasisCoefficients(x)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call(bad)
			var ne *NumericalError
			require.True(t, errors.As(err, &ne), "%v", err)
			require.Equal(t, bad, ne.Lambda)
			require.ErrorIs(t, err, linalg.ErrNonFinite)
		})
	}

	// neighbouring values are unaffected
	sines, err := p.SubspaceSines(2)
	require.NoError(t, err)
	require.Less(t, sines[0], 1e-12)

	// failures are not cached
	_, err = p.SubspaceSines(bad)
	require.Error(t, err)
	require.Zero(t, p.CacheStats().Hits)
}
