package linalg

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

func sameColumns(a, b mat.Matrix) error {
	_, ca := a.Dims()
	_, cb := b.Dims()
	if ca != cb {
		return fmt.Errorf("%w: %d and %d columns", ErrShape, ca, cb)
	}
	return nil
}

func gsvd(a, b mat.Matrix, kind mat.GSVDKind) (*mat.GSVD, error) {
	if err := sameColumns(a, b); err != nil {
		return nil, err
	}
	if err := checkFinite(a); err != nil {
		return nil, err
	}
	if err := checkFinite(b); err != nil {
		return nil, err
	}

	var g mat.GSVD
	if ok := g.Factorize(a, b, kind); !ok {
		return nil, ErrNoConvergence
	}
	return &g, nil
}

// GSVDTangents returns the ratios C/S of the generalized singular value
// pairs of (a, b) in ascending order. Pairs with S == 0 give +Inf.
func GSVDTangents(a, b mat.Matrix) ([]float64, error) {
	g, err := gsvd(a, b, mat.GSVDNone)
	if err != nil {
		return nil, err
	}

	c := g.ValuesA(nil)
	s := g.ValuesB(nil)
	ts := make([]float64, len(c))
	for i := range c {
		if s[i] == 0 {
			ts[i] = math.Inf(1)
			continue
		}
		ts[i] = c[i] / s[i]
	}
	for _, t := range ts {
		if math.IsNaN(t) {
			return nil, fmt.Errorf("%w: generalized singular value", ErrNonFinite)
		}
	}
	sort.Float64s(ts)
	return ts, nil
}

// GSVDTransform returns X^T = [0 R] Q^T of the GSVD of (a, b), so that
// a = U Σ_A X^T and b = V Σ_B X^T.
func GSVDTransform(a, b mat.Matrix) (*mat.Dense, error) {
	// lapack rejects computing Q without U and V
	g, err := gsvd(a, b, mat.GSVDAll)
	if err != nil {
		return nil, err
	}

	var zr, q mat.Dense
	g.ZeroRTo(&zr)
	g.QTo(&q)

	var xt mat.Dense
	xt.Mul(&zr, q.T())
	return &xt, nil
}

// Gram returns a^T a
func Gram(a mat.Matrix) *mat.Dense {
	var g mat.Dense
	g.Mul(a.T(), a)
	return &g
}

// NegTol is the magnitude, relative to the largest generalized eigenvalue,
// below which a negative real part is taken as roundoff of zero
const NegTol = 1e-10

// GEVDTangents solves the generalized eigenvalue problem
// a^T a x = mu b^T b x and returns sqrt(Re mu) in ascending order.
// Real parts below -NegTol times the largest magnitude fail with
// ErrIndefinite; smaller negative ones count as zero.
func GEVDTangents(a, b mat.Matrix) ([]float64, error) {
	if err := sameColumns(a, b); err != nil {
		return nil, err
	}
	if err := checkFinite(a); err != nil {
		return nil, err
	}
	if err := checkFinite(b); err != nil {
		return nil, err
	}

	ga, gb := Gram(a), Gram(b)

	var z mat.Dense
	if err := z.Solve(gb, ga); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}
	if err := checkFinite(&z); err != nil {
		return nil, err
	}

	var eig mat.Eigen
	if ok := eig.Factorize(&z, mat.EigenNone); !ok {
		return nil, ErrNoConvergence
	}
	return tangentRoots(eig.Values(nil))
}

// tangentRoots returns the ascending square roots of the real parts of vals
func tangentRoots(vals []complex128) ([]float64, error) {
	var big float64
	for _, v := range vals {
		big = math.Max(big, cmplx.Abs(v))
	}
	ts := make([]float64, len(vals))
	for i, v := range vals {
		mu := real(v)
		if mu < -NegTol*big {
			return nil, fmt.Errorf("%w: %g of largest magnitude %g", ErrIndefinite, mu, big)
		}
		ts[i] = math.Sqrt(math.Max(mu, 0))
	}
	if err := checkFiniteSlice(ts); err != nil {
		return nil, err
	}
	sort.Float64s(ts)
	return ts, nil
}
