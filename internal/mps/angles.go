package mps

import (
	"fmt"
	"math"
	"strings"

	"github.com/KyungWonPark/mps/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// Method selects a formulation of the subspace angles
type Method int

const (
	// Sines are the singular values of the boundary rows of Q in A P = Q R.
	Sines Method = iota
	// GSVD tangents are C/S of the generalized SVD of the row blocks.
	GSVD
	// RegularizedGSVD applies the GSVD after truncating A to its numerical range.
	RegularizedGSVD
	// GEVD tangents solve the generalized eigenproblem of the block Gram matrices.
	GEVD
)

var methodNames = map[Method]string{
	Sines:           "sines",
	GSVD:            "gsvd",
	RegularizedGSVD: "rgsvd",
	GEVD:            "gevd",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod returns the method with the given name
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, shapeErrorf("ParseMethod", "unknown method %q", s)
}

// Estimator returns an ascending sequence of subspace angle sines or
// tangents at lambda
type Estimator func(lambda float64) ([]float64, error)

// Estimator returns the estimator of method m on the sample points, or on
// the quadrature nodes when weighted is set
func (p *Problem) Estimator(m Method, weighted bool, opts ...TolOption) (Estimator, error) {
	if weighted && p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}

	switch m {
	case Sines:
		if weighted {
			return func(x float64) ([]float64, error) { return p.WeightedSubspaceSines(x, opts...) }, nil
		}
		return func(x float64) ([]float64, error) { return p.SubspaceSines(x, opts...) }, nil
	case GSVD, RegularizedGSVD, GEVD:
		return func(x float64) ([]float64, error) { return p.tangents(m, weighted, x, opts) }, nil
	}
	return nil, shapeErrorf("Estimator", "unknown method %v", m)
}

// subspaceSines returns the singular values of Q restricted to its first mb
// rows, after rank truncation of the pivoted QR factorization of a
func subspaceSines(a *mat.Dense, mb int, t tolerances) ([]float64, error) {
	f, err := linalg.Factorize(a, t.pivot)
	if err != nil {
		return nil, err
	}
	cutoff := f.Rank(t.rtol)
	if cutoff == 0 {
		return nil, linalg.ErrSingular
	}
	return linalg.SingularValues(f.Q.Slice(0, mb, 0, cutoff))
}

// SubspaceSines returns the sines of the angles between the boundary rows
// and the sample space at lambda, in ascending order
func (p *Problem) SubspaceSines(lambda float64, opts ...TolOption) ([]float64, error) {
	if err := checkLambda("SubspaceSines", lambda); err != nil {
		return nil, err
	}
	t := p.tolerances(opts)

	return p.sines.get(newKey(lambda, t), func() ([]float64, error) {
		a, mb, err := p.matrix("SubspaceSines", lambda)
		if err != nil {
			return nil, err
		}
		s, err := subspaceSines(a, mb, t)
		if err != nil {
			return nil, &NumericalError{Op: "SubspaceSines", Lambda: lambda, Err: err}
		}
		return s, nil
	})
}

// WeightedSubspaceSines is SubspaceSines for the quadrature-weighted problem
func (p *Problem) WeightedSubspaceSines(lambda float64, opts ...TolOption) ([]float64, error) {
	if err := checkLambda("WeightedSubspaceSines", lambda); err != nil {
		return nil, err
	}
	if p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}
	t := p.tolerances(opts)

	return p.wsines.get(newKey(lambda, t), func() ([]float64, error) {
		a, mb, err := p.weightedMatrix("WeightedSubspaceSines", lambda)
		if err != nil {
			return nil, err
		}
		s, err := subspaceSines(a, mb, t)
		if err != nil {
			return nil, &NumericalError{Op: "WeightedSubspaceSines", Lambda: lambda, Err: err}
		}
		return s, nil
	})
}

func blocks(a *mat.Dense, mb int) (mat.Matrix, mat.Matrix) {
	r, c := a.Dims()
	return a.Slice(0, mb, 0, c), a.Slice(mb, r, 0, c)
}

// regularizedTangents truncates a to the left singular vectors of its R
// factor with singular values above rtol before taking the GSVD
func regularizedTangents(a *mat.Dense, mb int, rtol float64) ([]float64, error) {
	f, err := linalg.Factorize(a, false)
	if err != nil {
		return nil, err
	}
	u1, err := linalg.Range(f.R, rtol)
	if err != nil {
		return nil, err
	}

	var qu mat.Dense
	qu.Mul(f.Q, u1)
	qb, qi := blocks(&qu, mb)
	return linalg.GSVDTangents(qb, qi)
}

func (p *Problem) tangents(m Method, weighted bool, lambda float64, opts []TolOption) ([]float64, error) {
	op := m.String()
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	t := p.tolerances(opts)

	cache := p.tans[m]
	build := p.matrix
	if weighted {
		if p.nodeBasis == nil {
			return nil, ErrNoQuadrature
		}
		cache = p.wtans[m]
		build = p.weightedMatrix
	}

	// only the regularized form depends on the tolerances
	k := newKey(lambda, tolerances{})
	if m == RegularizedGSVD {
		k = newKey(lambda, tolerances{rtol: t.rtol})
	}

	return cache.get(k, func() ([]float64, error) {
		a, mb, err := build(op, lambda)
		if err != nil {
			return nil, err
		}

		var ts []float64
		switch m {
		case GSVD:
			ab, ai := blocks(a, mb)
			ts, err = linalg.GSVDTangents(ab, ai)
		case RegularizedGSVD:
			ts, err = regularizedTangents(a, mb, t.rtol)
		case GEVD:
			ab, ai := blocks(a, mb)
			ts, err = linalg.GEVDTangents(ab, ai)
		}
		if err != nil {
			return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
		}
		return ts, nil
	})
}

// GSVDTangents returns the subspace angle tangents from the GSVD of the
// boundary and interior blocks, in ascending order
func (p *Problem) GSVDTangents(lambda float64) ([]float64, error) {
	return p.tangents(GSVD, false, lambda, nil)
}

// WeightedGSVDTangents is GSVDTangents for the quadrature-weighted problem
func (p *Problem) WeightedGSVDTangents(lambda float64) ([]float64, error) {
	return p.tangents(GSVD, true, lambda, nil)
}

// RegularizedGSVDTangents returns the GSVD tangents after truncating the
// basis matrix to singular values above rtol
func (p *Problem) RegularizedGSVDTangents(lambda float64, opts ...TolOption) ([]float64, error) {
	return p.tangents(RegularizedGSVD, false, lambda, opts)
}

// WeightedRegularizedGSVDTangents is RegularizedGSVDTangents for the
// quadrature-weighted problem
func (p *Problem) WeightedRegularizedGSVDTangents(lambda float64, opts ...TolOption) ([]float64, error) {
	return p.tangents(RegularizedGSVD, true, lambda, opts)
}

// GEVDTangents returns the square roots of the generalized eigenvalues of
// the boundary and interior Gram matrices, in ascending order
func (p *Problem) GEVDTangents(lambda float64) ([]float64, error) {
	return p.tangents(GEVD, false, lambda, nil)
}

// WeightedGEVDTangents is GEVDTangents for the quadrature-weighted problem
func (p *Problem) WeightedGEVDTangents(lambda float64) ([]float64, error) {
	return p.tangents(GEVD, true, lambda, nil)
}

// Sigma returns the smallest subspace angle sine at lambda
func (p *Problem) Sigma(lambda float64, opts ...TolOption) (float64, error) {
	s, err := p.SubspaceSines(lambda, opts...)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// tangent converts a sine into a tangent
func tangent(s float64) float64 {
	if s >= 1 {
		return math.Inf(1)
	}
	return s / math.Sqrt(1-s*s)
}
