package mps

import (
	"errors"
	"math"
	"sort"

	"github.com/KyungWonPark/mps/internal/cluster"
	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// nullSpace is the rank-truncated pivoted QR of a basis matrix together with
// the right singular vectors of the boundary rows of Q whose singular values
// are below mtol
type nullSpace struct {
	qr     *linalg.QR
	cutoff int
	vm     mat.Matrix
}

func findNullSpace(op string, a *mat.Dense, mb int, lambda float64, t tolerances) (*nullSpace, error) {
	f, err := linalg.Factorize(a, true)
	if err != nil {
		return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}
	cutoff := f.Rank(t.rtol)
	if cutoff == 0 {
		return nil, &NumericalError{Op: op, Lambda: lambda, Err: linalg.ErrSingular}
	}

	s, v, err := linalg.NullSVD(f.Q.Slice(0, mb, 0, cutoff))
	if err != nil {
		return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}

	mult := cluster.GetMultiplicity(s, t.mtol)
	if mult == 0 {
		return nil, &ZeroMultiplicityError{Lambda: lambda, Sigma: s[0], MTol: t.mtol}
	}

	return &nullSpace{qr: f, cutoff: cutoff, vm: v.Slice(0, cutoff, 0, mult)}, nil
}

// coefficients maps the null vectors back to the full, unpermuted basis
func (ns *nullSpace) coefficients(op string, lambda float64) (*mat.Dense, error) {
	y, err := linalg.SolveUpper(ns.qr.R, ns.vm)
	if err != nil {
		return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}

	_, n := ns.qr.R.Dims()
	_, mult := y.Dims()
	c := mat.NewDense(n, mult, nil)
	for j := 0; j < ns.cutoff; j++ {
		c.SetRow(ns.qr.Perm[j], y.RawRowView(j))
	}
	return c, nil
}

// EigenbasisCoefficients returns the coefficients of an orthonormal basis
// of the eigenspace at lambda, one column per eigenfunction, computed from
// the quadrature-weighted problem. It fails with *ZeroMultiplicityError when
// no subspace angle sine is below mtol.
func (p *Problem) EigenbasisCoefficients(lambda float64, opts ...TolOption) (*mat.Dense, error) {
	const op = "EigenbasisCoefficients"
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	if p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}
	t := p.tolerances(opts)

	return p.coefs.get(newKey(lambda, t), func() (*mat.Dense, error) {
		a, mb, err := p.weightedMatrix(op, lambda)
		if err != nil {
			return nil, err
		}
		ns, err := findNullSpace(op, a, mb, lambda, t)
		if err != nil {
			return nil, err
		}
		return ns.coefficients(op, lambda)
	})
}

// UnweightedEigenbasisCoefficients is EigenbasisCoefficients computed on
// the sample points without quadrature weights. The columns are normalized
// over the sample points rather than in L2.
func (p *Problem) UnweightedEigenbasisCoefficients(lambda float64, opts ...TolOption) (*mat.Dense, error) {
	const op = "UnweightedEigenbasisCoefficients"
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	t := p.tolerances(opts)

	return p.ucoefs.get(newKey(lambda, t), func() (*mat.Dense, error) {
		a, mb, err := p.matrix(op, lambda)
		if err != nil {
			return nil, err
		}
		ns, err := findNullSpace(op, a, mb, lambda, t)
		if err != nil {
			return nil, err
		}
		return ns.coefficients(op, lambda)
	})
}

// EigenbasisNodeEvaluation returns the eigenbasis at lambda evaluated at
// the quadrature nodes, boundary nodes first, without re-evaluating the
// basis.
func (p *Problem) EigenbasisNodeEvaluation(lambda float64, opts ...TolOption) (*mat.Dense, error) {
	const op = "EigenbasisNodeEvaluation"
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	if p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}
	t := p.tolerances(opts)

	return p.nodeval.get(newKey(lambda, t), func() (*mat.Dense, error) {
		a, mb, err := p.weightedMatrix(op, lambda)
		if err != nil {
			return nil, err
		}
		ns, err := findNullSpace(op, a, mb, lambda, t)
		if err != nil {
			return nil, err
		}

		m, _ := ns.qr.Q.Dims()
		var u mat.Dense
		u.Mul(ns.qr.Q.Slice(0, m, 0, ns.cutoff), ns.vm)
		for i := 0; i < m; i++ {
			row := u.RawRowView(i)
			for j := range row {
				row[j] /= p.weights[i]
			}
		}
		return &u, nil
	})
}

// GSVDEigenbasisCoefficients returns eigenbasis coefficients from the GSVD
// of the weighted boundary and interior blocks. The multiplicity is the
// number of GSVD tangents below mtol; the columns are the transformed unit
// vectors with the smallest tangents.
func (p *Problem) GSVDEigenbasisCoefficients(lambda float64, opts ...TolOption) (*mat.Dense, error) {
	const op = "GSVDEigenbasisCoefficients"
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	if p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}
	t := p.tolerances(opts)

	return p.gcoefs.get(newKey(lambda, tolerances{mtol: t.mtol}), func() (*mat.Dense, error) {
		a, mb, err := p.weightedMatrix(op, lambda)
		if err != nil {
			return nil, err
		}
		ab, ai := blocks(a, mb)

		ts, err := linalg.GSVDTangents(ab, ai)
		if err != nil {
			return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
		}
		mult := cluster.GetMultiplicity(ts, t.mtol)
		if mult == 0 {
			return nil, &ZeroMultiplicityError{Lambda: lambda, Sigma: ts[0], MTol: t.mtol}
		}

		xt, err := linalg.GSVDTransform(ab, ai)
		if err != nil {
			return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
		}
		kl, _ := xt.Dims()
		var y mat.Dense
		if err := y.Solve(xt, eye(kl)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
				return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
			}
		}

		return smallestTangentColumns(ab, ai, &y, mult), nil
	})
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// smallestTangentColumns returns the mult columns y of cand with the
// smallest ratio |ab y| / |ai y|
func smallestTangentColumns(ab, ai mat.Matrix, cand *mat.Dense, mult int) *mat.Dense {
	n, k := cand.Dims()
	ratio := make([]float64, k)
	idx := make([]int, k)
	for j := 0; j < k; j++ {
		var bv, iv mat.VecDense
		bv.MulVec(ab, cand.ColView(j))
		iv.MulVec(ai, cand.ColView(j))
		nb, ni := mat.Norm(&bv, 2), mat.Norm(&iv, 2)
		ratio[j] = math.Inf(1)
		if ni > 0 {
			ratio[j] = nb / ni
		}
		idx[j] = j
	}
	sort.SliceStable(idx, func(a, b int) bool { return ratio[idx[a]] < ratio[idx[b]] })

	c := mat.NewDense(n, mult, nil)
	for j := 0; j < mult; j++ {
		c.SetCol(j, mat.Col(nil, idx[j], cand))
	}
	return c
}

// coefficientsFor returns the weighted coefficients when quadrature is
// available and the unweighted ones otherwise
func (p *Problem) coefficientsFor(lambda float64, opts []TolOption) (*mat.Dense, error) {
	if p.nodeBasis != nil {
		return p.EigenbasisCoefficients(lambda, opts...)
	}
	return p.UnweightedEigenbasisCoefficients(lambda, opts...)
}

// Eigenfunctions evaluates the eigenbasis at lambda on pts, one column per
// eigenfunction
func (p *Problem) Eigenfunctions(lambda float64, pts []geom.Point, opts ...TolOption) (*mat.Dense, error) {
	c, err := p.coefficientsFor(lambda, opts)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, shapeErrorf("Eigenfunctions", "no points")
	}

	a, err := p.basis.Eval(lambda, pts)
	if err != nil {
		return nil, &NumericalError{Op: "Eigenfunctions", Lambda: lambda, Err: err}
	}
	var u mat.Dense
	u.Mul(a, c)
	return &u, nil
}

// EigenfunctionGradients evaluates the x and y partial derivatives of the
// eigenbasis at lambda on pts
func (p *Problem) EigenfunctionGradients(lambda float64, pts []geom.Point, opts ...TolOption) (*mat.Dense, *mat.Dense, error) {
	c, err := p.coefficientsFor(lambda, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(pts) == 0 {
		return nil, nil, shapeErrorf("EigenfunctionGradients", "no points")
	}

	ax, ay, err := p.basis.Grad(lambda, pts)
	if err != nil {
		return nil, nil, &NumericalError{Op: "EigenfunctionGradients", Lambda: lambda, Err: err}
	}
	var ux, uy mat.Dense
	ux.Mul(ax, c)
	uy.Mul(ay, c)
	return &ux, &uy, nil
}
