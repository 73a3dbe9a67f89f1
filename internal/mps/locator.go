package mps

import (
	"fmt"
	"math"
	"sort"

	"github.com/KyungWonPark/mps/internal/calc"
	"github.com/KyungWonPark/mps/internal/cluster"
	"gonum.org/v1/gonum/mat"
)

// spacing is the mean gap between eigenvalues predicted by Weyl's law
func (p *Problem) spacing() float64 {
	return 4 * math.Pi / p.poly.Area()
}

// SolveOrderedEigenvalues returns the first k eigenvalues, repeated by
// multiplicity, and the number of objective evaluations spent. Eigenvalues
// found by earlier calls are kept, so a later call with a larger k extends
// the previous result.
func (p *Problem) SolveOrderedEigenvalues(k int) ([]float64, int, error) {
	if k < 1 {
		return nil, 0, shapeErrorf("SolveOrderedEigenvalues", "k = %d", k)
	}

	p.searchLock.Lock()
	defer p.searchLock.Unlock()

	cfg := p.search
	if cfg.PointsPerLevel < 1 || !(cfg.XTol > 0) || !(cfg.YTol > 0) {
		return nil, 0, shapeErrorf("SolveOrderedEigenvalues", "search configuration %+v", cfg)
	}
	spacing := p.spacing()

	var (
		start, end float64
		lev        = 1
		extend     bool
		extensions int
		evals      int
	)
	for len(p.registry) < k {
		kc := len(p.registry)
		if cfg.Verbose {
			p.logger.Printf("eigenvalues found: %d", kc)
		}

		if !extend {
			if kc == 0 {
				start = p.lowerBound
			} else {
				start = p.registry[kc-1]
			}
			lev = 1
			end = p.WeylEstimate(kc + lev)
			for end <= start+spacing/2 {
				lev++
				end = p.WeylEstimate(kc + lev)
			}
		}

		h := (end - start) / float64(cfg.PointsPerLevel*lev)
		lo := start
		if kc != 0 {
			lo -= h
		}
		if cfg.Verbose {
			p.logger.Printf("scanning [%.6f, %.6f] with step %.3e", lo, end+h, h)
		}

		minima, fe, err := p.minsearch(lo, end+h, h, 0)
		evals += fe
		if err != nil {
			return nil, evals, err
		}

		for _, x := range minima {
			s, err := p.SubspaceSines(x)
			if err != nil {
				return nil, evals, err
			}
			mult := cluster.GetMultiplicity(s, cfg.YTol)
			dup := cluster.IsDuplicate(x, p.registry, cfg.XTol)
			if cfg.Verbose {
				p.logger.Printf("minimum %.12f: sigma = %.3e, mult = %d, duplicate = %t", x, s[0], mult, dup)
			}
			if dup || mult == 0 {
				continue
			}
			for j := 0; j < mult; j++ {
				p.registry = append(p.registry, x)
			}
			sort.Float64s(p.registry)
			if len(p.registry) >= k {
				break
			}
		}

		if len(p.registry) > kc {
			extend = false
			extensions = 0
			continue
		}

		extensions++
		if extensions > cfg.MaxExtensions {
			return nil, evals, fmt.Errorf("%w: %d found after %d extensions, last window [%g, %g]", ErrSearchExhausted, kc, cfg.MaxExtensions, start, end)
		}
		if cfg.Verbose {
			p.logger.Printf("no eigenvalue in [%.6f, %.6f], extending", start, end)
		}
		gap := end - start
		start = end
		end = start + gap
		extend = true
	}

	return append([]float64(nil), p.registry[:k]...), evals, nil
}

// SigmaMinima returns the local minima of the smallest subspace angle sine
// on [a,b], scanned with ppl points per mean eigenvalue spacing and refined
// to tol. Minima whose second sine is small are rescanned with a tenfold
// density.
func (p *Problem) SigmaMinima(a, b float64, ppl int, tol float64) ([]float64, error) {
	if ppl < 1 || !(tol > 0) {
		return nil, shapeErrorf("SigmaMinima", "ppl = %d, tol = %g", ppl, tol)
	}
	a = math.Max(a, p.lowerBound)
	if !(b > a) {
		return nil, shapeErrorf("SigmaMinima", "empty interval [%g, %g]", a, b)
	}

	spacing := p.spacing()
	s2tol := spacing / (3 * float64(ppl))
	n := max(int(float64(ppl)*(b-a)/spacing+1), 5)
	xs := linspace(a, b, n)

	vals, err := calc.Map(p.pl, xs, p.objective)
	if err != nil {
		return nil, err
	}

	var minima []float64
	for i := 1; i < n-1; i++ {
		if !(vals[i][0] < vals[i-1][0] && vals[i][0] < vals[i+1][0]) {
			continue
		}
		switch {
		case xs[i+1]-xs[i-1] < 2*tol:
			minima = append(minima, xs[i])
		case vals[i][1] < s2tol:
			sub, err := p.SigmaMinima(xs[max(0, i-2)], xs[min(n-1, i+2)], 10*ppl, tol)
			if err != nil {
				return nil, err
			}
			minima = append(minima, sub...)
		default:
			x, _, err := golden(p.sigma, xs[i-1], xs[i+1], tol)
			if err != nil {
				return nil, err
			}
			minima = append(minima, x)
		}
	}
	return unique(minima, tol), nil
}

// Sweep tabulates an estimator on n+1 evenly spaced values of lambda from
// low to high. The columns of the result are lambda and the first two
// estimator values; a missing second value is +Inf.
func (p *Problem) Sweep(est Estimator, low, high float64, n int) (*mat.Dense, error) {
	if n < 1 || !(high > low) {
		return nil, shapeErrorf("Sweep", "n = %d on [%g, %g]", n, low, high)
	}
	low = math.Max(low, 1e-16)
	xs := linspace(low, high, n+1)

	vals, err := calc.Map(p.pl, xs, func(x float64) (pair, error) {
		s, err := est(x)
		if err != nil {
			return pair{}, err
		}
		v := pair{s[0], math.Inf(1)}
		if len(s) > 1 {
			v[1] = s[1]
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(len(xs), 3, nil)
	for i, x := range xs {
		out.SetRow(i, []float64{x, vals[i][0], vals[i][1]})
	}
	return out, nil
}
