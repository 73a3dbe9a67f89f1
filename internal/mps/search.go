package mps

import (
	"math"
	"sort"

	"github.com/KyungWonPark/mps/internal/calc"
	"gonum.org/v1/gonum/floats"
)

var invPhi = (math.Sqrt(5) - 1) / 2

// linspace returns n evenly spaced points from a to b inclusive
func linspace(a, b float64, n int) []float64 {
	if n == 1 {
		return []float64{a}
	}
	return floats.Span(make([]float64, n), a, b)
}

// arange returns lo, lo+h, ... strictly below hi
func arange(lo, hi, h float64) []float64 {
	n := int(math.Ceil((hi - lo) / h))
	if n < 1 {
		n = 1
	}
	xs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		x := lo + float64(i)*h
		if x >= hi {
			break
		}
		xs = append(xs, x)
	}
	return xs
}

// unique sorts xs and drops entries within tol of the previous kept one
func unique(xs []float64, tol float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	sort.Float64s(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x-out[len(out)-1] >= tol {
			out = append(out, x)
		}
	}
	return out
}

// golden minimizes a unimodal f on [a,b] by golden section until the bracket
// is shorter than tol, returning its midpoint and the number of evaluations
func golden(f func(float64) (float64, error), a, b, tol float64) (float64, int, error) {
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, err := f(c)
	if err != nil {
		return 0, 1, err
	}
	fd, err := f(d)
	if err != nil {
		return 0, 2, err
	}
	evals := 2

	for b-a >= tol {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			if fc, err = f(c); err != nil {
				return 0, evals + 1, err
			}
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			if fd, err = f(d); err != nil {
				return 0, evals + 1, err
			}
		}
		evals++
	}
	return (a + b) / 2, evals, nil
}

// pair is the value of a two-branch objective
type pair [2]float64

// objective returns the tangents of the two smallest subspace angles
func (p *Problem) objective(x float64) (pair, error) {
	s, err := p.SubspaceSines(x)
	if err != nil {
		return pair{}, err
	}
	v := pair{tangent(s[0]), math.Inf(1)}
	if len(s) > 1 {
		v[1] = tangent(s[1])
	}
	return v, nil
}

func (p *Problem) sigma(x float64) (float64, error) {
	return p.Sigma(x)
}

// minsearch scans [lo,hi) with step h for local minima of the first branch.
// Minima whose second branch is below PairTol are rescanned with a finer
// step to separate close pairs; the rest are refined by golden section.
func (p *Problem) minsearch(lo, hi, h float64, depth int) ([]float64, int, error) {
	cfg := p.search
	xs := arange(lo, hi, h)
	if len(xs) < 3 {
		xs = linspace(lo, hi, 3)
	}
	vals, err := calc.Map(p.pl, xs, p.objective)
	if err != nil {
		return nil, len(xs), err
	}
	evals := len(xs)

	var minima []float64
	for i := 1; i < len(xs)-1; i++ {
		if !(vals[i][0] < vals[i-1][0] && vals[i][0] <= vals[i+1][0]) {
			continue
		}
		if vals[i][1] < cfg.PairTol && depth < cfg.MaxDepth {
			a := xs[max(0, i-2)]
			b := xs[min(len(xs)-1, i+2)]
			sub, fe, err := p.minsearch(a, b, h/10, depth+1)
			evals += fe
			if err != nil {
				return nil, evals, err
			}
			minima = append(minima, sub...)
			continue
		}
		x, fe, err := golden(p.sigma, xs[i-1], xs[i+1], cfg.XTol)
		evals += fe
		if err != nil {
			return nil, evals, err
		}
		minima = append(minima, x)
	}
	return unique(minima, cfg.XTol), evals, nil
}
