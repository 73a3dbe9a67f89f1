package linalg

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

func checkValues(vs []float64) error {
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is %g", ErrNonFinite, i, v)
		}
	}
	return nil
}

func reverse(vs []float64) {
	for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}
}

// SingularValues returns the singular values of a in ascending order
func SingularValues(a mat.Matrix) ([]float64, error) {
	if err := checkFinite(a); err != nil {
		return nil, err
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return nil, ErrNoConvergence
	}
	s := svd.Values(nil)
	if err := checkValues(s); err != nil {
		return nil, err
	}
	reverse(s)
	return s, nil
}

// NullSVD returns all n singular values of the m×n matrix a in ascending
// order together with the full n×n matrix of right singular vectors, column
// j belonging to value j. When m < n the missing values are zero.
func NullSVD(a mat.Matrix) ([]float64, *mat.Dense, error) {
	if err := checkFinite(a); err != nil {
		return nil, nil, err
	}
	_, n := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFullV); !ok {
		return nil, nil, ErrNoConvergence
	}
	s := make([]float64, n)
	copy(s, svd.Values(nil))
	if err := checkValues(s); err != nil {
		return nil, nil, err
	}

	var v mat.Dense
	svd.VTo(&v)

	reverse(s)
	asc := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		asc.SetCol(j, mat.Col(nil, n-1-j, &v))
	}
	return s, asc, nil
}

// Range returns the left singular vectors of a whose singular values exceed
// tol, keeping at least the leading one.
func Range(a mat.Matrix, tol float64) (*mat.Dense, error) {
	if err := checkFinite(a); err != nil {
		return nil, err
	}
	m, _ := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThinU); !ok {
		return nil, ErrNoConvergence
	}
	s := svd.Values(nil)
	if err := checkValues(s); err != nil {
		return nil, err
	}

	cutoff := 0
	for _, v := range s {
		if v > tol {
			cutoff++
		}
	}
	cutoff = max(cutoff, 1)

	var u mat.Dense
	svd.UTo(&u)
	return mat.DenseCopyOf(u.Slice(0, m, 0, cutoff)), nil
}

// SymEigenvalues returns the eigenvalues of the symmetric part of the square
// matrix a in ascending order.
func SymEigenvalues(a mat.Matrix) ([]float64, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %d×%d is not square", ErrShape, r, c)
	}
	if err := checkFinite(a); err != nil {
		return nil, err
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return nil, ErrNoConvergence
	}
	vs := es.Values(nil)
	sort.Float64s(vs)
	return vs, nil
}
