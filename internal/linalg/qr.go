// Package linalg wraps the dense factorizations used by the subspace angle
// engine: QR with and without column pivoting, SVD, GSVD, generalized
// eigenvalues and triangular solves.
package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/gonum"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoConvergence is returned when an iterative factorization fails.
	ErrNoConvergence = errors.New("linalg: factorization did not converge")

	// ErrNonFinite is returned for NaN or infinite input or output.
	ErrNonFinite = errors.New("linalg: non-finite values")

	// ErrSingular is returned for exactly singular triangular systems.
	ErrSingular = errors.New("linalg: singular matrix")

	// ErrShape is returned for mismatched dimensions.
	ErrShape = errors.New("linalg: dimension mismatch")

	// ErrIndefinite is returned for generalized eigenvalues that are
	// negative beyond roundoff.
	ErrIndefinite = errors.New("linalg: negative generalized eigenvalue")
)

// QR is an economy-size QR factorization A P = Q R.
// Q is m×k with orthonormal columns, R is k×n upper trapezoidal and
// k = min(m, n). Column j of A P is column Perm[j] of A.
type QR struct {
	Q    *mat.Dense
	R    *mat.Dense
	Perm []int

	pivoted bool
}

// Rank returns the number of leading diagonal entries of R whose magnitude
// exceeds rtol times the largest one. Without pivoting every column counts.
func (f *QR) Rank(rtol float64) int {
	k, _ := f.R.Dims()
	if !f.pivoted {
		return k
	}

	var big float64
	for j := 0; j < k; j++ {
		big = math.Max(big, math.Abs(f.R.At(j, j)))
	}
	cutoff := 0
	for j := 0; j < k; j++ {
		if math.Abs(f.R.At(j, j)) > rtol*big {
			cutoff++
		}
	}
	return cutoff
}

func checkFinite(a mat.Matrix) error {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: entry (%d,%d) is %g", ErrNonFinite, i, j, v)
			}
		}
	}
	return nil
}

func checkFiniteSlice(vs []float64) error {
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is %g", ErrNonFinite, i, v)
		}
	}
	return nil
}

// Factorize returns the economy QR factorization of a, with column pivoting
// when pivot is set.
func Factorize(a mat.Matrix, pivot bool) (*QR, error) {
	if err := checkFinite(a); err != nil {
		return nil, err
	}
	if pivot {
		return pivotedQR(a), nil
	}
	return plainQR(a), nil
}

func plainQR(a mat.Matrix) *QR {
	m, n := a.Dims()
	k := min(m, n)

	var qr mat.QR
	qr.Factorize(a)

	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	perm := make([]int, n)
	for j := range perm {
		perm[j] = j
	}
	return &QR{
		Q:    mat.DenseCopyOf(q.Slice(0, m, 0, k)),
		R:    mat.DenseCopyOf(r.Slice(0, k, 0, n)),
		Perm: perm,
	}
}

func pivotedQR(a mat.Matrix) *QR {
	m, n := a.Dims()
	k := min(m, n)

	work := mat.DenseCopyOf(a)
	raw := work.RawMatrix()

	// -1 marks every column as free
	jpvt := make([]int, n)
	for j := range jpvt {
		jpvt[j] = -1
	}
	tau := make([]float64, k)

	var impl gonum.Implementation
	query := make([]float64, 1)
	impl.Dgeqp3(m, n, raw.Data, raw.Stride, jpvt, tau, query, -1)
	buf := make([]float64, max(int(query[0]), 3*n+1))
	impl.Dgeqp3(m, n, raw.Data, raw.Stride, jpvt, tau, buf, len(buf))

	r := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		for j := i; j < n; j++ {
			r.Set(i, j, raw.Data[i*raw.Stride+j])
		}
	}

	impl.Dorgqr(m, k, k, raw.Data, raw.Stride, tau, query, -1)
	buf = make([]float64, max(int(query[0]), k, 1))
	impl.Dorgqr(m, k, k, raw.Data, raw.Stride, tau, buf, len(buf))

	return &QR{
		Q:       mat.DenseCopyOf(work.Slice(0, m, 0, k)),
		R:       r,
		Perm:    jpvt,
		pivoted: true,
	}
}

// SolveUpper solves R X = B for the leading n×n upper triangle of r
func SolveUpper(r *mat.Dense, b mat.Matrix) (*mat.Dense, error) {
	n, _ := b.Dims()
	rr, rc := r.Dims()
	if rr < n || rc < n {
		return nil, fmt.Errorf("%w: %d×%d triangle for %d right-hand rows", ErrShape, rr, rc, n)
	}

	tri := mat.DenseCopyOf(r.Slice(0, n, 0, n))
	x := mat.DenseCopyOf(b)

	traw := tri.RawMatrix()
	ok := lapack64.Trtrs(blas.NoTrans, blas64.Triangular{
		Uplo:   blas.Upper,
		Diag:   blas.NonUnit,
		N:      n,
		Stride: traw.Stride,
		Data:   traw.Data,
	}, x.RawMatrix())
	if !ok {
		return nil, ErrSingular
	}
	return x, nil
}
