package mps

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape is matched by every *InputShapeError.
	ErrInputShape = errors.New("mps: malformed input")

	// ErrNoQuadrature is returned by weighted operations on a problem built
	// without quadrature nodes and weights.
	ErrNoQuadrature = errors.New("mps: problem has no quadrature rule")

	// ErrSearchExhausted is returned when the eigenvalue search extended its
	// window the maximum number of times without finding enough eigenvalues.
	ErrSearchExhausted = errors.New("mps: eigenvalue search exhausted")
)

// InputShapeError reports malformed construction or call arguments
type InputShapeError struct {
	Op  string
	Msg string
	Err error
}

func (e *InputShapeError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("mps: %s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("mps: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mps: %s: %s", e.Op, e.Msg)
}

func (e *InputShapeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInputShape}
	}
	return []error{ErrInputShape, e.Err}
}

func shapeErrorf(op string, format string, args ...any) error {
	return &InputShapeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NumericalError reports a decomposition that failed or produced
// non-finite values at Lambda
type NumericalError struct {
	Op     string
	Lambda float64
	Err    error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("mps: %s: numerical failure at lambda = %.15g: %v", e.Op, e.Lambda, e.Err)
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}

// ZeroMultiplicityError reports that Lambda is not an eigenvalue at the
// multiplicity tolerance MTol; Sigma is the smallest value achieved
type ZeroMultiplicityError struct {
	Lambda float64
	Sigma  float64
	MTol   float64
}

func (e *ZeroMultiplicityError) Error() string {
	return fmt.Sprintf("mps: lambda = %.3e has multiplicity zero (sigma = %.3e > %.3e = mtol)", e.Lambda, e.Sigma, e.MTol)
}

// RepeatedEigenvalueError reports a gradient request for a repeated eigenvalue
type RepeatedEigenvalueError struct {
	Lambda       float64
	Multiplicity int
}

func (e *RepeatedEigenvalueError) Error() string {
	return fmt.Sprintf("mps: lambda = %.6g is repeated (multiplicity %d) and only has directional derivatives", e.Lambda, e.Multiplicity)
}

// MultiplicityMismatchError reports that the subspace angles and the
// eigenbasis disagree on the multiplicity of Lambda
type MultiplicityMismatchError struct {
	Lambda float64
	Angles int
	Gram   int
}

func (e *MultiplicityMismatchError) Error() string {
	return fmt.Sprintf("mps: multiplicity mismatch at lambda = %.6g: %d from subspace angles, %d from the eigenbasis", e.Lambda, e.Angles, e.Gram)
}
