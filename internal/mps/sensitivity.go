package mps

import (
	"github.com/KyungWonPark/mps/internal/cluster"
	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/linalg"
	"github.com/KyungWonPark/mps/internal/quad"
	"gonum.org/v1/gonum/mat"
)

// DefaultEdgeNodes is the Gauss-Legendre order used along every edge by the
// shape derivative
const DefaultEdgeNodes = 20

// OutwardNormalDerivatives returns, for every edge, the outward normal
// derivative of the weighted eigenbasis at lambda on n Gauss-Legendre nodes
// of the edge: one n x mult matrix per edge.
func (p *Problem) OutwardNormalDerivatives(lambda float64, n int, opts ...TolOption) ([]*mat.Dense, error) {
	const op = "OutwardNormalDerivatives"
	if err := checkLambda(op, lambda); err != nil {
		return nil, err
	}
	if p.nodeBasis == nil {
		return nil, ErrNoQuadrature
	}
	nodes, _, err := quad.Legendre(n)
	if err != nil {
		return nil, &InputShapeError{Op: op, Err: err}
	}

	edges := p.poly.Len()
	pts := make([]geom.Point, 0, edges*n)
	for e := 0; e < edges; e++ {
		for _, t := range nodes {
			pts = append(pts, p.poly.PointOnEdge(e, t))
		}
	}

	ux, uy, err := p.EigenfunctionGradients(lambda, pts, opts...)
	if err != nil {
		return nil, err
	}
	_, mult := ux.Dims()

	normals := p.poly.Normals()
	dn := make([]*mat.Dense, edges)
	for e := 0; e < edges; e++ {
		m := mat.NewDense(n, mult, nil)
		for i := 0; i < n; i++ {
			r := e*n + i
			for j := 0; j < mult; j++ {
				m.Set(i, j, normals[e].X*ux.At(r, j)+normals[e].Y*uy.At(r, j))
			}
		}
		dn[e] = m
	}
	return dn, nil
}

// GramTensors holds, for every vertex, the mult x mult coefficients of the
// eigenvalue perturbation under a unit move of that vertex along x and y
type GramTensors struct {
	X []*mat.Dense
	Y []*mat.Dense
}

// Mult returns the eigenspace dimension the tensors were built from
func (g *GramTensors) Mult() int {
	if len(g.X) == 0 {
		return 0
	}
	_, c := g.X[0].Dims()
	return c
}

// GramTensors integrates products of outward normal derivatives along every
// edge against the two hat functions of its end points and combines them
// with the edge vectors, following Hadamard's formula on polygons
func (p *Problem) GramTensors(lambda float64, n int, opts ...TolOption) (*GramTensors, error) {
	dn, err := p.OutwardNormalDerivatives(lambda, n, opts...)
	if err != nil {
		return nil, err
	}
	nodes, weights, err := quad.Legendre(n)
	if err != nil {
		return nil, &InputShapeError{Op: "GramTensors", Err: err}
	}

	edges := len(dn)
	fwd := make([]*mat.Dense, edges)
	rev := make([]*mat.Dense, edges)
	for e, d := range dn {
		_, mult := d.Dims()
		wf := mat.NewDense(n, mult, nil)
		wr := mat.NewDense(n, mult, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < mult; j++ {
				wf.Set(i, j, weights[i]*nodes[i]*d.At(i, j))
				wr.Set(i, j, weights[i]*(1-nodes[i])*d.At(i, j))
			}
		}
		fwd[e] = &mat.Dense{}
		fwd[e].Mul(d.T(), wf)
		rev[e] = &mat.Dense{}
		rev[e].Mul(d.T(), wr)
	}

	es := p.poly.EdgeVectors()
	g := &GramTensors{X: make([]*mat.Dense, edges), Y: make([]*mat.Dense, edges)}
	for v := 0; v < edges; v++ {
		prev := (v + edges - 1) % edges

		var x, y, tmp mat.Dense
		x.Scale(-es[prev].Y, fwd[prev])
		tmp.Scale(-es[v].Y, rev[v])
		x.Add(&x, &tmp)

		y.Scale(es[prev].X, fwd[prev])
		tmp.Scale(es[v].X, rev[v])
		y.Add(&y, &tmp)

		g.X[v], g.Y[v] = &x, &y
	}
	return g, nil
}

// Direction is a perturbation of every vertex
type Direction struct {
	DX []float64
	DY []float64
}

// Derivative is the shape derivative of an eigenvalue. Without a direction
// GradX and GradY hold the gradient with respect to every vertex coordinate;
// with one, Values holds the directional derivative of a simple eigenvalue or
// the ascending derivatives of the branches of a repeated one.
type Derivative struct {
	Multiplicity int
	GradX        []float64
	GradY        []float64
	Values       []float64
}

// ShapeDerivative returns the derivative of the eigenvalue lambda with
// respect to the polygon vertices. The multiplicity is the number of
// weighted subspace angle sines below multTol. A nil direction requests the
// full gradient, which only exists for simple eigenvalues.
func (p *Problem) ShapeDerivative(lambda, multTol float64, dir *Direction, opts ...TolOption) (*Derivative, error) {
	const op = "ShapeDerivative"
	nv := p.poly.Len()
	if dir != nil && (len(dir.DX) != nv || len(dir.DY) != nv) {
		return nil, shapeErrorf(op, "direction must have %d x and y components, got %d and %d", nv, len(dir.DX), len(dir.DY))
	}
	if !(multTol > 0) {
		return nil, shapeErrorf(op, "multiplicity tolerance %g", multTol)
	}

	s, err := p.WeightedSubspaceSines(lambda, opts...)
	if err != nil {
		return nil, err
	}
	mult := cluster.GetMultiplicity(s, multTol)
	if mult > 1 && dir == nil {
		return nil, &RepeatedEigenvalueError{Lambda: lambda, Multiplicity: mult}
	}

	g, err := p.GramTensors(lambda, DefaultEdgeNodes, opts...)
	if err != nil {
		return nil, err
	}
	if g.Mult() != mult {
		return nil, &MultiplicityMismatchError{Lambda: lambda, Angles: mult, Gram: g.Mult()}
	}

	d := &Derivative{Multiplicity: mult}
	if dir == nil {
		d.GradX = make([]float64, nv)
		d.GradY = make([]float64, nv)
		for v := 0; v < nv; v++ {
			d.GradX[v] = g.X[v].At(0, 0)
			d.GradY[v] = g.Y[v].At(0, 0)
		}
		return d, nil
	}

	m := mat.NewDense(mult, mult, nil)
	var tmp mat.Dense
	for v := 0; v < nv; v++ {
		tmp.Scale(dir.DX[v], g.X[v])
		m.Add(m, &tmp)
		tmp.Scale(dir.DY[v], g.Y[v])
		m.Add(m, &tmp)
	}

	if mult == 1 {
		d.Values = []float64{m.At(0, 0)}
		return d, nil
	}
	d.Values, err = linalg.SymEigenvalues(m)
	if err != nil {
		return nil, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}
	return d, nil
}

// Gradient flattens the vertex gradient as all x components followed by all
// y components
func (d *Derivative) Gradient() []float64 {
	return append(append([]float64(nil), d.GradX...), d.GradY...)
}
