// Package mps locates Dirichlet Laplacian eigenvalues of polygons with the
// method of particular solutions.
//
// A Problem evaluates a corner-adapted basis at boundary and interior sample
// points. At an eigenvalue some combination of basis functions vanishes on
// the boundary without vanishing inside, so the subspace angle between the
// boundary rows and the full sample space drops to zero. The package
// computes these angles in several ways, extracts eigenfunctions and their
// shape derivatives, and enumerates eigenvalues in increasing order.
package mps

import (
	"log"
	"math"
	"math/rand"
	"slices"
	"sort"
	"sync"

	"github.com/KyungWonPark/mps/internal/calc"
	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/quad"
	"gonum.org/v1/gonum/mat"
)

// Basis evaluates basis functions, one column per function and one row
// per point. A nil point set selects the default points.
type Basis interface {
	Len() int
	Eval(lambda float64, pts []geom.Point) (*mat.Dense, error)
	Grad(lambda float64, pts []geom.Point) (*mat.Dense, *mat.Dense, error)
	SetDefaultPoints(pts []geom.Point)
}

// Problem is a polygonal Dirichlet Laplacian eigenvalue problem
type Problem struct {
	poly   *geom.Polygon
	orders []int

	basis    Basis
	boundary []geom.Point
	interior []geom.Point
	edgeIdx  []int

	// quadrature-weighted problem; nodeBasis is nil without quadrature
	nodeBasis Basis
	quadB     quad.Rule
	quadI     quad.Rule
	weights   []float64

	rtol, mtol float64
	lowerBound float64
	search     SearchConfig
	logger     *log.Logger
	pl         *calc.PipeLine

	searchLock sync.Mutex
	registry   []float64

	sines   *memo[[]float64]
	wsines  *memo[[]float64]
	tans    map[Method]*memo[[]float64]
	wtans   map[Method]*memo[[]float64]
	coefs   *memo[*mat.Dense]
	ucoefs  *memo[*mat.Dense]
	gcoefs  *memo[*mat.Dense]
	nodeval *memo[*mat.Dense]
}

func cloneDense(m *mat.Dense) *mat.Dense {
	return mat.DenseCopyOf(m)
}

// skippedEdges returns the two edges adjacent to the only vertex carrying
// basis functions, on which every basis function vanishes
func skippedEdges(orders []int) []int {
	var active []int
	for v, o := range orders {
		if o > 0 {
			active = append(active, v)
		}
	}
	if len(active) != 1 {
		return nil
	}
	return []int{active[0] - 1, active[0]}
}

// New builds a problem on the counterclockwise polygon with the given
// vertices and orders[k] basis functions at vertex k
func New(vertices []geom.Point, orders []int, opts ...Option) (*Problem, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	poly, err := geom.NewPolygon(vertices)
	if err != nil {
		return nil, &InputShapeError{Op: "New", Msg: "polygon", Err: err}
	}
	if cfg.mtol <= 0 || cfg.rtol < 0 {
		return nil, shapeErrorf("New", "tolerances rtol = %g, mtol = %g", cfg.rtol, cfg.mtol)
	}

	basis, err := cfg.factory(poly, orders)
	if err != nil {
		return nil, &InputShapeError{Op: "New", Msg: "basis", Err: err}
	}

	p := &Problem{
		poly:       poly,
		orders:     append([]int(nil), orders...),
		basis:      basis,
		rtol:       cfg.rtol,
		mtol:       cfg.mtol,
		lowerBound: 5.76 * math.Pi / poly.Area(),
		search:     cfg.search,
		logger:     cfg.logger,
		pl:         calc.Init(cfg.workers, false),
		sines:      newMemo(slices.Clone[[]float64]),
		wsines:     newMemo(slices.Clone[[]float64]),
		tans:       make(map[Method]*memo[[]float64]),
		wtans:      make(map[Method]*memo[[]float64]),
		coefs:      newMemo(cloneDense),
		ucoefs:     newMemo(cloneDense),
		gcoefs:     newMemo(cloneDense),
		nodeval:    newMemo(cloneDense),
	}
	for _, m := range []Method{GSVD, RegularizedGSVD, GEVD} {
		p.tans[m] = newMemo(slices.Clone[[]float64])
		p.wtans[m] = newMemo(slices.Clone[[]float64])
	}

	skip := skippedEdges(orders)

	if err := p.sampleBoundary(&cfg, skip); err != nil {
		return nil, err
	}
	if err := p.sampleInterior(&cfg); err != nil {
		return nil, err
	}

	pts := make([]geom.Point, 0, len(p.boundary)+len(p.interior))
	pts = append(append(pts, p.boundary...), p.interior...)
	p.basis.SetDefaultPoints(pts)
	p.edgeIdx = poly.EdgeIndices(p.boundary)

	if err := p.setQuadrature(&cfg, skip); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Problem) sampleBoundary(cfg *config, skip []int) error {
	if cfg.boundary != nil {
		p.boundary = cfg.boundary
	} else {
		if cfg.boundaryN < 1 {
			return shapeErrorf("New", "%d boundary points per edge", cfg.boundaryN)
		}
		perEdge := quad.PerEdge(cfg.boundaryN, p.poly.Len(), skip...)
		if cfg.boundaryMethod == "even" {
			pts, err := p.poly.BoundaryPoints(perEdge)
			if err != nil {
				return &InputShapeError{Op: "New", Msg: "boundary points", Err: err}
			}
			p.boundary = pts
		} else {
			r, err := quad.BoundaryNodes(p.poly, perEdge, cfg.boundaryMethod)
			if err != nil {
				return &InputShapeError{Op: "New", Msg: "boundary points", Err: err}
			}
			p.boundary = r.Nodes
		}
	}
	if len(p.boundary) == 0 {
		return shapeErrorf("New", "no boundary points")
	}
	return nil
}

func (p *Problem) sampleInterior(cfg *config) error {
	if cfg.interior != nil {
		p.interior = cfg.interior
	} else {
		if cfg.interiorMethod != "random" {
			return shapeErrorf("New", "interior sampling method %q is not implemented", cfg.interiorMethod)
		}
		if cfg.interiorN < 1 {
			return shapeErrorf("New", "%d interior points", cfg.interiorN)
		}
		rng := rand.New(rand.NewSource(cfg.seed))
		p.interior = p.poly.InteriorPoints(cfg.interiorN, rng)
	}
	if len(p.interior) == 0 {
		return shapeErrorf("New", "no interior points")
	}
	return nil
}

func (p *Problem) setQuadrature(cfg *config, skip []int) error {
	switch {
	case cfg.quadBoundary != nil:
		p.quadB, p.quadI = *cfg.quadBoundary, *cfg.quadInterior
	case cfg.edgeOrder > 0:
		b, err := quad.BoundaryNodes(p.poly, quad.PerEdge(cfg.edgeOrder, p.poly.Len(), skip...), "legendre")
		if err != nil {
			return &InputShapeError{Op: "New", Msg: "boundary quadrature", Err: err}
		}
		p.quadB = b
		if cfg.quadInterior != nil {
			p.quadI = *cfg.quadInterior
			break
		}
		i, err := quad.Fan(p.poly, cfg.cellOrder)
		if err != nil {
			return &InputShapeError{Op: "New", Msg: "interior quadrature", Err: err}
		}
		p.quadI = i
	case cfg.quadInterior != nil:
		return shapeErrorf("New", "mesh quadrature with %d edge nodes", cfg.edgeOrder)
	default:
		return nil
	}

	for _, r := range []quad.Rule{p.quadB, p.quadI} {
		if err := r.Validate(); err != nil {
			return &InputShapeError{Op: "New", Msg: "quadrature", Err: err}
		}
		if r.Len() == 0 {
			return shapeErrorf("New", "empty quadrature rule")
		}
	}

	rule := quad.Concat(p.quadB, p.quadI)
	p.weights = make([]float64, rule.Len())
	for i, w := range rule.Weights {
		p.weights[i] = math.Sqrt(w)
	}

	nodeBasis, err := cfg.factory(p.poly, p.orders)
	if err != nil {
		return &InputShapeError{Op: "New", Msg: "basis", Err: err}
	}
	nodeBasis.SetDefaultPoints(rule.Nodes)
	p.nodeBasis = nodeBasis

	return nil
}

// Polygon returns the problem domain
func (p *Problem) Polygon() *geom.Polygon {
	return p.poly
}

// Orders returns the expansion order at every vertex
func (p *Problem) Orders() []int {
	return append([]int(nil), p.orders...)
}

// BoundaryPoints returns the boundary sample points
func (p *Problem) BoundaryPoints() []geom.Point {
	return append([]geom.Point(nil), p.boundary...)
}

// InteriorPoints returns the interior sample points
func (p *Problem) InteriorPoints() []geom.Point {
	return append([]geom.Point(nil), p.interior...)
}

// EdgeIndices returns the edge every boundary point lies on, -1 if none
func (p *Problem) EdgeIndices() []int {
	return append([]int(nil), p.edgeIdx...)
}

// HasQuadrature reports whether the weighted formulations are available
func (p *Problem) HasQuadrature() bool {
	return p.nodeBasis != nil
}

// Tolerances returns the default rank and multiplicity tolerances
func (p *Problem) Tolerances() (rtol, mtol float64) {
	return p.rtol, p.mtol
}

// LowerBound returns 5.76π/area, a lower bound of the first eigenvalue
func (p *Problem) LowerBound() float64 {
	return p.lowerBound
}

// WeylEstimate returns the two-term Weyl estimate of the k-th eigenvalue
func (p *Problem) WeylEstimate(k int) float64 {
	a := p.poly.Area()
	per := p.poly.Perimeter()
	r := (per + math.Sqrt(per*per+16*math.Pi*a*float64(k))) / (2 * a)
	return r * r
}

// Eigenvalues returns the eigenvalues found so far, repeated by
// multiplicity, in ascending order
func (p *Problem) Eigenvalues() []float64 {
	p.searchLock.Lock()
	defer p.searchLock.Unlock()

	eigs := append([]float64(nil), p.registry...)
	sort.Float64s(eigs)
	return eigs
}

// CacheStats returns the totals over all memoized evaluations
func (p *Problem) CacheStats() CacheStats {
	var s CacheStats
	for _, m := range []*memo[[]float64]{p.sines, p.wsines} {
		s = s.add(m.stats())
	}
	for _, tans := range []map[Method]*memo[[]float64]{p.tans, p.wtans} {
		for _, m := range tans {
			s = s.add(m.stats())
		}
	}
	for _, m := range []*memo[*mat.Dense]{p.coefs, p.ucoefs, p.gcoefs, p.nodeval} {
		s = s.add(m.stats())
	}
	return s
}

func checkLambda(op string, lambda float64) error {
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return shapeErrorf(op, "lambda must be positive and finite, got %g", lambda)
	}
	return nil
}

// matrix evaluates the basis on the sample points, boundary rows first
func (p *Problem) matrix(op string, lambda float64) (*mat.Dense, int, error) {
	a, err := p.basis.Eval(lambda, nil)
	if err != nil {
		return nil, 0, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}
	return a, len(p.boundary), nil
}

// weightedMatrix evaluates the basis on the quadrature nodes and scales
// every row by the square root of its weight
func (p *Problem) weightedMatrix(op string, lambda float64) (*mat.Dense, int, error) {
	if p.nodeBasis == nil {
		return nil, 0, ErrNoQuadrature
	}
	a, err := p.nodeBasis.Eval(lambda, nil)
	if err != nil {
		return nil, 0, &NumericalError{Op: op, Lambda: lambda, Err: err}
	}

	rows, _ := a.Dims()
	for i := 0; i < rows; i++ {
		row := a.RawRowView(i)
		for j := range row {
			row[j] *= p.weights[i]
		}
	}
	return a, p.quadB.Len(), nil
}
