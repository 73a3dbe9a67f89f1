package mps

import (
	"io"
	"log"

	"github.com/KyungWonPark/mps/internal/fbasis"
	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/KyungWonPark/mps/internal/quad"
)

// Defaults used by New
const (
	DefaultBoundaryPoints = 20
	DefaultInteriorPoints = 50
	DefaultRTol           = 0
	DefaultMTol           = 1e-4
	DefaultSeed           = 1
)

// SearchConfig controls the eigenvalue locator
type SearchConfig struct {
	// XTol is the location tolerance of minima and duplicates
	XTol float64
	// YTol is the sine below which a minimum counts as an eigenvalue
	YTol float64
	// PointsPerLevel is the grid density per Weyl index level
	PointsPerLevel int
	// PairTol triggers grid refinement when the second tangent is this small
	PairTol float64
	// MaxDepth bounds the refinement recursion
	MaxDepth int
	// MaxExtensions bounds consecutive window extensions
	MaxExtensions int
	Verbose       bool
}

// DefaultSearchConfig returns the locator defaults
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		XTol:           1e-8,
		YTol:           1e-5,
		PointsPerLevel: 20,
		PairTol:        0.1,
		MaxDepth:       2,
		MaxExtensions:  64,
	}
}

// BasisFactory builds a basis for a polygon and per-vertex expansion orders
type BasisFactory func(poly *geom.Polygon, orders []int) (Basis, error)

// FourierBessel is the default BasisFactory
func FourierBessel(poly *geom.Polygon, orders []int) (Basis, error) {
	b, err := fbasis.New(poly, orders)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type config struct {
	boundaryN      int
	boundaryMethod string
	boundary       []geom.Point

	interiorN      int
	interiorMethod string
	interior       []geom.Point

	quadBoundary *quad.Rule
	quadInterior *quad.Rule
	edgeOrder    int
	cellOrder    int

	rtol, mtol float64
	seed       int64
	workers    int
	logger     *log.Logger
	factory    BasisFactory
	search     SearchConfig
}

func defaultConfig() config {
	return config{
		boundaryN:      DefaultBoundaryPoints,
		boundaryMethod: "even",
		interiorN:      DefaultInteriorPoints,
		interiorMethod: "random",
		rtol:           DefaultRTol,
		mtol:           DefaultMTol,
		seed:           DefaultSeed,
		logger:         log.New(io.Discard, "", 0),
		factory:        FourierBessel,
		search:         DefaultSearchConfig(),
	}
}

// Option configures a Problem
type Option func(*config)

// WithBoundaryPoints places n points on every sampled edge using method
// "even", "legendre" or "chebyshev"
func WithBoundaryPoints(n int, method string) Option {
	return func(c *config) {
		c.boundaryN = n
		c.boundaryMethod = method
		c.boundary = nil
	}
}

// WithBoundary uses explicit boundary points
func WithBoundary(pts []geom.Point) Option {
	return func(c *config) {
		c.boundary = append([]geom.Point{}, pts...)
	}
}

// WithInteriorPoints samples n interior points using method "random"
func WithInteriorPoints(n int, method string) Option {
	return func(c *config) {
		c.interiorN = n
		c.interiorMethod = method
		c.interior = nil
	}
}

// WithInterior uses explicit interior points
func WithInterior(pts []geom.Point) Option {
	return func(c *config) {
		c.interior = append([]geom.Point{}, pts...)
	}
}

// WithQuadrature supplies boundary and interior quadrature rules for the
// weighted formulations
func WithQuadrature(boundary, interior quad.Rule) Option {
	return func(c *config) {
		c.quadBoundary = &boundary
		c.quadInterior = &interior
		c.edgeOrder, c.cellOrder = 0, 0
	}
}

// WithDefaultQuadrature builds Gauss-Legendre boundary nodes with edgeOrder
// nodes per edge and a fan cubature of cellOrder over the polygon
func WithDefaultQuadrature(edgeOrder, cellOrder int) Option {
	return func(c *config) {
		c.edgeOrder = edgeOrder
		c.cellOrder = cellOrder
		c.quadBoundary = nil
		c.quadInterior = nil
	}
}

// WithMeshQuadrature builds Gauss-Legendre boundary nodes with edgeOrder
// nodes per edge and takes the interior cubature from a caller-supplied
// rule, typically a mesh of a polygon the fan cubature cannot cover
func WithMeshQuadrature(edgeOrder int, interior quad.Rule) Option {
	return func(c *config) {
		c.edgeOrder = edgeOrder
		c.cellOrder = 0
		c.quadBoundary = nil
		c.quadInterior = &interior
	}
}

// WithTolerances sets the default rank and multiplicity tolerances
func WithTolerances(rtol, mtol float64) Option {
	return func(c *config) {
		c.rtol = rtol
		c.mtol = mtol
	}
}

// WithSeed seeds the random interior sampling
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithWorkers sets the number of workers of grid scans; 0 uses every CPU
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the logger of the eigenvalue search
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBasis replaces the Fourier-Bessel basis
func WithBasis(f BasisFactory) Option {
	return func(c *config) {
		if f != nil {
			c.factory = f
		}
	}
}

// WithSearch sets the eigenvalue locator configuration
func WithSearch(s SearchConfig) Option {
	return func(c *config) {
		c.search = s
	}
}

type tolerances struct {
	rtol, mtol float64
	pivot      bool
}

// TolOption overrides a tolerance for a single call
type TolOption func(*tolerances)

// RTol overrides the rank truncation tolerance
func RTol(x float64) TolOption {
	return func(t *tolerances) {
		t.rtol = x
	}
}

// MTol overrides the multiplicity tolerance
func MTol(x float64) TolOption {
	return func(t *tolerances) {
		t.mtol = x
	}
}

// NoPivot disables column pivoting and rank truncation
func NoPivot() TolOption {
	return func(t *tolerances) {
		t.pivot = false
	}
}

func (p *Problem) tolerances(opts []TolOption) tolerances {
	t := tolerances{rtol: p.rtol, mtol: p.mtol, pivot: true}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}
