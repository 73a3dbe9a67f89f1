// Package quad builds quadrature rules on polygon edges and cubature rules on
// caller-supplied triangular or quadrilateral meshes.
package quad

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/KyungWonPark/mps/internal/geom"
	"gonum.org/v1/gonum/floats"
	gquad "gonum.org/v1/gonum/integrate/quad"
)

var (
	// ErrRule is returned for unknown rule names or non-positive orders.
	ErrRule = errors.New("quad: invalid quadrature rule")

	// ErrShape is returned for mismatched node/weight/mesh arrays.
	ErrShape = errors.New("quad: malformed quadrature input")

	// ErrNotStarShaped is returned by Fan when a fan triangle is not positively oriented.
	ErrNotStarShaped = errors.New("quad: polygon is not star-shaped with respect to its first vertex")
)

// Rule is a set of nodes with matching positive weights
type Rule struct {
	Nodes   []geom.Point
	Weights []float64
}

// Len returns the number of nodes
func (r Rule) Len() int {
	return len(r.Nodes)
}

// Validate checks that nodes and weights match and that weights are positive and finite
func (r Rule) Validate() error {
	if len(r.Nodes) != len(r.Weights) {
		return fmt.Errorf("%w: %d nodes but %d weights", ErrShape, len(r.Nodes), len(r.Weights))
	}
	for i, w := range r.Weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %g", ErrShape, i, w)
		}
	}
	return nil
}

// Total returns the sum of the weights, the measure the rule integrates over
func (r Rule) Total() float64 {
	return floats.Sum(r.Weights)
}

// Concat returns the nodes of a followed by those of b
func Concat(a, b Rule) Rule {
	var r Rule
	r.Nodes = append(append(r.Nodes, a.Nodes...), b.Nodes...)
	r.Weights = append(append(r.Weights, a.Weights...), b.Weights...)
	return r
}

type line struct {
	nodes, weights []float64
}

type byNode struct {
	x, w []float64
}

func (b byNode) Len() int           { return len(b.x) }
func (b byNode) Less(i, j int) bool { return b.x[i] < b.x[j] }
func (b byNode) Swap(i, j int) {
	b.x[i], b.x[j] = b.x[j], b.x[i]
	b.w[i], b.w[j] = b.w[j], b.w[i]
}

var (
	legendreLock  sync.Mutex
	legendreCache = map[int]line{}
)

// Legendre returns the n-point Gauss-Legendre rule on [0,1].
// Weights sum to one. Rules are cached by order; callers must not modify them.
func Legendre(n int) ([]float64, []float64, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: legendre order %d", ErrRule, n)
	}

	legendreLock.Lock()
	defer legendreLock.Unlock()

	if l, ok := legendreCache[n]; ok {
		return l.nodes, l.weights, nil
	}

	x := make([]float64, n)
	w := make([]float64, n)
	gquad.Legendre{}.FixedLocations(x, w, 0, 1)
	sort.Sort(byNode{x, w})
	legendreCache[n] = line{nodes: x, weights: w}

	return x, w, nil
}

// Chebyshev returns the n-point Gauss-Chebyshev rule on [0,1] with the
// Chebyshev weight function cancelled out, in increasing node order.
func Chebyshev(n int) ([]float64, []float64, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: chebyshev order %d", ErrRule, n)
	}

	x := make([]float64, n)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		// reversed so that nodes increase
		k := n - 1 - i
		t := math.Cos(float64(2*k+1) * math.Pi / float64(2*n))
		x[i] = (t + 1) / 2
		w[i] = math.Pi / float64(n) * math.Sqrt(1-t*t) / 2
	}
	return x, w, nil
}

// Even returns n equispaced interior nodes of [0,1] with equal weights
func Even(n int) ([]float64, []float64, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: even order %d", ErrRule, n)
	}

	x := make([]float64, n)
	w := make([]float64, n)
	for i := range x {
		x[i] = float64(i+1) / float64(n+1)
		w[i] = 1 / float64(n)
	}
	return x, w, nil
}

// Line returns the named rule on [0,1]: "legendre", "chebyshev" or "even"
func Line(rule string, n int) ([]float64, []float64, error) {
	switch rule {
	case "legendre":
		return Legendre(n)
	case "chebyshev":
		return Chebyshev(n)
	case "even":
		return Even(n)
	}
	return nil, nil, fmt.Errorf("%w: quadrature rule %q is not implemented", ErrRule, rule)
}

// PerEdge returns n for each of the edges, with zero on the skipped edges
func PerEdge(n, edges int, skip ...int) []int {
	counts := make([]int, edges)
	for i := range counts {
		counts[i] = n
	}
	for _, s := range skip {
		counts[((s%edges)+edges)%edges] = 0
	}
	return counts
}

// BoundaryNodes places perEdge[i] nodes of the named rule along edge i of
// the polygon, scaling the weights by the edge length.
func BoundaryNodes(poly *geom.Polygon, perEdge []int, rule string) (Rule, error) {
	if len(perEdge) != poly.Len() {
		return Rule{}, fmt.Errorf("%w: %d node counts for %d edges", ErrShape, len(perEdge), poly.Len())
	}

	lens := poly.EdgeLengths()
	var r Rule
	for i, m := range perEdge {
		if m <= 0 {
			continue
		}
		x, w, err := Line(rule, m)
		if err != nil {
			return Rule{}, err
		}
		for j := range x {
			r.Nodes = append(r.Nodes, poly.PointOnEdge(i, x[j]))
			r.Weights = append(r.Weights, w[j]*lens[i])
		}
	}
	return r, nil
}
