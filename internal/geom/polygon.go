// Package geom holds the polygon geometry used to set up eigenvalue problems:
// edges, normals, angles and point sampling on the boundary and interior.
package geom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrTooFewVertices is returned for polygons with fewer than three vertices.
	ErrTooFewVertices = errors.New("geom: polygon needs at least 3 vertices")

	// ErrDegenerate is returned for polygons with (numerically) zero area or
	// repeated consecutive vertices.
	ErrDegenerate = errors.New("geom: degenerate polygon")

	// ErrClockwise is returned when the vertices are not counterclockwise.
	ErrClockwise = errors.New("geom: vertices must be ordered counterclockwise")

	// ErrShape is returned by the coordinate helpers on malformed arrays.
	ErrShape = errors.New("geom: coordinates must be pairs of x & y")
)

// Point is a 2-D coordinate
type Point struct {
	X, Y float64
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Norm returns the euclidean length of p
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Polygon is an immutable, implicitly closed, counterclockwise polygon.
// Edge i runs from vertex i to vertex i+1 (mod n).
type Polygon struct {
	vertices []Point
	area     float64
}

// NewPolygon validates the vertices and returns a Polygon
func NewPolygon(vertices []Point) (*Polygon, error) {
	n := len(vertices)
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVertices, n)
	}

	vs := make([]Point, n)
	copy(vs, vertices)

	var perimeter float64
	for i := 0; i < n; i++ {
		v := vs[i]
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return nil, fmt.Errorf("%w: vertex %d is not finite", ErrDegenerate, i)
		}
		d := vs[(i+1)%n].Sub(v).Norm()
		if d == 0 {
			return nil, fmt.Errorf("%w: vertices %d and %d coincide", ErrDegenerate, i, (i+1)%n)
		}
		perimeter += d
	}

	area := signedArea(vs)
	if math.Abs(area) <= 1e-12*perimeter*perimeter {
		return nil, fmt.Errorf("%w: area %g", ErrDegenerate, area)
	}
	if area < 0 {
		return nil, ErrClockwise
	}

	return &Polygon{vertices: vs, area: area}, nil
}

func signedArea(vs []Point) float64 {
	n := len(vs)
	var acc float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		acc += vs[i].X*vs[j].Y - vs[j].X*vs[i].Y
	}
	return acc / 2
}

// Len returns the number of vertices (and edges)
func (p *Polygon) Len() int {
	return len(p.vertices)
}

// Vertex returns vertex i, wrapping around
func (p *Polygon) Vertex(i int) Point {
	n := len(p.vertices)
	return p.vertices[((i%n)+n)%n]
}

// Vertices returns a copy of the vertices
func (p *Polygon) Vertices() []Point {
	vs := make([]Point, len(p.vertices))
	copy(vs, p.vertices)
	return vs
}

// Area returns the (positive) polygon area
func (p *Polygon) Area() float64 {
	return p.area
}

// Perimeter returns the sum of the edge lengths
func (p *Polygon) Perimeter() float64 {
	var acc float64
	for _, d := range p.EdgeLengths() {
		acc += d
	}
	return acc
}

// EdgeVectors returns v[i+1]-v[i] for every edge
func (p *Polygon) EdgeVectors() []Point {
	n := len(p.vertices)
	es := make([]Point, n)
	for i := 0; i < n; i++ {
		es[i] = p.Vertex(i + 1).Sub(p.vertices[i])
	}
	return es
}

// EdgeLengths returns the length of every edge
func (p *Polygon) EdgeLengths() []float64 {
	es := p.EdgeVectors()
	ds := make([]float64, len(es))
	for i, e := range es {
		ds[i] = e.Norm()
	}
	return ds
}

// Normals returns the outward unit normal of every edge
func (p *Polygon) Normals() []Point {
	es := p.EdgeVectors()
	ns := make([]Point, len(es))
	for i, e := range es {
		d := e.Norm()
		ns[i] = Point{X: e.Y / d, Y: -e.X / d}
	}
	return ns
}

// EdgeAngles returns the direction angle of every edge
func (p *Polygon) EdgeAngles() []float64 {
	es := p.EdgeVectors()
	as := make([]float64, len(es))
	for i, e := range es {
		as[i] = math.Atan2(e.Y, e.X)
	}
	return as
}

// InteriorAngles returns the interior angle at every vertex, in (0, 2π)
func (p *Polygon) InteriorAngles() []float64 {
	n := len(p.vertices)
	angles := make([]float64, n)
	for i := 0; i < n; i++ {
		a := p.Vertex(i + 1).Sub(p.vertices[i])
		b := p.Vertex(i - 1).Sub(p.vertices[i])
		theta := math.Atan2(a.X*b.Y-a.Y*b.X, a.X*b.X+a.Y*b.Y)
		if theta <= 0 {
			theta += 2 * math.Pi
		}
		angles[i] = theta
	}
	return angles
}

// Radii returns, for every vertex, the largest distance to another vertex
func (p *Polygon) Radii() []float64 {
	n := len(p.vertices)
	rs := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d := p.vertices[j].Sub(p.vertices[i]).Norm(); d > rs[i] {
				rs[i] = d
			}
		}
	}
	return rs
}

// Bounds returns the lower-left and upper-right corners of the bounding box
func (p *Polygon) Bounds() (ll, ur Point) {
	ll, ur = p.vertices[0], p.vertices[0]
	for _, v := range p.vertices[1:] {
		ll.X, ll.Y = math.Min(ll.X, v.X), math.Min(ll.Y, v.Y)
		ur.X, ur.Y = math.Max(ur.X, v.X), math.Max(ur.Y, v.Y)
	}
	return ll, ur
}

// Contains reports whether q lies strictly inside the polygon (ray casting)
func (p *Polygon) Contains(q Point) bool {
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.vertices[i], p.vertices[j]
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := a.X + (q.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if q.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// EdgeIndex returns the edge q lies on within distance tol, or -1
func (p *Polygon) EdgeIndex(q Point, tol float64) int {
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		a, b := p.vertices[i], p.Vertex(i+1)
		e := b.Sub(a)
		t := ((q.X-a.X)*e.X + (q.Y-a.Y)*e.Y) / (e.X*e.X + e.Y*e.Y)
		t = math.Max(0, math.Min(1, t))
		proj := Point{X: a.X + t*e.X, Y: a.Y + t*e.Y}
		if q.Sub(proj).Norm() <= tol {
			return i
		}
	}
	return -1
}

// EdgeIndices labels every point with the edge it lies on (-1 for interior points)
func (p *Polygon) EdgeIndices(pts []Point) []int {
	tol := 1e-10 * p.Perimeter()
	idx := make([]int, len(pts))
	for i, q := range pts {
		idx[i] = p.EdgeIndex(q, tol)
	}
	return idx
}

// PointOnEdge returns v[i] + t*(v[i+1]-v[i])
func (p *Polygon) PointOnEdge(i int, t float64) Point {
	a, b := p.Vertex(i), p.Vertex(i+1)
	return Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
}

// BoundaryPoints places perEdge[i] evenly spaced points strictly inside edge i
func (p *Polygon) BoundaryPoints(perEdge []int) ([]Point, error) {
	if len(perEdge) != len(p.vertices) {
		return nil, fmt.Errorf("%w: %d point counts for %d edges", ErrShape, len(perEdge), len(p.vertices))
	}

	var pts []Point
	for i, m := range perEdge {
		for j := 1; j <= m; j++ {
			pts = append(pts, p.PointOnEdge(i, float64(j)/float64(m+1)))
		}
	}
	return pts, nil
}

// InteriorPoints draws n uniformly distributed points inside the polygon
func (p *Polygon) InteriorPoints(n int, rng *rand.Rand) []Point {
	ll, ur := p.Bounds()
	pts := make([]Point, 0, n)
	for len(pts) < n {
		q := Point{
			X: ll.X + rng.Float64()*(ur.X-ll.X),
			Y: ll.Y + rng.Float64()*(ur.Y-ll.Y),
		}
		if p.Contains(q) && p.EdgeIndex(q, 1e-9) < 0 {
			pts = append(pts, q)
		}
	}
	return pts
}

// FromXY zips coordinate slices into points
func FromXY(x, y []float64) ([]Point, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x coordinates but %d y coordinates", ErrShape, len(x), len(y))
	}
	pts := make([]Point, len(x))
	for i := range x {
		pts[i] = Point{X: x[i], Y: y[i]}
	}
	return pts, nil
}

// FromFlat converts a row-major array of the given shape into points.
// Both (m,2) and (2,m) layouts are accepted.
func FromFlat(data []float64, shape []int) ([]Point, error) {
	if len(shape) != 2 || shape[0]*shape[1] != len(data) {
		return nil, fmt.Errorf("%w: shape %v", ErrShape, shape)
	}

	rows, cols := shape[0], shape[1]
	switch {
	case cols == 2:
		pts := make([]Point, rows)
		for i := range pts {
			pts[i] = Point{X: data[2*i], Y: data[2*i+1]}
		}
		return pts, nil
	case rows == 2:
		return FromXY(data[:cols], data[cols:])
	}
	return nil, fmt.Errorf("%w: shape %v", ErrShape, shape)
}
