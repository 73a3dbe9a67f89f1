package quad

import (
	"fmt"
	"math"

	"github.com/KyungWonPark/mps/internal/geom"
)

// Triangle returns a collapsed Gauss-Legendre rule of the given order on the
// reference triangle, as barycentric coordinates and weights summing to one.
func Triangle(order int) ([][3]float64, []float64, error) {
	x, w, err := Legendre(order)
	if err != nil {
		return nil, nil, err
	}

	bary := make([][3]float64, 0, order*order)
	weights := make([]float64, 0, order*order)
	for i, u := range x {
		for j, v := range x {
			bary = append(bary, [3]float64{1 - u, u * (1 - v), u * v})
			weights = append(weights, 2*u*w[i]*w[j])
		}
	}
	return bary, weights, nil
}

func triangleArea(a, b, c geom.Point) float64 {
	return ((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)) / 2
}

// TriangleMesh returns a cubature rule on a triangular mesh given by its
// points and vertex-index triples.
func TriangleMesh(points []geom.Point, triangles [][3]int, order int) (Rule, error) {
	bary, bw, err := Triangle(order)
	if err != nil {
		return Rule{}, err
	}

	var r Rule
	for t, tri := range triangles {
		for _, k := range tri {
			if k < 0 || k >= len(points) {
				return Rule{}, fmt.Errorf("%w: triangle %d references point %d of %d", ErrShape, t, k, len(points))
			}
		}
		a, b, c := points[tri[0]], points[tri[1]], points[tri[2]]
		area := math.Abs(triangleArea(a, b, c))
		for i, l := range bary {
			r.Nodes = append(r.Nodes, geom.Point{
				X: l[0]*a.X + l[1]*b.X + l[2]*c.X,
				Y: l[0]*a.Y + l[1]*b.Y + l[2]*c.Y,
			})
			r.Weights = append(r.Weights, area*bw[i])
		}
	}
	return r, nil
}

// bilinear maps (xi, eta) in [-1,1]^2 onto the quadrilateral q and returns
// the image point and the Jacobian determinant.
func bilinear(q [4]geom.Point, xi, eta float64) (geom.Point, float64) {
	n := [4]float64{
		(1 - xi) * (1 - eta) / 4,
		(1 + xi) * (1 - eta) / 4,
		(1 + xi) * (1 + eta) / 4,
		(1 - xi) * (1 + eta) / 4,
	}
	dxi := [4]float64{-(1 - eta) / 4, (1 - eta) / 4, (1 + eta) / 4, -(1 + eta) / 4}
	deta := [4]float64{-(1 - xi) / 4, -(1 + xi) / 4, (1 + xi) / 4, (1 - xi) / 4}

	var p geom.Point
	var xXi, xEta, yXi, yEta float64
	for k := 0; k < 4; k++ {
		p.X += n[k] * q[k].X
		p.Y += n[k] * q[k].Y
		xXi += dxi[k] * q[k].X
		xEta += deta[k] * q[k].X
		yXi += dxi[k] * q[k].Y
		yEta += deta[k] * q[k].Y
	}
	return p, xXi*yEta - xEta*yXi
}

// QuadMesh returns a tensor-product Gauss-Legendre rule on a quadrilateral
// mesh given by its points and vertex-index quadruples.
func QuadMesh(points []geom.Point, quads [][4]int, order int) (Rule, error) {
	x, w, err := Legendre(order)
	if err != nil {
		return Rule{}, err
	}

	var r Rule
	for c, quad := range quads {
		var q [4]geom.Point
		for k, idx := range quad {
			if idx < 0 || idx >= len(points) {
				return Rule{}, fmt.Errorf("%w: quadrilateral %d references point %d of %d", ErrShape, c, idx, len(points))
			}
			q[k] = points[idx]
		}
		for i := range x {
			for j := range x {
				p, detJ := bilinear(q, 2*x[i]-1, 2*x[j]-1)
				r.Nodes = append(r.Nodes, p)
				r.Weights = append(r.Weights, 4*w[i]*w[j]*math.Abs(detJ))
			}
		}
	}
	return r, nil
}

// Mesh returns the cubature rule of a mesh whose cells are all triangles or
// all quadrilaterals, each given as a row of point indices
func Mesh(points []geom.Point, cells [][]int, order int) (Rule, error) {
	if len(cells) == 0 {
		return Rule{}, fmt.Errorf("%w: empty mesh", ErrShape)
	}
	width := len(cells[0])
	for i, c := range cells {
		if len(c) != width {
			return Rule{}, fmt.Errorf("%w: cell %d has %d vertices, cell 0 has %d", ErrShape, i, len(c), width)
		}
	}

	switch width {
	case 3:
		tris := make([][3]int, len(cells))
		for i, c := range cells {
			copy(tris[i][:], c)
		}
		return TriangleMesh(points, tris, order)
	case 4:
		quads := make([][4]int, len(cells))
		for i, c := range cells {
			copy(quads[i][:], c)
		}
		return QuadMesh(points, quads, order)
	}
	return Rule{}, fmt.Errorf("%w: cells with %d vertices", ErrShape, width)
}

// Fan returns a cubature rule over the triangle fan from vertex 0. The fan
// covers the polygon only if every fan triangle is positively oriented.
func Fan(poly *geom.Polygon, order int) (Rule, error) {
	n := poly.Len()
	points := poly.Vertices()
	tris := make([][3]int, 0, n-2)
	for i := 1; i < n-1; i++ {
		if triangleArea(points[0], points[i], points[i+1]) <= 0 {
			return Rule{}, fmt.Errorf("%w: fan triangle %d", ErrNotStarShaped, i-1)
		}
		tris = append(tris, [3]int{0, i, i + 1})
	}
	return TriangleMesh(points, tris, order)
}
