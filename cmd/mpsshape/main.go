package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KyungWonPark/mps/internal/io"
	"github.com/KyungWonPark/mps/internal/mps"
	"github.com/KyungWonPark/mps/internal/quad"
	"gonum.org/v1/gonum/mat"
)

func main() { // vertices orders lambda [direction|-] [mesh-points mesh-cells]
	if len(os.Args) < 4 || len(os.Args) == 6 {
		log.Fatalf("usage: %s vertices orders lambda [direction.npy|-] [mesh-points mesh-cells]\n", filepath.Base(os.Args[0]))
	}

	vertices, err := io.LoadPoints(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read vertices: %s\n", err)
	}
	orders, err := parseOrders(os.Args[2])
	if err != nil {
		log.Fatalf("Failed to parse orders: %s\n", err)
	}
	lambda, err := strconv.ParseFloat(os.Args[3], 64)
	if err != nil {
		log.Fatalf("Failed to parse lambda: %s\n", err)
	}

	// per-vertex (dx, dy), read like the vertices
	var dir *mps.Direction
	if len(os.Args) > 4 && os.Args[4] != "-" {
		d, err := io.LoadPoints(os.Args[4])
		if err != nil {
			log.Fatalf("Failed to read direction: %s\n", err)
		}
		dir = &mps.Direction{DX: make([]float64, len(d)), DY: make([]float64, len(d))}
		for i, v := range d {
			dir.DX[i], dir.DY[i] = v.X, v.Y
		}
	}

	RESULTDIR := os.Getenv("RESULT")
	if RESULTDIR == "" {
		RESULTDIR = "."
	}

	// the fan cubature needs a polygon star-shaped from its first vertex;
	// others take a triangle or quadrilateral mesh
	quadrature := mps.WithDefaultQuadrature(20, 10)
	if len(os.Args) > 6 {
		points, err := io.LoadPoints(os.Args[5])
		if err != nil {
			log.Fatalf("Failed to read mesh points: %s\n", err)
		}
		cells, err := io.LoadCells(os.Args[6])
		if err != nil {
			log.Fatalf("Failed to read mesh cells: %s\n", err)
		}
		rule, err := quad.Mesh(points, cells, 10)
		if err != nil {
			log.Fatalf("Failed to build the mesh cubature: %s\n", err)
		}
		fmt.Printf("Mesh with %d cells and %d nodes covering area %g\n", len(cells), rule.Len(), rule.Total())
		quadrature = mps.WithMeshQuadrature(20, rule)
	}

	p, err := mps.New(vertices, orders, quadrature)
	if err != nil {
		log.Fatalf("Failed to set up the problem: %s\n", err)
	}
	_, mtol := p.Tolerances()

	d, err := p.ShapeDerivative(lambda, mtol, dir)
	var rep *mps.RepeatedEigenvalueError
	if errors.As(err, &rep) {
		log.Fatalf("%s\nPass a direction to get the derivatives of the %d branches\n", err, rep.Multiplicity)
	}
	if err != nil {
		log.Fatalf("Shape derivative has failed: %s\n", err)
	}

	if dir != nil {
		fmt.Printf("Directional derivative of lambda = %.12f (multiplicity %d):\n", lambda, d.Multiplicity)
		for _, v := range d.Values {
			fmt.Printf("  %.12e\n", v)
		}
		if err := io.VectorToNpy(filepath.Join(RESULTDIR, "dlambda.npy"), d.Values); err != nil {
			log.Fatalf("Failed to save the derivative: %s\n", err)
		}
		return
	}

	grad := mat.NewDense(len(d.GradX), 2, nil)
	for v := range d.GradX {
		grad.SetRow(v, []float64{d.GradX[v], d.GradY[v]})
	}
	matPrint("Vertex gradient", grad)

	if err := io.MatrixToNpy(filepath.Join(RESULTDIR, "gradient.npy"), grad); err != nil {
		log.Fatalf("Failed to save the gradient: %s\n", err)
	}
	if err := io.MatrixToCSV(filepath.Join(RESULTDIR, "gradient.csv"), []string{"dx", "dy"}, grad); err != nil {
		log.Fatalf("Failed to save the gradient: %s\n", err)
	}

	return
}

func parseOrders(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	orders := make([]int, len(fields))
	for i, f := range fields {
		o, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		orders[i] = o
	}
	return orders, nil
}

func matPrint(name string, m mat.Matrix) {
	fmt.Printf("/-------- %s --------/\n", name)

	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		fmt.Printf("[ ")
		for j := 0; j < cols; j++ {
			fmt.Printf("%.9e ", m.At(i, j))
		}
		fmt.Printf("]\n")
	}

	return
}
