package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KyungWonPark/mps/internal/io"
	"github.com/KyungWonPark/mps/internal/mps"
)

func main() { // vertices orders method low high n [weighted]
	if len(os.Args) < 7 {
		log.Fatalf("usage: %s vertices orders sines|gsvd|rgsvd|gevd low high n [weighted]\n", filepath.Base(os.Args[0]))
	}

	vertices, err := io.LoadPoints(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read vertices: %s\n", err)
	}
	orders, err := parseOrders(os.Args[2])
	if err != nil {
		log.Fatalf("Failed to parse orders: %s\n", err)
	}
	method, err := mps.ParseMethod(os.Args[3])
	if err != nil {
		log.Fatalf("Failed to parse method: %s\n", err)
	}
	low, err := strconv.ParseFloat(os.Args[4], 64)
	if err != nil {
		log.Fatalf("Failed to parse low: %s\n", err)
	}
	high, err := strconv.ParseFloat(os.Args[5], 64)
	if err != nil {
		log.Fatalf("Failed to parse high: %s\n", err)
	}
	n, err := strconv.Atoi(os.Args[6])
	if err != nil {
		log.Fatalf("Failed to parse n: %s\n", err)
	}
	weighted := len(os.Args) > 7 && os.Args[7] == "weighted"

	RESULTDIR := os.Getenv("RESULT")
	if RESULTDIR == "" {
		RESULTDIR = "."
	}

	var opts []mps.Option
	if weighted {
		opts = append(opts, mps.WithDefaultQuadrature(20, 10))
	}
	p, err := mps.New(vertices, orders, opts...)
	if err != nil {
		log.Fatalf("Failed to set up the problem: %s\n", err)
	}

	est, err := p.Estimator(method, weighted)
	if err != nil {
		log.Fatalf("Failed to build the estimator: %s\n", err)
	}

	table, err := p.Sweep(est, low, high, n)
	if err != nil {
		log.Fatalf("Sweep has failed: %s\n", err)
	}
	fmt.Printf("Evaluated %v on %d values of lambda in [%g, %g]\n", method, n+1, low, high)

	name := fmt.Sprintf("sweep-%v", method)
	if weighted {
		name += "-weighted"
	}
	if err := io.MatrixToNpy(filepath.Join(RESULTDIR, name+".npy"), table); err != nil {
		log.Fatalf("Failed to save the sweep: %s\n", err)
	}
	if err := io.MatrixToCSV(filepath.Join(RESULTDIR, name+".csv"), []string{"lambda", "first", "second"}, table); err != nil {
		log.Fatalf("Failed to save the sweep: %s\n", err)
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
