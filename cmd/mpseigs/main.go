package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KyungWonPark/mps/internal/cluster"
	"github.com/KyungWonPark/mps/internal/io"
	"github.com/KyungWonPark/mps/internal/mps"
	"gonum.org/v1/gonum/mat"
)

func main() { // vertices orders k [verbose]
	if len(os.Args) < 4 {
		log.Fatalf("usage: %s vertices.npy|vertices.csv orders k [on|off]\n", filepath.Base(os.Args[0]))
	}

	vertices, err := io.LoadPoints(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read vertices: %s\n", err)
	}
	orders, err := parseOrders(os.Args[2])
	if err != nil {
		log.Fatalf("Failed to parse orders: %s\n", err)
	}
	k, err := strconv.Atoi(os.Args[3])
	if err != nil {
		log.Fatalf("Failed to parse k: %s\n", err)
	}

	search := mps.DefaultSearchConfig()
	if len(os.Args) > 4 && os.Args[4] == "on" {
		search.Verbose = true
	}

	RESULTDIR := os.Getenv("RESULT")
	if RESULTDIR == "" {
		RESULTDIR = "."
	}

	p, err := mps.New(vertices, orders,
		mps.WithSearch(search),
		mps.WithLogger(log.New(os.Stdout, "[mps] ", log.Ltime)),
	)
	if err != nil {
		log.Fatalf("Failed to set up the problem: %s\n", err)
	}
	fmt.Printf("Polygon with %d vertices, area %g, %d boundary and %d interior points\n",
		p.Polygon().Len(), p.Polygon().Area(), len(p.BoundaryPoints()), len(p.InteriorPoints()))

	start := time.Now()
	eigs, evals, err := p.SolveOrderedEigenvalues(k)
	if err != nil {
		log.Fatalf("Eigenvalue search has failed: %s\n", err)
	}
	fmt.Printf("Found %d eigenvalues with %d evaluations in %s\n", len(eigs), evals, time.Since(start))

	clusters := cluster.GetClusters(eigs, search.XTol)
	table := mat.NewDense(len(clusters), 3, nil)
	for i, c := range clusters {
		s, err := p.Sigma(c.Identifier)
		if err != nil {
			log.Fatalf("Failed to evaluate sigma at %g: %s\n", c.Identifier, err)
		}
		table.SetRow(i, []float64{c.Identifier, float64(c.Multiplicity()), s})
		fmt.Printf("%3d: %.12f (x%d) sigma = %.3e\n", c.Members[0]+1, c.Identifier, c.Multiplicity(), s)
	}

	// repeated eigenvalues, highest multiplicity first
	ess := cluster.GetEssentialClusters(clusters)
	if len(ess) == 0 {
		fmt.Printf("No repeated eigenvalues among the first %d\n", len(eigs))
	} else {
		repeated := mat.NewDense(len(ess), 3, nil)
		for i, c := range ess {
			repeated.SetRow(i, []float64{c.Identifier, float64(c.Multiplicity()), float64(c.Members[0] + 1)})
			fmt.Printf("Repeated: %.12f with multiplicity %d from index %d\n", c.Identifier, c.Multiplicity(), c.Members[0]+1)
		}
		if err := io.MatrixToCSV(filepath.Join(RESULTDIR, "repeated.csv"), []string{"lambda", "multiplicity", "index"}, repeated); err != nil {
			log.Fatalf("Failed to save repeated eigenvalues: %s\n", err)
		}
	}

	if err := io.VectorToNpy(filepath.Join(RESULTDIR, "eigs.npy"), eigs); err != nil {
		log.Fatalf("Failed to save eigenvalues: %s\n", err)
	}
	if err := io.F64SliceToBin(filepath.Join(RESULTDIR, "eigs.bin"), eigs); err != nil {
		log.Fatalf("Failed to save eigenvalues: %s\n", err)
	}
	if err := io.MatrixToCSV(filepath.Join(RESULTDIR, "eigs.csv"), []string{"lambda", "multiplicity", "sigma"}, table); err != nil {
		log.Fatalf("Failed to save eigenvalues: %s\n", err)
	}

	stats := p.CacheStats()
	fmt.Printf("Cache: %d hits, %d misses, %d entries\n", stats.Hits, stats.Misses, stats.Entries)

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
