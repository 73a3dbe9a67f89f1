package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// GetMultiplicity returns the number of values below tol
func GetMultiplicity(vals []float64, tol float64) int {
	return floats.Count(func(v float64) bool { return v < tol }, vals)
}

// IsDuplicate reports whether x lies within tol of one of the values
func IsDuplicate(x float64, vals []float64, tol float64) bool {
	for _, v := range vals {
		if math.Abs(x-v) < tol {
			return true
		}
	}

	return false
}

// Cluster represents a group of numerically equal eigenvalues
type Cluster struct {
	Identifier float64
	Members    []int
}

// AddMember adds a member to the cluster
func (c *Cluster) AddMember(idx int) {
	c.Members = append(c.Members, idx)
	return
}

// Multiplicity returns the number of members
func (c *Cluster) Multiplicity() int {
	return len(c.Members)
}

type indexValPair struct {
	idx int
	val float64
}

// GetClusters groups values whose sorted neighbours differ by at most tol.
// Members are indices into vals; clusters are in ascending order.
func GetClusters(vals []float64, tol float64) []Cluster {
	var clusters []Cluster
	if len(vals) == 0 {
		return clusters
	}

	sorted := make([]indexValPair, len(vals))
	for i, v := range vals {
		sorted[i] = indexValPair{idx: i, val: v}
	}

	// Sorting (in ascending order)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].val < sorted[j].val
	})

	c := Cluster{Identifier: sorted[0].val}
	c.AddMember(sorted[0].idx)
	clusters = append(clusters, c)

	for i := 1; i < len(sorted); i++ {
		if math.Abs(sorted[i].val-sorted[i-1].val) <= tol {
			clusters[len(clusters)-1].AddMember(sorted[i].idx)
		} else {
			c := Cluster{Identifier: sorted[i].val}
			c.AddMember(sorted[i].idx)
			clusters = append(clusters, c)
		}
	}

	return clusters
}

// GetEssentialClusters returns clusters with cluster size >= 2, largest first
func GetEssentialClusters(clusters []Cluster) []Cluster {
	var essClusters []Cluster

	for i := 0; i < len(clusters); i++ {
		if len(clusters[i].Members) >= 2 {
			essClusters = append(essClusters, clusters[i])
		}
	}

	sort.SliceStable(essClusters, func(i, j int) bool {
		return len(essClusters[i].Members) > len(essClusters[j].Members)
	})

	return essClusters
}
