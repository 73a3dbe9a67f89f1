package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMultiplicity(t *testing.T) {
	require.Equal(t, 2, GetMultiplicity([]float64{1e-12, 3e-9, 0.2, 0.9}, 1e-5))
	require.Equal(t, 0, GetMultiplicity([]float64{0.1, 0.2}, 1e-5))
	require.Equal(t, 0, GetMultiplicity(nil, 1))
}

func TestIsDuplicate(t *testing.T) {
	vals := []float64{19.7392088, 49.3480220}
	require.True(t, IsDuplicate(19.73920881, vals, 1e-6))
	require.False(t, IsDuplicate(19.74, vals, 1e-6))
	require.False(t, IsDuplicate(1, nil, 1e-6))
}

func TestGetClusters(t *testing.T) {
	eigs := []float64{49.348, 19.739, 98.696, 49.348, 78.957, 78.957}

	clusters := GetClusters(eigs, 1e-6)
	require.Len(t, clusters, 4)
	require.Equal(t, 19.739, clusters[0].Identifier)
	require.Equal(t, []int{1}, clusters[0].Members)
	require.Equal(t, []int{0, 3}, clusters[1].Members)
	require.Equal(t, 2, clusters[2].Multiplicity())
	require.Equal(t, 98.696, clusters[3].Identifier)

	ess := GetEssentialClusters(clusters)
	require.Len(t, ess, 2)
	require.Equal(t, 49.348, ess[0].Identifier)

	require.Empty(t, GetClusters(nil, 1))
}

func TestGetEssentialClustersOrder(t *testing.T) {
	// one triple and five doubles
	eigs := []float64{2, 5, 5, 8, 10, 10, 13, 13, 17, 17, 18, 20, 20, 25, 25, 25}

	ess := GetEssentialClusters(GetClusters(eigs, 1e-8))
	require.Len(t, ess, 6)
	require.Equal(t, 25.0, ess[0].Identifier)
	require.Equal(t, 3, ess[0].Multiplicity())
	require.Equal(t, []int{13, 14, 15}, ess[0].Members)

	// equal multiplicities stay in ascending order
	for i, want := range []float64{5, 10, 13, 17, 20} {
		require.Equal(t, want, ess[i+1].Identifier)
		require.Equal(t, 2, ess[i+1].Multiplicity())
	}

	require.Empty(t, GetEssentialClusters(GetClusters([]float64{1, 2, 3}, 1e-8)))
}
