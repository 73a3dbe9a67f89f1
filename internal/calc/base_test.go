package calc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	p := Init(3, false)
	require.Equal(t, 3, p.Workers())

	xs := make([]float64, 50)
	for i := range xs {
		xs[i] = float64(i) / 10
	}

	out, err := Map(p, xs, func(x float64) (float64, error) {
		return math.Sin(x), nil
	})
	require.NoError(t, err)
	for i, x := range xs {
		require.Equal(t, math.Sin(x), out[i])
	}
	require.Equal(t, int64(50), p.Count())

	_, err = Map(p, nil, func(x float64) (int, error) { return 0, nil })
	require.NoError(t, err)
	require.Equal(t, int64(50), p.Count())
}

func TestMapFirstError(t *testing.T) {
	p := Init(0, false)
	require.Greater(t, p.Workers(), 0)

	bad := errors.New("bad point")
	_, err := Map(p, []float64{1, 2, 3, 4}, func(x float64) (float64, error) {
		if x >= 2 {
			return 0, bad
		}
		return x, nil
	})
	require.ErrorIs(t, err, bad)
	require.Contains(t, err.Error(), "job 1")
}
