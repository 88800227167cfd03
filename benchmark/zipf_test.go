package benchmark

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZipfRejectsBadParameters(t *testing.T) {
	_, err := NewZipf(0, 0.99)
	require.Error(t, err)

	for _, s := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewZipf(100, s)
		require.Error(t, err, "exponent %v", s)
	}
}

func TestZipfStaysInBounds(t *testing.T) {
	for _, tc := range []struct {
		n uint64
		s float64
	}{
		{1, 0.99},
		{2, 0.5},
		{1000, 0.99},
		{1000, 1},
		{1000, 1.5},
		{1 << 40, 0.99},
	} {
		z, err := NewZipf(tc.n, tc.s)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(1))
		for range 10_000 {
			v := z.Next(rng)
			require.Less(t, v, tc.n, "n=%d s=%v", tc.n, tc.s)
		}
	}
}

func TestZipfIsSkewed(t *testing.T) {
	const n = 1000
	z, err := NewZipf(n, 0.99)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	counts := make([]int, n)
	const draws = 200_000
	for range draws {
		counts[z.Next(rng)]++
	}

	// with s close to 1, P(0) is roughly 1/H(n) which is about 13% for n = 1000
	p0 := float64(counts[0]) / draws
	assert.InDelta(t, 0.13, p0, 0.03)

	// rank 1 should come up about half as often as rank 0
	ratio := float64(counts[0]) / float64(counts[1])
	assert.InDelta(t, 2.0, ratio, 0.3)

	assert.Greater(t, counts[0], counts[n-1]*50)
}

func TestZipfDeterministic(t *testing.T) {
	z, err := NewZipf(10_000, 0.99)
	require.NoError(t, err)

	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for range 1000 {
		require.Equal(t, z.Next(a), z.Next(b))
	}
}
