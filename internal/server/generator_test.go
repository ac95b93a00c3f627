package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFragmentCountAndRange(t *testing.T) {
	seen := make(map[float64]struct{})
	numbers, err := generateFragment(50, 100.0, seen)
	require.NoError(t, err)
	assert.Len(t, numbers, 50)

	for _, n := range numbers {
		assert.GreaterOrEqual(t, n, -100.0)
		assert.Less(t, n, 100.0)
	}
}

func TestGenerateFragmentRecordsUniquenessAcrossCalls(t *testing.T) {
	seen := make(map[float64]struct{})

	first, err := generateFragment(20, 10.0, seen)
	require.NoError(t, err)

	second, err := generateFragment(20, 10.0, seen)
	require.NoError(t, err)

	for _, n := range second {
		for _, m := range first {
			assert.NotEqual(t, m, n)
		}
	}
}

func TestGenerateFragmentZeroCount(t *testing.T) {
	numbers, err := generateFragment(0, 10.0, make(map[float64]struct{}))
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestDrawUniqueExhaustsAfterCollisionLimit(t *testing.T) {
	generator := newFragmentRand()
	seen := map[float64]struct{}{}

	// A zero-width range always draws 0. Once 0 is recorded in seen (as
	// generateFragment does for every accepted draw), every later draw
	// collides, forcing GenerationCollisionLimit consecutive collisions.
	value, err := drawUnique(generator, 0.0, seen)
	require.NoError(t, err) // first draw of 0 is never in `seen`, so it succeeds
	seen[value] = struct{}{}
	_, err = drawUnique(generator, 0.0, seen)
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}
