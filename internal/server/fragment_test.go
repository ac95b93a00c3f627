package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxPerFragmentRespectsMessageMaxSize(t *testing.T) {
	maxPerFragment := maxPerFragmentFor(508)
	assert.Greater(t, maxPerFragment, uint64(0))

	probe := emptyResponseSize()
	assert.LessOrEqual(t, probe+int(maxPerFragment)*8, 508)
}

func TestSequenceCountExactMultiple(t *testing.T) {
	assert.Equal(t, uint64(2), sequenceCount(20, 10))
}

func TestSequenceCountWithRemainder(t *testing.T) {
	assert.Equal(t, uint64(3), sequenceCount(21, 10))
}

func TestSequenceCountZero(t *testing.T) {
	assert.Equal(t, uint64(0), sequenceCount(0, 10))
}

func TestFragmentSizeExactMultipleLastFragmentIsFull(t *testing.T) {
	// number_count=20, max_per_fragment=10: two full fragments, not one
	// full plus one empty (spec.md §9, option b).
	assert.Equal(t, uint64(10), fragmentSize(0, 20, 10))
	assert.Equal(t, uint64(10), fragmentSize(1, 20, 10))
}

func TestFragmentSizeRemainderShrinksLastFragment(t *testing.T) {
	assert.Equal(t, uint64(10), fragmentSize(0, 25, 10))
	assert.Equal(t, uint64(10), fragmentSize(1, 25, 10))
	assert.Equal(t, uint64(5), fragmentSize(2, 25, 10))
}

func TestFragmentSizeSingleNumber(t *testing.T) {
	assert.Equal(t, uint64(1), fragmentSize(0, 1, 10))
}
