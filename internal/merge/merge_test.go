package merge

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortDescending(t *testing.T) {
	numbers := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	got := SortDescending(numbers)
	assert.True(t, sortedDescending(got))
}

func TestStackFinishSingleFragment(t *testing.T) {
	s := NewStack(1)
	s.Push(SortDescending([]float64{1, 5, 3}))

	got := s.Finish()
	assert.Equal(t, []float64{5, 3, 1}, got)
}

func TestStackFinishEmpty(t *testing.T) {
	s := NewStack(0)
	got := s.Finish()
	assert.Equal(t, []float64{}, got)
}

func TestStackFinishMergesAllFragments(t *testing.T) {
	s := NewStack(3)
	s.Push(SortDescending([]float64{10, 1}))
	s.Push(SortDescending([]float64{9, 2, -5}))
	s.Push(SortDescending([]float64{100, -1, -2}))

	got := s.Finish()
	assert.True(t, sortedDescending(got))
	assert.Len(t, got, 8)
	assert.Equal(t, 100.0, got[0])
	assert.Equal(t, -5.0, got[len(got)-1])
}

func TestStackFinishLargeRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStack(20)
	total := 0
	for i := 0; i < 20; i++ {
		n := rng.Intn(50)
		fragment := make([]float64, n)
		for j := range fragment {
			fragment[j] = rng.Float64()*200 - 100
		}
		total += n
		s.Push(SortDescending(fragment))
	}

	got := s.Finish()
	assert.Len(t, got, total)
	assert.True(t, sortedDescending(got))
}

func sortedDescending(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1] {
			return false
		}
	}
	return true
}
