package server

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/ventosilenzioso/numberstream/internal/protocol"
)

// ErrGenerationExhausted is raised when ten consecutive draws collide
// with a peer's already-sent numbers (spec.md §4.4, §7).
var ErrGenerationExhausted = errors.New("GENERATION_EXHAUSTED")

// generateFragment draws count uniform reals over [-upperBound,
// +upperBound) for one peer, rejecting any draw already present in
// seen, and records every accepted draw back into seen so later
// fragments in the same session stay globally unique for that peer.
//
// A fresh generator is seeded from a non-deterministic source for each
// call, matching spec.md §4.4 ("seeded once per fragment from a
// non-deterministic device"); the guarantee this buys is uniqueness,
// not cryptographic unpredictability.
func generateFragment(count uint64, upperBound float64, seen map[float64]struct{}) ([]float64, error) {
	generator := newFragmentRand()
	numbers := make([]float64, 0, count)

	for i := uint64(0); i < count; i++ {
		value, err := drawUnique(generator, upperBound, seen)
		if err != nil {
			return nil, err
		}
		seen[value] = struct{}{}
		numbers = append(numbers, value)
	}

	return numbers, nil
}

func drawUnique(generator *rand.Rand, upperBound float64, seen map[float64]struct{}) (float64, error) {
	for attempt := 0; attempt < protocol.GenerationCollisionLimit; attempt++ {
		value := uniformInRange(generator, upperBound)
		if _, collided := seen[value]; !collided {
			return value, nil
		}
	}
	return 0, ErrGenerationExhausted
}

// uniformInRange draws from [-upperBound, +upperBound).
func uniformInRange(generator *rand.Rand, upperBound float64) float64 {
	return generator.Float64()*2*upperBound - upperBound
}

// newFragmentRand seeds a ChaCha8-backed generator from crypto/rand,
// the Go equivalent of std::random_device feeding std::mt19937 in
// original_source/src/server/main.cpp.
func newFragmentRand() *rand.Rand {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any
		// supported platform; fall back to a time-derived seed rather
		// than panic the session.
		binary.LittleEndian.PutUint64(seed[:8], fallbackSeed())
	}
	return rand.New(rand.NewChaCha8(seed))
}

func fallbackSeed() uint64 {
	return uint64(time.Now().UnixNano())
}
