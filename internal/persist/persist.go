// Package persist writes and reads the client's output file format
// from spec.md §6: a little-endian u64 count N followed by N
// little-endian float64 values, with no trailing metadata.
package persist

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Write creates (or truncates) path and writes numbers in the
// persisted output format. numbers must already be in the order the
// caller wants on disk (spec.md prescribes descending).
func Write(path string, numbers []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open output file %s", path)
	}
	defer file.Close()

	buf := make([]byte, 8+8*len(numbers))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(len(numbers)))
	for i, n := range numbers {
		binary.LittleEndian.PutUint64(buf[8+8*i:16+8*i], math.Float64bits(n))
	}

	if _, err := file.Write(buf); err != nil {
		return errors.Wrapf(err, "failed to write output file %s", path)
	}
	return nil
}

// Read parses a file in the persisted output format, primarily used by
// tests to verify a completed run.
func Read(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read output file %s", path)
	}
	if len(data) < 8 {
		return nil, errors.Errorf("output file %s too short for length prefix", path)
	}

	count := binary.LittleEndian.Uint64(data[0:8])
	expected := 8 + 8*int(count)
	if len(data) != expected {
		return nil, errors.Errorf("output file %s has %d bytes, expected %d for %d values", path, len(data), expected, count)
	}

	numbers := make([]float64, count)
	for i := range numbers {
		bits := binary.LittleEndian.Uint64(data[8+8*i : 16+8*i])
		numbers[i] = math.Float64frombits(bits)
	}
	return numbers, nil
}
