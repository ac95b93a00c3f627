package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.bin")
	numbers := []float64{10.5, 4, -3.25, -100}

	require.NoError(t, Write(path, numbers))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, numbers, got)
}

func TestWriteReadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")

	require.NoError(t, Write(path, nil))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, Write(path, []float64{1, 2, 3}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-4], 0o644))

	_, err = Read(path)
	assert.Error(t, err)
}
