package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorFormat(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want string
	}{
		{name: "empty", v: Vector{}, want: ""},
		{name: "single", v: Vector{1}, want: "1"},
		{name: "mixed", v: Vector{0.25, -0.5, 3}, want: "0.25 -0.5 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Format())
		})
	}
}

func TestParseVector(t *testing.T) {
	t.Run("trailing space from chunk file", func(t *testing.T) {
		v, err := ParseVector("0.25 -0.5 3 ")
		require.NoError(t, err)
		assert.Equal(t, Vector{0.25, -0.5, 3}, v)
	})

	t.Run("repeated whitespace and newline", func(t *testing.T) {
		v, err := ParseVector("  1   2\t3\n")
		require.NoError(t, err)
		assert.Equal(t, 3, v.Dimension())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseVector("   ")
		assert.ErrorIs(t, err, ErrEmptyVector)
	})

	t.Run("malformed component", func(t *testing.T) {
		_, err := ParseVector("0.1 abc 0.3")
		assert.ErrorIs(t, err, ErrMalformedComponent)
	})

	t.Run("format output parses back", func(t *testing.T) {
		original := Vector{0.123456, -1e-5, 42}
		v, err := ParseVector(original.Format())
		require.NoError(t, err)
		assert.Equal(t, original, v)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity(Vector{1, 2, 3}, Vector{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(Vector{1, 0}, Vector{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(Vector{1, 0}, Vector{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity(Vector{0, 0}, Vector{1, 1}))
}

func TestNormalize(t *testing.T) {
	n := Vector{3, 4}.Normalize()
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)

	var sum float64
	for _, val := range n {
		sum += float64(val * val)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	zero := Vector{0, 0}.Normalize()
	assert.Equal(t, Vector{0, 0}, zero)
}
