package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector is an embedding: an ordered sequence of components whose length is decided by the model
type Vector []float32

// Dimension returns the number of components
func (v Vector) Dimension() int {
	return len(v)
}

// Format renders the vector as space-separated decimal numbers, e.g. "0.123 -0.5 1"
func (v Vector) Format() string {
	var b strings.Builder
	for i, val := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 32))
	}
	return b.String()
}

// ParseVector parses the space-separated form produced by Format.
// Surrounding and repeated whitespace, including the trailing space of the chunk file format, is ignored.
func ParseVector(text string) (Vector, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptyVector
	}

	v := make(Vector, len(fields))
	for i, field := range fields {
		val, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d %q", ErrMalformedComponent, i, field)
		}
		v[i] = float32(val)
	}
	return v, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different dimension, or with zero norm, have similarity 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns a copy of the vector scaled to unit length
func (v Vector) Normalize() Vector {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	result := make(Vector, len(v))
	if sum == 0 {
		copy(result, v)
		return result
	}

	norm := math.Sqrt(sum)
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}
	return result
}
