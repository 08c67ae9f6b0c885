package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDimensions(t *testing.T) {
	t.Run("matching length unchanged", func(t *testing.T) {
		v := []float32{1, 2, 3}
		assert.Equal(t, v, NormalizeDimensions(v, 3))
	})

	t.Run("longer vector truncated", func(t *testing.T) {
		v := []float32{1, 2, 3, 4, 5}
		assert.Equal(t, []float32{1, 2, 3}, NormalizeDimensions(v, 3))
	})

	t.Run("shorter vector zero-padded", func(t *testing.T) {
		v := []float32{1, 2}
		assert.Equal(t, []float32{1, 2, 0, 0}, NormalizeDimensions(v, 4))
	})

	t.Run("non-positive dims is a no-op", func(t *testing.T) {
		v := []float32{1, 2}
		assert.Equal(t, v, NormalizeDimensions(v, 0))
	})
}
