package ai

// NormalizeDimensions forces a vector to the given dimensionality.
// Longer vectors are truncated; shorter ones are zero-padded. Similarity
// search must never compare vectors of mismatched length, so every
// embedding is normalized before storage.
func NormalizeDimensions(vector []float32, dims int) []float32 {
	if dims <= 0 || len(vector) == dims {
		return vector
	}

	result := make([]float32, dims)
	copy(result, vector)
	return result
}
