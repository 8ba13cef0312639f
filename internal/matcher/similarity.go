package matcher

// CosineSimilarity is the dot product of two unit vectors clamped to [-1, 1].
// Inputs must have equal length.
func CosineSimilarity(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	switch {
	case dot > 1:
		return 1
	case dot < -1:
		return -1
	default:
		return float32(dot)
	}
}
