package vision

import "math"

const minMagnitude = 1e-10

// L2Normalize scales v to unit length. Vectors with magnitude below 1e-10 are
// returned as-is; comparisons against them are not meaningful.
func L2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	magnitude := math.Sqrt(sum)
	if magnitude < minMagnitude {
		return v
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}
