package nn

import "math"

// SquareSum returns the triangular sum n + (n-1) + ... down to the last value
// above 1, e.g. 3 => 6.
func SquareSum(number float64) float64 {
	total := 0.0
	for number > 1 {
		total += number
		number--
	}
	return total + number
}

// MaxRecommendedHiddenNeurons caps RecommendedHiddenNeurons. The formula
// grows with 2^inputs and is only meant for small truth-table networks.
const MaxRecommendedHiddenNeurons = 1024

// RecommendedHiddenNeurons suggests a per-layer hidden neuron count for a
// network with the given input and hidden layer counts, at most
// MaxRecommendedHiddenNeurons.
func RecommendedHiddenNeurons(hiddenLayers, inputs int) int {
	if hiddenLayers <= 0 || inputs <= 0 {
		return 0
	}
	n := math.Pow(2, float64(inputs)) * float64(hiddenLayers)
	// SquareSum(n) = n(n+1)/2 for whole n; checked before looping over n.
	if n*(n+1)/2 > MaxRecommendedHiddenNeurons {
		return MaxRecommendedHiddenNeurons
	}
	return int(SquareSum(n))
}

// Round maps outputs to their nearest integer decision (half rounds up).
func Round(values []float32) []int {
	out := make([]int, len(values))
	for i, value := range values {
		out[i] = int(math.Floor(float64(value) + 0.5))
	}
	return out
}

// normalized reports whether value lies in [0, 1]. NaN never does.
func normalized(value float32) bool {
	return value >= 0 && value <= 1
}

func meanSquaredError(desired, actual []float32) float32 {
	if len(desired) == 0 {
		return 0
	}
	sum := 0.0
	for i := range desired {
		diff := float64(desired[i] - actual[i])
		sum += diff * diff
	}
	return float32(sum / float64(len(desired)))
}
