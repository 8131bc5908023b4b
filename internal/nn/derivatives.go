package nn

import "math"

// Derivatives take the already-activated output y, not the pre-activation sum.

func identityDerivative(float32) float32 {
	return 1
}

func sigmoidDerivative(y float32) float32 {
	return y * (1 - y)
}

func tanhDerivative(y float32) float32 {
	return 1 - (y * y)
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

func exp(x float32) float64 {
	return math.Exp(float64(x))
}
