package nn

import "fmt"

const (
	ActivationIdentity  = "identity"
	ActivationSigmoid   = "sigmoid"
	ActivationTanh      = "tanh"
	ActivationThreshold = "threshold"
	ActivationSoftmax   = "softmax"

	defaultThreshold = 0.5
)

// Activation converts a neuron's weighted sum into its output. Derivative is
// expressed in terms of that output.
type Activation interface {
	Activate(sum float32) float32
	Derivative(output float32) float32
}

// LayerActivation is an activation whose value also depends on the outputs
// currently held by the sibling neurons of the same layer. Layers holding such
// neurons are always evaluated sequentially in neuron order.
type LayerActivation interface {
	Activation
	ActivateInLayer(sum float32, siblings []Neuron) float32
}

type Identity struct{}

func (Identity) Activate(sum float32) float32 { return sum }

func (Identity) Derivative(output float32) float32 { return identityDerivative(output) }

type Sigmoid struct{}

func (Sigmoid) Activate(sum float32) float32 { return sigmoid(sum) }

func (Sigmoid) Derivative(output float32) float32 { return sigmoidDerivative(output) }

type TanH struct{}

func (TanH) Activate(sum float32) float32 { return tanh(sum) }

func (TanH) Derivative(output float32) float32 { return tanhDerivative(output) }

// Threshold is the hard decision variant: sigmoid(sum) > Level yields 1, else 0.
type Threshold struct {
	Level float32
}

func (t Threshold) Activate(sum float32) float32 {
	if sigmoid(sum) > t.Level {
		return 1
	}
	return 0
}

func (Threshold) Derivative(output float32) float32 { return sigmoidDerivative(output) }

// Softmax normalizes exp(sum) against exp of every sibling output present in
// the layer at the moment of evaluation. Siblings evaluated earlier in the same
// pass contribute their fresh value, the rest (including the neuron itself)
// contribute the previous pass's value.
type Softmax struct{}

// Activate without layer context leaves the denominator at 1.
func (Softmax) Activate(sum float32) float32 { return float32(exp(sum)) }

func (Softmax) Derivative(output float32) float32 { return sigmoidDerivative(output) }

func (Softmax) ActivateInLayer(sum float32, siblings []Neuron) float32 {
	total := 0.0
	for i := range siblings {
		total += exp(siblings[i].Output)
	}
	if total == 0 {
		return float32(exp(sum))
	}
	return float32(exp(sum) / total)
}

func resolveActivation(name string) (Activation, error) {
	fn, err := GetActivation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
	}
	return fn, nil
}
