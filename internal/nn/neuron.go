package nn

import "fmt"

// Role fixes which operations are legal on a neuron and its layer.
type Role int

const (
	RoleInput Role = iota
	RoleHidden
	RoleOutput
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleHidden:
		return "hidden"
	case RoleOutput:
		return "output"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// NeuronID addresses a neuron inside the network's layer arena.
type NeuronID struct {
	Layer int
	Index int
}

func (id NeuronID) String() string {
	return fmt.Sprintf("L%d:n%d", id.Layer, id.Index)
}

type Neuron struct {
	ID         NeuronID
	Role       Role
	Bias       float32
	Activation Activation
	Edges      []Edge
	Output     float32
	Error      float32
}

// EdgeFrom returns the inbound edge fed by the given parent-layer neuron.
func (n *Neuron) EdgeFrom(source int) (*Edge, bool) {
	if source >= 0 && source < len(n.Edges) && n.Edges[source].Source == source {
		return &n.Edges[source], true
	}
	for i := range n.Edges {
		if n.Edges[i].Source == source {
			return &n.Edges[i], true
		}
	}
	return nil, false
}

// Weights returns a copy of the inbound edge weights in edge order.
func (n *Neuron) Weights() []float32 {
	out := make([]float32, len(n.Edges))
	for i, edge := range n.Edges {
		out[i] = edge.Weight
	}
	return out
}

func (n *Neuron) weightedSum(parent *Layer) float32 {
	sum := 0.0
	for _, edge := range n.Edges {
		sum += float64(edge.Weight * parent.Neurons[edge.Source].Output)
	}
	sum += float64(n.Bias)
	return float32(sum)
}

func (n *Neuron) propagate(parent *Layer) {
	n.Output = n.Activation.Activate(n.weightedSum(parent))
}

// outputError is the error of an output neuron against its desired value.
func (n *Neuron) outputError(desired float32) float32 {
	return n.Activation.Derivative(n.Output) * (desired - n.Output)
}

func (n *Neuron) applyDelta(parent *Layer, learningRate float32) {
	n.Bias += learningRate * n.Error
	for i := range n.Edges {
		edge := &n.Edges[i]
		edge.Weight += learningRate * parent.Neurons[edge.Source].Output * n.Error
	}
}
