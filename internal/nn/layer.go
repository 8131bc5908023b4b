package nn

import (
	"fmt"
	"math/rand"
	"sync"
)

// Layer is an ordered group of neurons sharing one role.
type Layer struct {
	Name           string
	Role           Role
	ActivationName string
	Neurons        []Neuron
}

func newLayer(index int, name string, role Role, count int, activationName string, bias float32) (Layer, error) {
	if count <= 0 {
		return Layer{}, fmt.Errorf("%w: layer %s needs at least one neuron, got %d", ErrConstruction, name, count)
	}
	activation, err := resolveActivation(activationName)
	if err != nil {
		return Layer{}, fmt.Errorf("layer %s: %w", name, err)
	}

	layer := Layer{
		Name:           name,
		Role:           role,
		ActivationName: activationName,
		Neurons:        make([]Neuron, count),
	}
	for i := range layer.Neurons {
		layer.Neurons[i] = Neuron{
			ID:         NeuronID{Layer: index, Index: i},
			Role:       role,
			Activation: activation,
		}
		if role != RoleInput {
			layer.Neurons[i].Bias = bias
		}
	}
	return layer, nil
}

func (l *Layer) Len() int {
	return len(l.Neurons)
}

// EdgeCount is the total number of inbound edges across the layer.
func (l *Layer) EdgeCount() int {
	total := 0
	for i := range l.Neurons {
		total += len(l.Neurons[i].Edges)
	}
	return total
}

// BindFullMesh gives every neuron of l one inbound edge per neuron of parent,
// replacing any edges it already had. An output layer can never be a parent.
func (l *Layer) BindFullMesh(parent *Layer, rng *rand.Rand) error {
	if parent == nil {
		return fmt.Errorf("%w: layer %s has no parent to bind", ErrConstruction, l.Name)
	}
	if parent.Role == RoleOutput {
		return fmt.Errorf("%w: parent layer %s is an output layer", ErrConstruction, parent.Name)
	}
	if l.Role == RoleInput {
		return fmt.Errorf("%w: input layer %s cannot take inbound edges", ErrConstruction, l.Name)
	}
	if len(l.Neurons) == 0 || len(parent.Neurons) == 0 {
		return fmt.Errorf("%w: cannot bind empty layers %s -> %s", ErrConstruction, parent.Name, l.Name)
	}

	rng = ensureRNG(rng)
	for i := range l.Neurons {
		edges := make([]Edge, len(parent.Neurons))
		for source := range parent.Neurons {
			edges[source] = newEdge(source, rng)
		}
		l.Neurons[i].Edges = edges
	}
	return nil
}

// Outputs returns a copy of the neuron outputs in creation order.
func (l *Layer) Outputs() []float32 {
	out := make([]float32, len(l.Neurons))
	for i := range l.Neurons {
		out[i] = l.Neurons[i].Output
	}
	return out
}

// Weights returns layer -> neuron -> edge weights.
func (l *Layer) Weights() [][]float32 {
	out := make([][]float32, len(l.Neurons))
	for i := range l.Neurons {
		out[i] = l.Neurons[i].Weights()
	}
	return out
}

func (l *Layer) Biases() []float32 {
	out := make([]float32, len(l.Neurons))
	for i := range l.Neurons {
		out[i] = l.Neurons[i].Bias
	}
	return out
}

// SetInputs assigns values directly as outputs of an input layer. The whole
// vector is validated before any neuron is touched.
func (l *Layer) SetInputs(values []float32) error {
	if l.Role != RoleInput {
		return fmt.Errorf("%w: cannot assign inputs to %s layer %s", ErrInvalidLayerRole, l.Role, l.Name)
	}
	if len(values) != len(l.Neurons) {
		return fmt.Errorf("%w: got %d inputs, input layer has %d neurons", ErrShape, len(values), len(l.Neurons))
	}
	for i, value := range values {
		if !normalized(value) {
			return fmt.Errorf("%w: input %d = %v", ErrInvalidInputRange, i, value)
		}
	}
	for i, value := range values {
		l.Neurons[i].Output = value
	}
	return nil
}

// Propagate recomputes every neuron output from the parent layer's outputs.
// With workers > 1 neurons are spread over a worker pool, unless a neuron
// depends on its siblings.
func (l *Layer) Propagate(parent *Layer, workers int) {
	if l.siblingDependent() {
		for i := range l.Neurons {
			n := &l.Neurons[i]
			sum := n.weightedSum(parent)
			if layered, ok := n.Activation.(LayerActivation); ok {
				n.Output = layered.ActivateInLayer(sum, l.Neurons)
				continue
			}
			n.Output = n.Activation.Activate(sum)
		}
		return
	}

	if workers > len(l.Neurons) {
		workers = len(l.Neurons)
	}
	if workers <= 1 {
		for i := range l.Neurons {
			l.Neurons[i].propagate(parent)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				l.Neurons[i].propagate(parent)
			}
		}()
	}
	for i := range l.Neurons {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func (l *Layer) siblingDependent() bool {
	for i := range l.Neurons {
		if _, ok := l.Neurons[i].Activation.(LayerActivation); ok {
			return true
		}
	}
	return false
}

// UpdateOutputErrors computes each output neuron's error against desired.
func (l *Layer) UpdateOutputErrors(desired []float32) error {
	if l.Role != RoleOutput {
		return fmt.Errorf("%w: desired values only apply to the output layer, got %s layer %s", ErrInvalidLayerRole, l.Role, l.Name)
	}
	if len(desired) != len(l.Neurons) {
		return fmt.Errorf("%w: got %d desired values, output layer has %d neurons", ErrShape, len(desired), len(l.Neurons))
	}
	for i := range l.Neurons {
		l.Neurons[i].Error = l.Neurons[i].outputError(desired[i])
	}
	return nil
}

// UpdateHiddenErrors computes each neuron's error from the errors already
// held by child, the layer it feeds into.
func (l *Layer) UpdateHiddenErrors(child *Layer) error {
	if l.Role != RoleHidden {
		return fmt.Errorf("%w: hidden error needs a hidden layer, got %s layer %s", ErrInvalidLayerRole, l.Role, l.Name)
	}
	if child == nil || child.Role == RoleInput {
		return fmt.Errorf("%w: layer %s has no child layer", ErrInvalidLayerRole, l.Name)
	}

	errs := make([]float32, len(l.Neurons))
	for p := range l.Neurons {
		parent := &l.Neurons[p]
		derivative := parent.Activation.Derivative(parent.Output)
		var sum float32
		for c := range child.Neurons {
			edge, ok := child.Neurons[c].EdgeFrom(p)
			if !ok {
				return fmt.Errorf("%w: %s has no edge from %s", ErrConstruction, child.Neurons[c].ID, parent.ID)
			}
			sum += derivative * edge.Weight * child.Neurons[c].Error
		}
		errs[p] = sum
	}
	for p := range l.Neurons {
		l.Neurons[p].Error = errs[p]
	}
	return nil
}

func (l *Layer) applyDeltas(parent *Layer, learningRate float32) {
	for i := range l.Neurons {
		l.Neurons[i].applyDelta(parent, learningRate)
	}
}

// MeanSquaredError averages the squared distance between desired values and
// the current outputs of an output layer.
func (l *Layer) MeanSquaredError(desired []float32) (float32, error) {
	if l.Role != RoleOutput {
		return 0, fmt.Errorf("%w: total error needs the output layer, got %s layer %s", ErrInvalidLayerRole, l.Role, l.Name)
	}
	if len(desired) != len(l.Neurons) {
		return 0, fmt.Errorf("%w: got %d desired values, output layer has %d neurons", ErrShape, len(desired), len(l.Neurons))
	}
	return meanSquaredError(desired, l.Outputs()), nil
}
