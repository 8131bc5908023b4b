package nn

import (
	"context"
	"fmt"
)

// GenerationsUnbounded lets Evolute run until the stop predicate holds.
const GenerationsUnbounded = 0

const (
	// MaxLayerNeurons bounds the neuron count of any single layer.
	MaxLayerNeurons = 1 << 16
	// MaxLayerEdges bounds the inbound edges of any single layer.
	MaxLayerEdges = 1 << 24
)

// Shape is the compact descriptor the topology builder works from.
// HiddenNeurons is the neuron count of each hidden layer.
type Shape struct {
	Inputs        int  `json:"inputs"`
	HiddenLayers  int  `json:"hidden_layers"`
	HiddenNeurons int  `json:"hidden_neurons"`
	Outputs       int  `json:"outputs"`
	Softmax       bool `json:"softmax"`
}

func (s Shape) validate() error {
	if s.HiddenLayers < 0 {
		return fmt.Errorf("%w: hidden layer count must not be negative, got %d", ErrConstruction, s.HiddenLayers)
	}
	if s.Inputs <= 0 {
		return fmt.Errorf("%w: input count must be positive, got %d", ErrConstruction, s.Inputs)
	}
	if s.HiddenLayers > 0 && s.HiddenNeurons <= 0 {
		return fmt.Errorf("%w: hidden neuron count must be positive, got %d", ErrConstruction, s.HiddenNeurons)
	}
	if s.Outputs <= 0 {
		return fmt.Errorf("%w: output count must be positive, got %d", ErrConstruction, s.Outputs)
	}

	if s.Inputs > MaxLayerNeurons || s.Outputs > MaxLayerNeurons || (s.HiddenLayers > 0 && s.HiddenNeurons > MaxLayerNeurons) {
		return fmt.Errorf("%w: layers are limited to %d neurons", ErrConstruction, MaxLayerNeurons)
	}
	last := s.Inputs
	if s.HiddenLayers > 0 {
		if err := checkMeshSize(last, s.HiddenNeurons); err != nil {
			return err
		}
		last = s.HiddenNeurons
	}
	return checkMeshSize(last, s.Outputs)
}

func checkMeshSize(parent, child int) error {
	if edges := parent * child; edges > MaxLayerEdges {
		return fmt.Errorf("%w: full mesh of %dx%d needs %d edges, limit is %d", ErrConstruction, parent, child, edges, MaxLayerEdges)
	}
	return nil
}

// Network is an ordered stack of fully meshed layers: input, hidden*, output.
// A Network is owned by a single caller; it does no locking of its own.
type Network struct {
	Name         string
	Layers       []Layer
	LearningRate float32
	Generation   uint64
	TotalError   float32

	shape Shape
	cfg   config
}

// Build constructs a network for shape. On error no network is returned.
func Build(shape Shape, opts ...Option) (*Network, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.rng = ensureRNG(cfg.rng)

	n := &Network{
		Name:         cfg.name,
		LearningRate: cfg.learningRate,
		cfg:          cfg,
	}
	if err := n.Rebuild(shape); err != nil {
		return nil, err
	}
	return n, nil
}

// Rebuild discards every layer, neuron and edge and builds shape afresh with
// new random weights. A failed rebuild leaves the existing topology in place.
func (n *Network) Rebuild(shape Shape) error {
	layers, err := buildLayers(shape, n.cfg)
	if err != nil {
		return err
	}
	n.Layers = layers
	n.shape = shape
	return nil
}

func buildLayers(shape Shape, cfg config) ([]Layer, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}

	layers := make([]Layer, 0, shape.HiddenLayers+2)
	input, err := newLayer(0, "input", RoleInput, shape.Inputs, ActivationIdentity, 0)
	if err != nil {
		return nil, err
	}
	layers = append(layers, input)

	for i := 0; i < shape.HiddenLayers; i++ {
		hidden, err := newLayer(len(layers), fmt.Sprintf("hidden%d", i+1), RoleHidden, shape.HiddenNeurons, cfg.hiddenActivation, cfg.initialBias)
		if err != nil {
			return nil, err
		}
		if err := hidden.BindFullMesh(&layers[len(layers)-1], cfg.rng); err != nil {
			return nil, err
		}
		layers = append(layers, hidden)
	}

	outputActivation := cfg.outputActivation
	if shape.Softmax {
		outputActivation = ActivationSoftmax
	}
	output, err := newLayer(len(layers), "output", RoleOutput, shape.Outputs, outputActivation, cfg.initialBias)
	if err != nil {
		return nil, err
	}
	if err := output.BindFullMesh(&layers[len(layers)-1], cfg.rng); err != nil {
		return nil, err
	}
	return append(layers, output), nil
}

func (n *Network) Shape() Shape {
	return n.shape
}

func (n *Network) InputLayer() *Layer {
	return &n.Layers[0]
}

func (n *Network) OutputLayer() *Layer {
	return &n.Layers[len(n.Layers)-1]
}

// Test propagates inputs, each normalized to [0, 1], through the network and
// returns the output layer values.
func (n *Network) Test(inputs []float32) ([]float32, error) {
	if err := n.InputLayer().SetInputs(inputs); err != nil {
		return nil, err
	}
	for i := 1; i < len(n.Layers); i++ {
		n.Layers[i].Propagate(&n.Layers[i-1], n.cfg.workers)
	}
	return n.OutputLayer().Outputs(), nil
}

// Outputs returns the output values left by the last forward pass.
func (n *Network) Outputs() []float32 {
	return n.OutputLayer().Outputs()
}

// Backpropagate runs one gradient-descent step against desired using the
// state of the last forward pass. Errors for every layer are computed before
// any weight or bias moves.
func (n *Network) Backpropagate(desired []float32) error {
	if err := n.computeErrors(desired); err != nil {
		return err
	}
	n.applyDeltas()
	return nil
}

func (n *Network) computeErrors(desired []float32) error {
	if err := n.OutputLayer().UpdateOutputErrors(desired); err != nil {
		return err
	}
	for i := len(n.Layers) - 2; i > 0; i-- {
		if err := n.Layers[i].UpdateHiddenErrors(&n.Layers[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) applyDeltas() {
	for i := len(n.Layers) - 1; i > 0; i-- {
		n.Layers[i].applyDeltas(&n.Layers[i-1], n.LearningRate)
	}
}

// MeanSquaredError compares desired against the current output values.
func (n *Network) MeanSquaredError(desired []float32) (float32, error) {
	return n.OutputLayer().MeanSquaredError(desired)
}

// Train runs one generation: every unit of session is propagated and
// backpropagated in order. TotalError ends up as the last unit's error.
func (n *Network) Train(session *TrainingSession, learningRate float32) error {
	if err := session.validate(n.shape); err != nil {
		return err
	}
	n.LearningRate = learningRate

	for i, unit := range session.Units {
		if _, err := n.Test(unit.Inputs); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		if err := n.Backpropagate(unit.Desired); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		mse, err := n.MeanSquaredError(unit.Desired)
		if err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		n.TotalError = mse
		session.TotalError = mse
	}

	n.Generation++
	session.notifyGenerationDone(n)
	return nil
}

// Evolute trains generation after generation until the session's stop
// predicate accepts the total error or maxGenerations have run. A cap of
// GenerationsUnbounded runs until the predicate holds. It returns the number
// of generations run by this call.
func (n *Network) Evolute(maxGenerations int, session *TrainingSession, learningRate float32) (int, error) {
	return n.EvoluteContext(context.Background(), maxGenerations, session, learningRate)
}

// EvoluteContext is Evolute with ctx checked between generations.
func (n *Network) EvoluteContext(ctx context.Context, maxGenerations int, session *TrainingSession, learningRate float32) (int, error) {
	if maxGenerations < 0 {
		return 0, fmt.Errorf("%w: must be positive or %d, got %d", ErrInvalidGenerationCap, GenerationsUnbounded, maxGenerations)
	}
	if maxGenerations == GenerationsUnbounded && (session == nil || session.Stop == nil) {
		return 0, fmt.Errorf("%w: unbounded run needs a stop predicate", ErrInvalidGenerationCap)
	}

	generations := 0
	for {
		if err := ctx.Err(); err != nil {
			return generations, err
		}
		if err := n.Train(session, learningRate); err != nil {
			return generations, err
		}
		generations++

		if session.Stop != nil && session.Stop(n.TotalError) {
			return generations, nil
		}
		if maxGenerations != GenerationsUnbounded && generations >= maxGenerations {
			return generations, nil
		}
	}
}

// SetWeight pins one inbound edge weight.
func (n *Network) SetWeight(layer, neuron, edge int, weight float32) error {
	target, err := n.neuronAt(layer, neuron)
	if err != nil {
		return err
	}
	if edge < 0 || edge >= len(target.Edges) {
		return fmt.Errorf("%w: %s has no edge %d", ErrShape, target.ID, edge)
	}
	target.Edges[edge].Weight = weight
	return nil
}

// SetBias pins the bias of a hidden or output neuron.
func (n *Network) SetBias(layer, neuron int, bias float32) error {
	target, err := n.neuronAt(layer, neuron)
	if err != nil {
		return err
	}
	if target.Role == RoleInput {
		return fmt.Errorf("%w: input neuron %s has no bias", ErrInvalidLayerRole, target.ID)
	}
	target.Bias = bias
	return nil
}

func (n *Network) neuronAt(layer, neuron int) (*Neuron, error) {
	if layer < 0 || layer >= len(n.Layers) {
		return nil, fmt.Errorf("%w: no layer %d", ErrShape, layer)
	}
	l := &n.Layers[layer]
	if neuron < 0 || neuron >= len(l.Neurons) {
		return nil, fmt.Errorf("%w: layer %s has no neuron %d", ErrShape, l.Name, neuron)
	}
	return &l.Neurons[neuron], nil
}

// RoundOutputs turns the output layer into a hard decision layer.
func (n *Network) RoundOutputs() {
	output := n.OutputLayer()
	output.ActivationName = ActivationThreshold
	for i := range output.Neurons {
		output.Neurons[i].Activation = Threshold{Level: defaultThreshold}
	}
}
