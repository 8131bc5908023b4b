package nn

import (
	"fmt"

	"neuralmesh/internal/model"
)

// Snapshot versions this package writes and accepts.
const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

// Snapshot exports the network's shape, parameters and training state.
func (n *Network) Snapshot() model.Snapshot {
	snapshot := model.Snapshot{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: SupportedSchemaVersion,
			CodecVersion:  SupportedCodecVersion,
		},
		Name:             n.Name,
		Inputs:           n.shape.Inputs,
		HiddenLayers:     n.shape.HiddenLayers,
		HiddenNeurons:    n.shape.HiddenNeurons,
		Outputs:          n.shape.Outputs,
		Softmax:          n.shape.Softmax,
		HiddenActivation: n.cfg.hiddenActivation,
		OutputActivation: n.OutputLayer().ActivationName,
		Weights:          make([][][]float32, len(n.Layers)),
		Biases:           make([][]float32, len(n.Layers)),
		Generations:      n.Generation,
		LearningRate:     n.LearningRate,
		TotalError:       n.TotalError,
	}
	for i := range n.Layers {
		snapshot.Weights[i] = n.Layers[i].Weights()
		snapshot.Biases[i] = n.Layers[i].Biases()
	}
	return snapshot
}

// FromSnapshot builds a new network from snapshot.
func FromSnapshot(snapshot model.Snapshot, opts ...Option) (*Network, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.rng = ensureRNG(cfg.rng)

	n := &Network{cfg: cfg}
	if err := n.LoadSnapshot(snapshot); err != nil {
		return nil, err
	}
	return n, nil
}

// LoadSnapshot destroys the current topology, rebuilds it from the snapshot
// shape and pins every weight and bias. A snapshot without parameters keeps
// the fresh random initialization. Neuron outputs are not part of a
// snapshot, so a softmax layer restarts from zeroed sibling outputs.
func (n *Network) LoadSnapshot(snapshot model.Snapshot) error {
	if snapshot.SchemaVersion != SupportedSchemaVersion || snapshot.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: snapshot schema=%d codec=%d", ErrConstruction, snapshot.SchemaVersion, snapshot.CodecVersion)
	}

	shape := Shape{
		Inputs:        snapshot.Inputs,
		HiddenLayers:  snapshot.HiddenLayers,
		HiddenNeurons: snapshot.HiddenNeurons,
		Outputs:       snapshot.Outputs,
		Softmax:       snapshot.Softmax,
	}
	cfg := n.cfg
	if snapshot.HiddenActivation != "" {
		cfg.hiddenActivation = snapshot.HiddenActivation
	}
	if snapshot.OutputActivation != "" && !snapshot.Softmax {
		cfg.outputActivation = snapshot.OutputActivation
	}

	layers, err := buildLayers(shape, cfg)
	if err != nil {
		return err
	}
	if snapshot.Weights != nil || snapshot.Biases != nil {
		if err := applyParameters(layers, snapshot.Weights, snapshot.Biases); err != nil {
			return err
		}
	}

	n.Layers = layers
	n.shape = shape
	n.cfg = cfg
	n.Name = snapshot.Name
	n.Generation = snapshot.Generations
	n.LearningRate = snapshot.LearningRate
	n.TotalError = snapshot.TotalError
	return nil
}

func applyParameters(layers []Layer, weights [][][]float32, biases [][]float32) error {
	if len(weights) != len(layers) || len(biases) != len(layers) {
		return fmt.Errorf("%w: snapshot has %d weight and %d bias layers, shape has %d", ErrConstruction, len(weights), len(biases), len(layers))
	}
	for l := range layers {
		layer := &layers[l]
		if len(weights[l]) != len(layer.Neurons) || len(biases[l]) != len(layer.Neurons) {
			return fmt.Errorf("%w: layer %s parameter count does not match %d neurons", ErrConstruction, layer.Name, len(layer.Neurons))
		}
		for i := range layer.Neurons {
			neuron := &layer.Neurons[i]
			if len(weights[l][i]) != len(neuron.Edges) {
				return fmt.Errorf("%w: %s has %d edges, snapshot has %d weights", ErrConstruction, neuron.ID, len(neuron.Edges), len(weights[l][i]))
			}
			for e := range neuron.Edges {
				neuron.Edges[e].Weight = weights[l][i][e]
			}
			neuron.Bias = biases[l][i]
		}
	}
	return nil
}
