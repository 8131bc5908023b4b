package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"neuralmesh/internal/model"
)

var ErrEmptyHistory = errors.New("error history is empty")

// Summary condenses the per-generation total error of one run. Improvement is
// Initial minus Final, so a run that learned has a positive improvement.
type Summary struct {
	Generations int     `json:"generations"`
	Initial     float64 `json:"initial"`
	Final       float64 `json:"final"`
	Best        float64 `json:"best"`
	Worst       float64 `json:"worst"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Improvement float64 `json:"improvement"`
}

func Summarize(history []float64) (Summary, error) {
	if len(history) == 0 {
		return Summary{}, ErrEmptyHistory
	}
	s := Summary{
		Generations: len(history),
		Initial:     history[0],
		Final:       history[len(history)-1],
		Best:        floats.Min(history),
		Worst:       floats.Max(history),
		Mean:        stat.Mean(history, nil),
	}
	if len(history) > 1 {
		s.Std = stat.StdDev(history, nil)
	}
	s.Improvement = s.Initial - s.Final
	return s, nil
}

// LayerWeightNorms returns the Frobenius norm of every non-input layer's
// weight matrix, input side first.
func LayerWeightNorms(snapshot model.Snapshot) []float64 {
	norms := make([]float64, 0, len(snapshot.Weights))
	for _, layer := range snapshot.Weights {
		if len(layer) == 0 || len(layer[0]) == 0 {
			continue
		}
		rows, cols := len(layer), len(layer[0])
		data := make([]float64, 0, rows*cols)
		for _, neuron := range layer {
			for c := 0; c < cols; c++ {
				var w float32
				if c < len(neuron) {
					w = neuron[c]
				}
				data = append(data, float64(w))
			}
		}
		norms = append(norms, mat.Norm(mat.NewDense(rows, cols, data), 2))
	}
	return norms
}
