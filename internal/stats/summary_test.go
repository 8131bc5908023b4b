package stats

import (
	"errors"
	"math"
	"testing"

	"neuralmesh/internal/model"
)

func TestSummarize(t *testing.T) {
	summary, err := Summarize([]float64{0.4, 0.2, 0.3, 0.1})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Generations != 4 || summary.Initial != 0.4 || summary.Final != 0.1 {
		t.Fatalf("unexpected endpoints: %+v", summary)
	}
	if summary.Best != 0.1 || summary.Worst != 0.4 {
		t.Fatalf("unexpected extremes: %+v", summary)
	}
	if math.Abs(summary.Mean-0.25) > 1e-12 {
		t.Fatalf("unexpected mean: %f", summary.Mean)
	}
	// Sample standard deviation of {0.4, 0.2, 0.3, 0.1}.
	if math.Abs(summary.Std-math.Sqrt(0.05/3)) > 1e-12 {
		t.Fatalf("unexpected std: %f", summary.Std)
	}
	if math.Abs(summary.Improvement-0.3) > 1e-12 {
		t.Fatalf("unexpected improvement: %f", summary.Improvement)
	}
}

func TestSummarizeSingleGeneration(t *testing.T) {
	summary, err := Summarize([]float64{0.5})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Std != 0 || summary.Improvement != 0 {
		t.Fatalf("unexpected single generation summary: %+v", summary)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, err := Summarize(nil); !errors.Is(err, ErrEmptyHistory) {
		t.Fatalf("expected ErrEmptyHistory, got %v", err)
	}
}

func TestLayerWeightNorms(t *testing.T) {
	snapshot := model.Snapshot{
		Weights: [][][]float32{
			{{}, {}},
			{{3, 0}, {0, 4}},
			{{0.5, 0.5}},
		},
	}
	norms := LayerWeightNorms(snapshot)
	if len(norms) != 2 {
		t.Fatalf("expected two weighted layers, got %v", norms)
	}
	if math.Abs(norms[0]-5) > 1e-9 || math.Abs(norms[1]-math.Sqrt(0.5)) > 1e-9 {
		t.Fatalf("unexpected norms: %v", norms)
	}
}
