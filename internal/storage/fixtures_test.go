package storage

import "neuralmesh/internal/model"

func sampleSnapshot(id, name string) model.Snapshot {
	return model.Snapshot{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		Name:            name,
		Inputs:          2,
		HiddenLayers:    1,
		HiddenNeurons:   2,
		Outputs:         1,
		Weights:         [][][]float32{{{}, {}}, {{0.25, -0.5}, {0.75, 0.125}}, {{0.5, -0.25}}},
		Biases:          [][]float32{{0, 0}, {0.1, -0.1}, {0.05}},
		Generations:     12,
		LearningRate:    0.35,
		TotalError:      0.0625,
	}
}

func sampleRun(id, createdAt string) model.TrainingRun {
	return model.TrainingRun{
		VersionedRecord: CurrentVersion(),
		RunID:           id,
		SnapshotID:      "s1",
		Session:         "xor",
		Seed:            7,
		LearningRate:    0.35,
		MaxGenerations:  100,
		GenerationsRun:  42,
		TargetError:     0.05,
		FinalError:      0.04,
		Converged:       true,
		CreatedAtUTC:    createdAt,
	}
}
