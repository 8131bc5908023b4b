package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Snapshot is the exported state of a trained network: its shape, every
// weight and bias, and the training bookkeeping needed to resume.
type Snapshot struct {
	VersionedRecord
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Inputs           int           `json:"inputs"`
	HiddenLayers     int           `json:"hidden_layers"`
	HiddenNeurons    int           `json:"hidden_neurons"`
	Outputs          int           `json:"outputs"`
	Softmax          bool          `json:"softmax"`
	HiddenActivation string        `json:"hidden_activation,omitempty"`
	OutputActivation string        `json:"output_activation,omitempty"`
	Weights          [][][]float32 `json:"weights"`
	Biases           [][]float32   `json:"biases"`
	Generations      uint64        `json:"generations"`
	LearningRate     float32       `json:"learning_rate"`
	TotalError       float32       `json:"total_error"`
}

// TrainingRun records one evolute invocation.
type TrainingRun struct {
	VersionedRecord
	RunID          string  `json:"run_id"`
	SnapshotID     string  `json:"snapshot_id"`
	Session        string  `json:"session"`
	Seed           int64   `json:"seed"`
	LearningRate   float32 `json:"learning_rate"`
	MaxGenerations int     `json:"max_generations"`
	GenerationsRun int     `json:"generations_run"`
	TargetError    float32 `json:"target_error"`
	FinalError     float32 `json:"final_error"`
	Converged      bool    `json:"converged"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// SnapshotSummary is the listing view of a stored snapshot.
type SnapshotSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Generations uint64  `json:"generations"`
	TotalError  float32 `json:"total_error"`
}
