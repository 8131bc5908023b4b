package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"neuralmesh/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is everything needed to repeat a training run.
type RunConfig struct {
	RunID              string  `json:"run_id"`
	Session            string  `json:"session"`
	SessionCSVPath     string  `json:"session_csv_path,omitempty"`
	ContinueSnapshotID string  `json:"continue_snapshot_id,omitempty"`
	Inputs             int     `json:"inputs"`
	HiddenLayers       int     `json:"hidden_layers"`
	HiddenNeurons      int     `json:"hidden_neurons"`
	Outputs            int     `json:"outputs"`
	Softmax            bool    `json:"softmax"`
	HiddenActivation   string  `json:"hidden_activation"`
	OutputActivation   string  `json:"output_activation"`
	LearningRate       float32 `json:"learning_rate"`
	MaxGenerations     int     `json:"max_generations"`
	TargetError        float32 `json:"target_error"`
	Seed               int64   `json:"seed"`
	Workers            int     `json:"workers"`
}

type RunArtifacts struct {
	Config       RunConfig      `json:"config"`
	ErrorHistory []float64      `json:"error_by_generation"`
	Summary      Summary        `json:"summary"`
	Snapshot     model.Snapshot `json:"snapshot"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Session      string  `json:"session"`
	SnapshotID   string  `json:"snapshot_id"`
	Generations  int     `json:"generations"`
	Seed         int64   `json:"seed"`
	FinalError   float64 `json:"final_error"`
	Converged    bool    `json:"converged"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes config.json, error_history.json and snapshot.json
// under baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "error_history.json"), map[string]any{"error_by_generation": artifacts.ErrorHistory, "summary": artifacts.Summary}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "snapshot.json"), artifacts.Snapshot); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, "config.json"), &cfg)
	return cfg, ok, err
}

func ReadRunSnapshot(baseDir, runID string) (model.Snapshot, bool, error) {
	var snapshot model.Snapshot
	ok, err := readJSON(filepath.Join(baseDir, runID, "snapshot.json"), &snapshot)
	return snapshot, ok, err
}

func ReadErrorHistory(baseDir, runID string) ([]float64, bool, error) {
	var payload struct {
		ErrorByGeneration []float64 `json:"error_by_generation"`
	}
	ok, err := readJSON(filepath.Join(baseDir, runID, "error_history.json"), &payload)
	return payload.ErrorByGeneration, ok, err
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries sharing a
// timestamp keep later appends ahead of earlier ones.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	order := make(map[string]int, len(entries))
	for i, entry := range entries {
		order[entry.RunID] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			return order[entries[i].RunID] > order[entries[j].RunID]
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
