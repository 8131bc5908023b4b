package main

import (
	"encoding/json"
	"fmt"
	"os"

	meshapi "neuralmesh/pkg/neuralmesh"
)

func loadTrainRequestFromConfig(path string) (meshapi.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return meshapi.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return meshapi.TrainRequest{}, err
	}

	var req meshapi.TrainRequest
	if v, ok := asString(raw["name"]); ok {
		req.Name = v
	}
	if v, ok := asString(raw["session"]); ok {
		req.Session = v
	}
	if v, ok := asString(raw["session_csv_path"]); ok {
		req.SessionCSVPath = v
	}
	if v, ok := asString(raw["continue_snapshot_id"]); ok {
		req.ContinueSnapshotID = v
	}
	if v, ok := asInt(raw["inputs"]); ok {
		req.Inputs = v
	}
	if v, ok := asInt(raw["hidden_layers"]); ok {
		req.HiddenLayers = v
	}
	if v, ok := asInt(raw["hidden_neurons"]); ok {
		req.HiddenNeurons = v
	}
	if v, ok := asInt(raw["outputs"]); ok {
		req.Outputs = v
	}
	if v, ok := asBool(raw["softmax"]); ok {
		req.Softmax = v
	}
	if v, ok := asString(raw["hidden_activation"]); ok {
		req.HiddenActivation = v
	}
	if v, ok := asString(raw["output_activation"]); ok {
		req.OutputActivation = v
	}
	if v, ok := asFloat64(raw["learning_rate"]); ok {
		req.LearningRate = float32(v)
	}
	if v, ok := asInt(raw["max_generations"]); ok {
		req.MaxGenerations = v
	}
	if v, ok := asFloat64(raw["target_error"]); ok {
		req.TargetError = float32(v)
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asBool(raw["skip_artifacts"]); ok {
		req.SkipArtifacts = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies every flag the user set explicitly on top of a
// config-file request.
func overrideFromFlags(req *meshapi.TrainRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "name":
			req.Name = v.(string)
		case "session":
			req.Session = v.(string)
		case "csv":
			req.SessionCSVPath = v.(string)
		case "continue":
			req.ContinueSnapshotID = v.(string)
		case "inputs":
			req.Inputs = v.(int)
		case "hidden-layers":
			req.HiddenLayers = v.(int)
		case "hidden-neurons":
			req.HiddenNeurons = v.(int)
		case "outputs":
			req.Outputs = v.(int)
		case "softmax":
			req.Softmax = v.(bool)
		case "hidden-activation":
			req.HiddenActivation = v.(string)
		case "output-activation":
			req.OutputActivation = v.(string)
		case "lr":
			req.LearningRate = float32(v.(float64))
		case "gens":
			req.MaxGenerations = v.(int)
		case "target":
			req.TargetError = float32(v.(float64))
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "no-artifacts":
			req.SkipArtifacts = v.(bool)
		}
	}
}

func loadOrDefaultTrainRequest(configPath string) (meshapi.TrainRequest, error) {
	if configPath == "" {
		return meshapi.TrainRequest{}, nil
	}
	req, err := loadTrainRequestFromConfig(configPath)
	if err != nil {
		return meshapi.TrainRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
