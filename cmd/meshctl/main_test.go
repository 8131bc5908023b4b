package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neuralmesh/internal/stats"
)

func TestRunRequiresKnownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage: meshctl") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := run(context.Background(), []string{"evolve"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestTrainCommandSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	dbPath := filepath.Join(workdir, "neuralmesh.db")
	artifacts := filepath.Join(workdir, "runs")
	storeArgs := []string{"--store", "sqlite", "--db-path", dbPath, "--artifacts", artifacts}

	out, err := captureStdout(func() error {
		return run(ctx, append([]string{"train", "--session", "xor", "--gens", "5", "--lr", "0.35", "--seed", "3"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	if !strings.Contains(out, "run completed run_id=") || !strings.Contains(out, "generations=5") {
		t.Fatalf("unexpected train output: %s", out)
	}

	entries, err := stats.ListRunIndex(artifacts)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %+v", entries)
	}
	runID := entries[0].RunID
	snapshotID := entries[0].SnapshotID

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"runs", "--limit", "1"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "run_id="+runID) {
		t.Fatalf("runs output missing run id %s: %s", runID, out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"history", "--latest"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("history command: %v", err)
	}
	if got := strings.Count(out, "total_error="); got != 5 {
		t.Fatalf("expected 5 history lines, got %d: %s", got, out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"predict", "--snapshot", snapshotID, "--inputs", "1,0", "--round"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("predict command: %v", err)
	}
	if !strings.Contains(out, "outputs=[") || !strings.Contains(out, "decisions=[") {
		t.Fatalf("unexpected predict output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"snapshots"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("snapshots command: %v", err)
	}
	if !strings.Contains(out, "snapshot_id="+snapshotID) {
		t.Fatalf("snapshots output missing %s: %s", snapshotID, out)
	}

	exportPath := filepath.Join(workdir, "exports", "xor.json")
	if _, err := captureStdout(func() error {
		return run(ctx, append([]string{"export", "--id", snapshotID, "--out", exportPath}, storeArgs...))
	}); err != nil {
		t.Fatalf("export command: %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("expected exported snapshot: %v", err)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"import", "--store", "memory", "--artifacts", artifacts, exportPath})
	})
	if err != nil {
		t.Fatalf("import command: %v", err)
	}
	if !strings.Contains(out, "imported snapshot_id="+snapshotID) {
		t.Fatalf("unexpected import output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"predict", "--store", "memory", "--artifacts", artifacts, "--run-id", runID, "--inputs", "0,1", "--json"})
	})
	if err != nil {
		t.Fatalf("predict by run command: %v", err)
	}
	var prediction struct {
		Outputs []float32 `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(out), &prediction); err != nil {
		t.Fatalf("decode predict json: %v (%s)", err, out)
	}
	if len(prediction.Outputs) != 1 {
		t.Fatalf("unexpected prediction: %+v", prediction)
	}
}

func TestSQLiteRunWithoutArtifacts(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	storeArgs := []string{"--store", "sqlite", "--db-path", filepath.Join(workdir, "neuralmesh.db"), "--artifacts", filepath.Join(workdir, "runs")}

	out, err := captureStdout(func() error {
		return run(ctx, append([]string{"train", "--session", "or", "--gens", "3", "--seed", "5", "--no-artifacts"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	runID := outputField(out, "run_id")
	snapshotID := outputField(out, "snapshot_id")
	if runID == "" || snapshotID == "" {
		t.Fatalf("train output missing ids: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"runs"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "run_id="+runID) {
		t.Fatalf("stored run not listed: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"show", "--run-id", runID}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("show command: %v", err)
	}
	if !strings.Contains(out, "session=or") || !strings.Contains(out, "config unavailable") {
		t.Fatalf("unexpected show output: %s", out)
	}

	if _, err := captureStdout(func() error {
		return run(ctx, append([]string{"predict", "--run-id", runID, "--inputs", "1,0"}, storeArgs...))
	}); err != nil {
		t.Fatalf("predict by stored run: %v", err)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"delete", "--id", snapshotID}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("delete command: %v", err)
	}
	if !strings.Contains(out, "deleted snapshot_id="+snapshotID) {
		t.Fatalf("unexpected delete output: %s", out)
	}
	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"snapshots"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("snapshots command: %v", err)
	}
	if !strings.Contains(out, "no snapshots found") {
		t.Fatalf("expected empty snapshot list, got: %s", out)
	}
}

func TestShowCommandReadsArtifactConfig(t *testing.T) {
	ctx := context.Background()
	artifacts := t.TempDir()
	storeArgs := []string{"--store", "memory", "--artifacts", artifacts}

	if _, err := captureStdout(func() error {
		return run(ctx, append([]string{"train", "--session", "nand", "--gens", "2", "--seed", "8", "--hidden-neurons", "3"}, storeArgs...))
	}); err != nil {
		t.Fatalf("train command: %v", err)
	}
	entries, err := stats.ListRunIndex(artifacts)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list run index: entries=%d err=%v", len(entries), err)
	}

	out, err := captureStdout(func() error {
		return run(ctx, append([]string{"show", "--run-id", entries[0].RunID}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("show command: %v", err)
	}
	if !strings.Contains(out, "hidden_neurons=3") || !strings.Contains(out, "max_generations=2") {
		t.Fatalf("expected config from artifacts: %s", out)
	}
}

func outputField(out, key string) string {
	for _, field := range strings.Fields(out) {
		if value, ok := strings.CutPrefix(field, key+"="); ok {
			return value
		}
	}
	return ""
}

func TestTrainCommandConfigWithFlagOverride(t *testing.T) {
	workdir := t.TempDir()
	configPath := filepath.Join(workdir, "train.json")
	config := `{"session":"and","max_generations":7,"learning_rate":0.35,"seed":9,"skip_artifacts":true}`
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"train", "--config", configPath, "--gens", "2", "--json", "--store", "memory", "--artifacts", filepath.Join(workdir, "runs")})
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	var summary struct {
		GenerationsRun int    `json:"generations_run"`
		ArtifactsDir   string `json:"artifacts_dir"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode train json: %v (%s)", err, out)
	}
	if summary.GenerationsRun != 2 {
		t.Fatalf("expected flag override of 2 generations, got %d", summary.GenerationsRun)
	}
	if summary.ArtifactsDir != "" {
		t.Fatalf("expected skipped artifacts from config, got %s", summary.ArtifactsDir)
	}
}

func TestTrainCommandRejectsUnboundedRunWithoutTarget(t *testing.T) {
	err := run(context.Background(), []string{"train", "--gens", "0", "--store", "memory", "--artifacts", t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "positive target") {
		t.Fatalf("expected target error, got %v", err)
	}
}

func TestPredictCommandRequiresOneSelector(t *testing.T) {
	err := run(context.Background(), []string{"predict", "--snapshot", "a", "--run-id", "b", "--inputs", "0,1", "--store", "memory"})
	if err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Fatalf("expected selector error, got %v", err)
	}
}

func TestParseInputs(t *testing.T) {
	got, err := parseInputs(" 0, 0.5,1 ")
	if err != nil {
		t.Fatalf("parse inputs: %v", err)
	}
	if len(got) != 3 || got[1] != 0.5 {
		t.Fatalf("unexpected inputs: %v", got)
	}
	if _, err := parseInputs("0,x"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := parseInputs(""); err == nil {
		t.Fatal("expected missing inputs error")
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
