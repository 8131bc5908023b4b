package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := sampleSnapshot("s1", "xor")
	if err := store.SaveSnapshot(ctx, input); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	input.Weights[1][0][0] = 99

	output, ok, err := store.GetSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted snapshot")
	}
	if output.Weights[1][0][0] != 0.25 {
		t.Fatalf("stored snapshot shares memory with the caller: %+v", output.Weights)
	}
	if output.Generations != 12 || output.Biases[2][0] != 0.05 {
		t.Fatalf("unexpected snapshot: %+v", output)
	}

	if err := store.DeleteSnapshot(ctx, "s1"); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	if _, ok, err := store.GetSnapshot(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected deleted snapshot, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListSnapshotsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, s := range []struct{ id, name string }{{"3", "xor"}, {"1", "and"}, {"2", "xor"}} {
		if err := store.SaveSnapshot(ctx, sampleSnapshot(s.id, s.name)); err != nil {
			t.Fatalf("save snapshot %s: %v", s.id, err)
		}
	}

	summaries, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	want := []string{"1", "2", "3"}
	if len(summaries) != len(want) {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	for i := range want {
		if summaries[i].ID != want[i] {
			t.Fatalf("unexpected summary order: %+v", summaries)
		}
	}
}

func TestMemoryStoreRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	runs := []struct{ id, at string }{
		{"r1", "2026-01-01T00:00:00Z"},
		{"r3", "2026-03-01T00:00:00Z"},
		{"r2", "2026-02-01T00:00:00Z"},
	}
	for _, r := range runs {
		if err := store.SaveRun(ctx, sampleRun(r.id, r.at)); err != nil {
			t.Fatalf("save run %s: %v", r.id, err)
		}
	}

	listed, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(listed) != 2 || listed[0].RunID != "r3" || listed[1].RunID != "r2" {
		t.Fatalf("unexpected runs: %+v", listed)
	}

	run, ok, err := store.GetRun(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if run.GenerationsRun != 42 || !run.Converged {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestMemoryStoreErrorHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []float64{0.3, 0.2, 0.1}
	if err := store.SaveErrorHistory(ctx, "run-1", input); err != nil {
		t.Fatalf("save history: %v", err)
	}
	output, ok, err := store.GetErrorHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted error history")
	}
	if len(output) != len(input) || output[2] != input[2] {
		t.Fatalf("unexpected history: %+v", output)
	}
	if _, ok, err := store.GetErrorHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing history, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreRejectsMissingIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveSnapshot(ctx, sampleSnapshot("", "xor")); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID for snapshot, got %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("", "")); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID for run, got %v", err)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveSnapshot(context.Background(), sampleSnapshot("s1", "xor")); err == nil {
		t.Fatal("expected error before init")
	}
}
