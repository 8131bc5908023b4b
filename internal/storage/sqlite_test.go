package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreSnapshotAndRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "neuralmesh.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	snapshot := sampleSnapshot("s1", "xor")
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	snapshot.Generations = 20
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("upsert snapshot: %v", err)
	}

	loaded, ok, err := store.GetSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot s1")
	}
	if loaded.Generations != 20 || loaded.Weights[1][1][1] != 0.125 || loaded.LearningRate != 0.35 {
		t.Fatalf("unexpected snapshot loaded: %+v", loaded)
	}

	summaries, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Generations != 20 || summaries[0].TotalError != 0.0625 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	for _, r := range []struct{ id, at string }{{"r1", "2026-01-01T00:00:00Z"}, {"r2", "2026-02-01T00:00:00Z"}} {
		if err := store.SaveRun(ctx, sampleRun(r.id, r.at)); err != nil {
			t.Fatalf("save run %s: %v", r.id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "r2" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list limited runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected one run, got %d", len(limited))
	}

	if err := store.SaveErrorHistory(ctx, "r1", []float64{0.5, 0.25}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history, ok, err := store.GetErrorHistory(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if len(history) != 2 || history[1] != 0.25 {
		t.Fatalf("unexpected history: %+v", history)
	}

	if err := store.DeleteSnapshot(ctx, "s1"); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	if _, ok, err := store.GetSnapshot(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected deleted snapshot, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "neuralmesh.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init first: %v", err)
	}
	if err := first.SaveRun(ctx, sampleRun("r1", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("init second: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})
	run, ok, err := second.GetRun(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get run after reopen: ok=%t err=%v", ok, err)
	}
	if run.Session != "xor" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "neuralmesh.db"))
	if _, _, err := store.GetSnapshot(context.Background(), "s1"); err == nil {
		t.Fatal("expected error before init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
