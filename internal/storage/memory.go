package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"neuralmesh/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string]model.Snapshot
	runs        map[string]model.TrainingRun
	history     map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string]model.Snapshot)
	s.runs = make(map[string]model.TrainingRun)
	s.history = make(map[string][]float64)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.Snapshot) error {
	if snapshot.ID == "" {
		return errors.Wrap(ErrMissingID, "save snapshot")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.snapshots[snapshot.ID] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (model.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.Snapshot{}, false, errNotInitialized
	}
	snapshot, ok := s.snapshots[id]
	if !ok {
		return model.Snapshot{}, false, nil
	}
	return cloneSnapshot(snapshot), true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]model.SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	out := make([]model.SnapshotSummary, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, summarize(snapshot))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteSnapshot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	delete(s.snapshots, id)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.TrainingRun) error {
	if run.RunID == "" {
		return errors.Wrap(ErrMissingID, "save run")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.TrainingRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.TrainingRun{}, false, errNotInitialized
	}
	run, ok := s.runs[runID]
	return run, ok, nil
}

// ListRuns returns runs newest first. A non-positive limit returns them all.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.TrainingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	out := make([]model.TrainingRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC != out[j].CreatedAtUTC {
			return out[i].CreatedAtUTC > out[j].CreatedAtUTC
		}
		return out[i].RunID < out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveErrorHistory(_ context.Context, runID string, history []float64) error {
	if runID == "" {
		return errors.Wrap(ErrMissingID, "save error history")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetErrorHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func cloneSnapshot(s model.Snapshot) model.Snapshot {
	out := s
	if s.Weights != nil {
		out.Weights = make([][][]float32, len(s.Weights))
		for l := range s.Weights {
			out.Weights[l] = make([][]float32, len(s.Weights[l]))
			for n := range s.Weights[l] {
				out.Weights[l][n] = append([]float32(nil), s.Weights[l][n]...)
			}
		}
	}
	if s.Biases != nil {
		out.Biases = make([][]float32, len(s.Biases))
		for l := range s.Biases {
			out.Biases[l] = append([]float32(nil), s.Biases[l]...)
		}
	}
	return out
}
