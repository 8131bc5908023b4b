// Package neuralmesh is the programmatic entry point: it trains feed-forward
// networks on named or CSV sessions and persists snapshots, runs and error
// histories through the configured store.
package neuralmesh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"neuralmesh/internal/model"
	"neuralmesh/internal/nn"
	"neuralmesh/internal/sessions"
	"neuralmesh/internal/stats"
	"neuralmesh/internal/storage"
)

const (
	defaultArtifactsDir   = "runs"
	defaultDBPath         = "neuralmesh.db"
	defaultSession        = "xor"
	defaultMaxGenerations = 10000
	defaultRunsLimit      = 20
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	// Progress, when set, is called after every training generation.
	Progress func(generation uint64, totalError float32)
}

type Client struct {
	store        storage.Store
	artifactsDir string
	progress     func(uint64, float32)

	mu          sync.Mutex
	initialized bool
}

// TrainRequest describes one training run. Zero values pick defaults: the
// xor session, one hidden layer sized by nn.RecommendedHiddenNeurons, the
// default learning rate and a cap of 10000 generations unless a target error
// is given.
type TrainRequest struct {
	Name               string
	Session            string
	SessionCSVPath     string
	ContinueSnapshotID string
	Inputs             int
	HiddenLayers       int
	HiddenNeurons      int
	Outputs            int
	Softmax            bool
	HiddenActivation   string
	OutputActivation   string
	LearningRate       float32
	MaxGenerations     int
	TargetError        float32
	Seed               int64
	Workers            int
	SkipArtifacts      bool
}

type TrainSummary struct {
	RunID          string
	SnapshotID     string
	ArtifactsDir   string
	GenerationsRun int
	FinalError     float32
	Converged      bool
	ErrorHistory   []float64
	Stats          stats.Summary
	WeightNorms    []float64
}

// PredictRequest selects a network by exactly one of SnapshotID, RunID or
// SnapshotPath and runs Inputs through it.
type PredictRequest struct {
	SnapshotID   string
	RunID        string
	SnapshotPath string
	Inputs       []float32
	Round        bool
}

type Prediction struct {
	SnapshotID string
	Outputs    []float32
	Decisions  []int
}

type RunItem struct {
	RunID        string
	SnapshotID   string
	CreatedAtUTC string
	Session      string
	Seed         int64
	Generations  int
	FinalError   float64
	Converged    bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		progress:     opts.Progress,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return TrainSummary{}, err
	}

	session, sessionName, err := resolveSession(req)
	if err != nil {
		return TrainSummary{}, err
	}
	if req.LearningRate <= 0 {
		req.LearningRate = nn.DefaultLearningRate
	}
	if req.MaxGenerations == 0 && req.TargetError <= 0 {
		req.MaxGenerations = defaultMaxGenerations
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	network, err := c.prepareNetwork(ctx, req, sessionName, session)
	if err != nil {
		return TrainSummary{}, err
	}
	shape := network.Shape()

	history := make([]float64, 0, 128)
	session.OnGenerationDone = func(n *nn.Network) {
		history = append(history, float64(n.TotalError))
		if c.progress != nil {
			c.progress(n.Generation, n.TotalError)
		}
	}
	if req.TargetError > 0 {
		session.Stop = nn.StopAtError(req.TargetError)
	}

	ran, err := network.EvoluteContext(ctx, req.MaxGenerations, session, req.LearningRate)
	if err != nil {
		return TrainSummary{}, err
	}

	now := time.Now().UTC()
	snapshot := network.Snapshot()
	snapshot.ID = storage.NewID()
	if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
		return TrainSummary{}, err
	}

	run := model.TrainingRun{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           storage.NewID(),
		SnapshotID:      snapshot.ID,
		Session:         sessionName,
		Seed:            req.Seed,
		LearningRate:    req.LearningRate,
		MaxGenerations:  req.MaxGenerations,
		GenerationsRun:  ran,
		TargetError:     req.TargetError,
		FinalError:      network.TotalError,
		Converged:       req.TargetError > 0 && network.TotalError <= req.TargetError,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveErrorHistory(ctx, run.RunID, history); err != nil {
		return TrainSummary{}, err
	}

	summary, err := stats.Summarize(history)
	if err != nil {
		return TrainSummary{}, err
	}
	out := TrainSummary{
		RunID:          run.RunID,
		SnapshotID:     snapshot.ID,
		GenerationsRun: ran,
		FinalError:     run.FinalError,
		Converged:      run.Converged,
		ErrorHistory:   append([]float64(nil), history...),
		Stats:          summary,
		WeightNorms:    stats.LayerWeightNorms(snapshot),
	}
	if req.SkipArtifacts {
		return out, nil
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:              run.RunID,
			Session:            sessionName,
			SessionCSVPath:     req.SessionCSVPath,
			ContinueSnapshotID: req.ContinueSnapshotID,
			Inputs:             shape.Inputs,
			HiddenLayers:       shape.HiddenLayers,
			HiddenNeurons:      shape.HiddenNeurons,
			Outputs:            shape.Outputs,
			Softmax:            shape.Softmax,
			HiddenActivation:   snapshot.HiddenActivation,
			OutputActivation:   snapshot.OutputActivation,
			LearningRate:       req.LearningRate,
			MaxGenerations:     req.MaxGenerations,
			TargetError:        req.TargetError,
			Seed:               req.Seed,
			Workers:            req.Workers,
		},
		ErrorHistory: history,
		Summary:      summary,
		Snapshot:     snapshot,
	})
	if err != nil {
		return TrainSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        run.RunID,
		Session:      sessionName,
		SnapshotID:   snapshot.ID,
		Generations:  ran,
		Seed:         req.Seed,
		FinalError:   float64(run.FinalError),
		Converged:    run.Converged,
		CreatedAtUTC: run.CreatedAtUTC,
	}); err != nil {
		return TrainSummary{}, err
	}
	out.ArtifactsDir = filepath.Clean(runDir)
	return out, nil
}

func (c *Client) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	snapshot, err := c.lookupSnapshot(ctx, req)
	if err != nil {
		return Prediction{}, err
	}
	network, err := nn.FromSnapshot(snapshot)
	if err != nil {
		return Prediction{}, err
	}
	if req.Round {
		network.RoundOutputs()
	}
	outputs, err := network.Test(req.Inputs)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{
		SnapshotID: snapshot.ID,
		Outputs:    outputs,
		Decisions:  nn.Round(outputs),
	}, nil
}

// Export writes the snapshot with the given id, or the snapshot of the run
// with that id, to path as JSON.
func (c *Client) Export(ctx context.Context, id, path string) (model.SnapshotSummary, error) {
	if id == "" {
		return model.SnapshotSummary{}, errors.New("export requires a snapshot or run id")
	}
	if path == "" {
		return model.SnapshotSummary{}, errors.New("export requires an output path")
	}
	snapshot, err := c.lookupSnapshot(ctx, PredictRequest{SnapshotID: id})
	if err != nil {
		snapshot, err = c.lookupSnapshot(ctx, PredictRequest{RunID: id})
		if err != nil {
			return model.SnapshotSummary{}, fmt.Errorf("snapshot not found for id: %s", id)
		}
	}

	data, err := storage.EncodeSnapshot(snapshot)
	if err != nil {
		return model.SnapshotSummary{}, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.SnapshotSummary{}, err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.SnapshotSummary{}, err
	}
	return summarizeSnapshot(snapshot), nil
}

// Import stores the snapshot file at path after checking that it rebuilds
// into a network. A snapshot without an id is given a new one.
func (c *Client) Import(ctx context.Context, path string) (model.SnapshotSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return model.SnapshotSummary{}, err
	}
	snapshot, err := readSnapshotFile(path)
	if err != nil {
		return model.SnapshotSummary{}, err
	}
	if _, err := nn.FromSnapshot(snapshot); err != nil {
		return model.SnapshotSummary{}, fmt.Errorf("import %s: %w", path, err)
	}
	if snapshot.ID == "" {
		snapshot.ID = storage.NewID()
	}
	if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
		return model.SnapshotSummary{}, err
	}
	return summarizeSnapshot(snapshot), nil
}

// Runs lists runs newest first: those in the store, plus runs only known
// from the artifacts index (written by a process whose store is gone).
func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(runs))
	out := make([]RunItem, 0, len(runs)+len(entries))
	for _, run := range runs {
		seen[run.RunID] = struct{}{}
		out = append(out, runItemFromRun(run))
	}
	for _, e := range entries {
		if _, ok := seen[e.RunID]; ok {
			continue
		}
		out = append(out, runItemFromIndex(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RunDetail is one run together with the config recorded in its artifacts,
// when artifacts were written.
type RunDetail struct {
	Run    RunItem
	Config *stats.RunConfig
}

// Run looks a run up in the store, then in the artifacts index.
func (c *Client) Run(ctx context.Context, runID string) (RunDetail, error) {
	if runID == "" {
		return RunDetail{}, errors.New("run lookup requires run id")
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunDetail{}, err
	}

	var detail RunDetail
	found := false
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok {
		detail.Run = runItemFromRun(run)
		found = true
	} else {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return RunDetail{}, err
		}
		for _, e := range entries {
			if e.RunID == runID {
				detail.Run = runItemFromIndex(e)
				found = true
				break
			}
		}
	}
	if !found {
		return RunDetail{}, fmt.Errorf("run not found: %s", runID)
	}

	config, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok {
		detail.Config = &config
	}
	return detail, nil
}

// DeleteSnapshot removes a stored snapshot. Runs that reference it keep
// their artifacts copy.
func (c *Client) DeleteSnapshot(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("delete requires a snapshot id")
	}
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	_, ok, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("snapshot not found: %s", id)
	}
	return c.store.DeleteSnapshot(ctx, id)
}

// ErrorHistory returns the per-generation total error of a run, from the
// store or else from the run's artifacts.
func (c *Client) ErrorHistory(ctx context.Context, runID string) ([]float64, error) {
	if runID == "" {
		return nil, errors.New("error history requires run id")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetErrorHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return history, nil
	}
	history, ok, err = stats.ReadErrorHistory(c.artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("error history not found for run id: %s", runID)
	}
	return history, nil
}

func (c *Client) Snapshots(ctx context.Context) ([]model.SnapshotSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	return c.store.ListSnapshots(ctx)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) prepareNetwork(ctx context.Context, req TrainRequest, sessionName string, session *nn.TrainingSession) (*nn.Network, error) {
	opts := []nn.Option{nn.WithSeed(req.Seed), nn.WithWorkers(req.Workers)}

	if req.ContinueSnapshotID != "" {
		snapshot, ok, err := c.store.GetSnapshot(ctx, req.ContinueSnapshotID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("snapshot not found: %s", req.ContinueSnapshotID)
		}
		network, err := nn.FromSnapshot(snapshot, opts...)
		if err != nil {
			return nil, err
		}
		if req.Name != "" {
			network.Name = req.Name
		}
		return network, nil
	}

	unit := session.Units[0]
	shape := nn.Shape{
		Inputs:        req.Inputs,
		HiddenLayers:  req.HiddenLayers,
		HiddenNeurons: req.HiddenNeurons,
		Outputs:       req.Outputs,
		Softmax:       req.Softmax,
	}
	if shape.Inputs == 0 {
		shape.Inputs = len(unit.Inputs)
	}
	if shape.Outputs == 0 {
		shape.Outputs = len(unit.Desired)
	}
	if shape.HiddenLayers == 0 && shape.HiddenNeurons == 0 {
		shape.HiddenLayers = 1
	}
	if shape.HiddenLayers > 0 && shape.HiddenNeurons == 0 {
		shape.HiddenNeurons = nn.RecommendedHiddenNeurons(shape.HiddenLayers, shape.Inputs)
	}

	name := req.Name
	if name == "" {
		name = sessionName
	}
	opts = append(opts, nn.WithName(name))
	if req.HiddenActivation != "" {
		opts = append(opts, nn.WithHiddenActivation(req.HiddenActivation))
	}
	if req.OutputActivation != "" {
		opts = append(opts, nn.WithOutputActivation(req.OutputActivation))
	}
	return nn.Build(shape, opts...)
}

func (c *Client) lookupSnapshot(ctx context.Context, req PredictRequest) (model.Snapshot, error) {
	switch {
	case req.SnapshotPath != "":
		return readSnapshotFile(req.SnapshotPath)
	case req.SnapshotID != "":
		if err := c.ensureStore(ctx); err != nil {
			return model.Snapshot{}, err
		}
		snapshot, ok, err := c.store.GetSnapshot(ctx, req.SnapshotID)
		if err != nil {
			return model.Snapshot{}, err
		}
		if !ok {
			return model.Snapshot{}, fmt.Errorf("snapshot not found: %s", req.SnapshotID)
		}
		return snapshot, nil
	case req.RunID != "":
		if err := c.ensureStore(ctx); err != nil {
			return model.Snapshot{}, err
		}
		run, ok, err := c.store.GetRun(ctx, req.RunID)
		if err != nil {
			return model.Snapshot{}, err
		}
		if ok {
			snapshot, ok, err := c.store.GetSnapshot(ctx, run.SnapshotID)
			if err != nil {
				return model.Snapshot{}, err
			}
			if ok {
				return snapshot, nil
			}
		}
		snapshot, ok, err := stats.ReadRunSnapshot(c.artifactsDir, req.RunID)
		if err != nil {
			return model.Snapshot{}, err
		}
		if !ok {
			return model.Snapshot{}, fmt.Errorf("snapshot not found for run id: %s", req.RunID)
		}
		return snapshot, nil
	default:
		return model.Snapshot{}, errors.New("predict requires snapshot id, run id or snapshot path")
	}
}

// resolveSession returns the CSV session when a path is given, else the
// named built-in session.
func resolveSession(req TrainRequest) (*nn.TrainingSession, string, error) {
	if req.SessionCSVPath != "" {
		if req.Inputs <= 0 || req.Outputs <= 0 {
			return nil, "", errors.New("csv sessions require inputs and outputs")
		}
		session, err := sessions.LoadCSV(req.SessionCSVPath, req.Inputs, req.Outputs)
		if err != nil {
			return nil, "", err
		}
		return session, "csv:" + filepath.Base(req.SessionCSVPath), nil
	}

	name := strings.TrimSpace(strings.ToLower(req.Session))
	if name == "" {
		name = defaultSession
	}
	session, err := sessions.Get(name)
	if err != nil {
		return nil, "", err
	}
	return session, name, nil
}

func readSnapshotFile(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	snapshot, err := storage.DecodeSnapshot(data)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return snapshot, nil
}

func runItemFromRun(run model.TrainingRun) RunItem {
	return RunItem{
		RunID:        run.RunID,
		SnapshotID:   run.SnapshotID,
		CreatedAtUTC: run.CreatedAtUTC,
		Session:      run.Session,
		Seed:         run.Seed,
		Generations:  run.GenerationsRun,
		FinalError:   float64(run.FinalError),
		Converged:    run.Converged,
	}
}

func runItemFromIndex(e stats.RunIndexEntry) RunItem {
	return RunItem{
		RunID:        e.RunID,
		SnapshotID:   e.SnapshotID,
		CreatedAtUTC: e.CreatedAtUTC,
		Session:      e.Session,
		Seed:         e.Seed,
		Generations:  e.Generations,
		FinalError:   e.FinalError,
		Converged:    e.Converged,
	}
}

func createdAt(item RunItem) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func summarizeSnapshot(s model.Snapshot) model.SnapshotSummary {
	return model.SnapshotSummary{
		ID:          s.ID,
		Name:        s.Name,
		Generations: s.Generations,
		TotalError:  s.TotalError,
	}
}
