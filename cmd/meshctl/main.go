package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"neuralmesh/internal/nn"
	"neuralmesh/internal/sessions"
	"neuralmesh/internal/storage"
	meshapi "neuralmesh/pkg/neuralmesh"
)

func main() {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "import":
		return runImport(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "snapshots":
		return runSnapshots(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	case "sessions":
		return runSessions(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	kind      *string
	dbPath    *string
	artifacts *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:      fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", envOrDefault(envDBPath, defaultDBPath), "sqlite database path"),
		artifacts: fs.String("artifacts", envOrDefault(envArtifactsDir, defaultArtifactsDir), "run artifacts directory"),
	}
}

func (f storeFlags) client(ctx context.Context, progress func(uint64, float32)) (*meshapi.Client, error) {
	client, err := meshapi.New(meshapi.Options{
		StoreKind:    *f.kind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifacts,
		Progress:     progress,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("initialized store=%s\n", *sf.kind)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional JSON run config; explicitly set flags override it")
	name := fs.String("name", "", "network name (defaults to the session name)")
	sessionName := fs.String("session", "xor", "built-in session: "+strings.Join(sessions.Names(), "|"))
	csvPath := fs.String("csv", "", "train on a CSV session instead (requires -inputs and -outputs)")
	continueID := fs.String("continue", "", "continue training from a stored snapshot id")
	inputs := fs.Int("inputs", 0, "input neurons (0 infers from the session)")
	hiddenLayers := fs.Int("hidden-layers", 1, "hidden layer count")
	hiddenNeurons := fs.Int("hidden-neurons", 0, "neurons per hidden layer (0 uses the recommended count)")
	outputs := fs.Int("outputs", 0, "output neurons (0 infers from the session)")
	softmax := fs.Bool("softmax", false, "use a softmax output layer")
	hiddenActivation := fs.String("hidden-activation", nn.ActivationSigmoid, "hidden activation: "+strings.Join(nn.ListActivations(), "|"))
	outputActivation := fs.String("output-activation", nn.ActivationSigmoid, "output activation (ignored with -softmax)")
	learningRate := fs.Float64("lr", float64(nn.DefaultLearningRate), "learning rate")
	generations := fs.Int("gens", 10000, "generation cap (0 runs until -target is reached)")
	target := fs.Float64("target", 0, "stop once the total error is at or below this value (0 disables)")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 1, "goroutines per layer during forward propagation")
	noArtifacts := fs.Bool("no-artifacts", false, "skip writing run artifacts")
	verbose := fs.Bool("verbose", false, "log every generation")
	jsonOut := fs.Bool("json", false, "emit the summary as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultTrainRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = meshapi.TrainRequest{
			Name:               *name,
			Session:            *sessionName,
			SessionCSVPath:     *csvPath,
			ContinueSnapshotID: *continueID,
			Inputs:             *inputs,
			HiddenLayers:       *hiddenLayers,
			HiddenNeurons:      *hiddenNeurons,
			Outputs:            *outputs,
			Softmax:            *softmax,
			HiddenActivation:   *hiddenActivation,
			OutputActivation:   *outputActivation,
			LearningRate:       float32(*learningRate),
			MaxGenerations:     *generations,
			TargetError:        float32(*target),
			Seed:               *seed,
			Workers:            *workers,
			SkipArtifacts:      *noArtifacts,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"name":              *name,
			"session":           *sessionName,
			"csv":               *csvPath,
			"continue":          *continueID,
			"inputs":            *inputs,
			"hidden-layers":     *hiddenLayers,
			"hidden-neurons":    *hiddenNeurons,
			"outputs":           *outputs,
			"softmax":           *softmax,
			"hidden-activation": *hiddenActivation,
			"output-activation": *outputActivation,
			"lr":                *learningRate,
			"gens":              *generations,
			"target":            *target,
			"seed":              *seed,
			"workers":           *workers,
			"no-artifacts":      *noArtifacts,
		})
	}
	if req.MaxGenerations < 0 {
		return errors.New("gens must be >= 0")
	}
	if req.MaxGenerations == 0 && req.TargetError <= 0 {
		return errors.New("gens=0 requires a positive target")
	}

	var progress func(uint64, float32)
	if *verbose {
		progress = func(generation uint64, totalError float32) {
			log.Printf("generation=%d total_error=%.6f", generation, totalError)
		}
	}
	client, err := sf.client(ctx, progress)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		type trainOutput struct {
			RunID          string    `json:"run_id"`
			SnapshotID     string    `json:"snapshot_id"`
			ArtifactsDir   string    `json:"artifacts_dir,omitempty"`
			GenerationsRun int       `json:"generations_run"`
			FinalError     float32   `json:"final_error"`
			Converged      bool      `json:"converged"`
			MeanError      float64   `json:"mean_error"`
			StdError       float64   `json:"std_error"`
			Improvement    float64   `json:"improvement"`
			WeightNorms    []float64 `json:"weight_norms"`
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trainOutput{
			RunID:          summary.RunID,
			SnapshotID:     summary.SnapshotID,
			ArtifactsDir:   summary.ArtifactsDir,
			GenerationsRun: summary.GenerationsRun,
			FinalError:     summary.FinalError,
			Converged:      summary.Converged,
			MeanError:      summary.Stats.Mean,
			StdError:       summary.Stats.Std,
			Improvement:    summary.Stats.Improvement,
			WeightNorms:    summary.WeightNorms,
		})
	}

	fmt.Printf("run completed run_id=%s snapshot_id=%s generations=%d final_error=%.6f converged=%t\n",
		summary.RunID, summary.SnapshotID, summary.GenerationsRun, summary.FinalError, summary.Converged)
	fmt.Printf("error initial=%.6f best=%.6f mean=%.6f std=%.6f improvement=%.6f\n",
		summary.Stats.Initial, summary.Stats.Best, summary.Stats.Mean, summary.Stats.Std, summary.Stats.Improvement)
	if summary.ArtifactsDir != "" {
		fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	}
	return nil
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	snapshotID := fs.String("snapshot", "", "stored snapshot id")
	runID := fs.String("run-id", "", "run id whose artifact snapshot to use")
	file := fs.String("file", "", "exported snapshot file")
	inputsRaw := fs.String("inputs", "", "comma separated input values in [0, 1]")
	round := fs.Bool("round", false, "switch the output layer to hard decisions")
	jsonOut := fs.Bool("json", false, "emit the prediction as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	selected := 0
	for _, v := range []string{*snapshotID, *runID, *file} {
		if v != "" {
			selected++
		}
	}
	if selected != 1 {
		return errors.New("predict requires exactly one of --snapshot, --run-id or --file")
	}
	inputs, err := parseInputs(*inputsRaw)
	if err != nil {
		return err
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	prediction, err := client.Predict(ctx, meshapi.PredictRequest{
		SnapshotID:   *snapshotID,
		RunID:        *runID,
		SnapshotPath: *file,
		Inputs:       inputs,
		Round:        *round,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"snapshot_id": prediction.SnapshotID,
			"outputs":     prediction.Outputs,
			"decisions":   prediction.Decisions,
		})
	}
	fmt.Printf("outputs=%s decisions=%v\n", formatOutputs(prediction.Outputs), prediction.Decisions)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id or run id")
	out := fs.String("out", "", "output file")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *out == "" {
		return errors.New("export requires --id and --out")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, *id, *out)
	if err != nil {
		return err
	}
	fmt.Printf("exported snapshot_id=%s generations=%d to=%s\n", summary.ID, summary.Generations, *out)
	return nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "", "snapshot file to import")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}
	if *in == "" {
		return errors.New("import requires --in")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Import(ctx, *in)
	if err != nil {
		return err
	}
	fmt.Printf("imported snapshot_id=%s name=%s generations=%d\n", summary.ID, summary.Name, summary.Generations)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s session=%s seed=%d generations=%d final_error=%.6f converged=%t snapshot_id=%s\n",
			item.RunID, item.CreatedAtUTC, item.Session, item.Seed, item.Generations, item.FinalError, item.Converged, item.SnapshotID)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "max generations to print (0 prints all)")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *latest {
		items, err := client.Runs(ctx, 1)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.New("no runs available")
		}
		*runID = items[0].RunID
	}
	if *runID == "" {
		return errors.New("history requires --run-id or --latest")
	}

	history, err := client.ErrorHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if *limit > 0 && len(history) > *limit {
		history = history[:*limit]
	}
	for i, value := range history {
		fmt.Printf("generation=%d total_error=%.6f\n", i+1, value)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit the run as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires --run-id")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	item := detail.Run
	fmt.Printf("run_id=%s created_at=%s session=%s seed=%d generations=%d final_error=%.6f converged=%t snapshot_id=%s\n",
		item.RunID, item.CreatedAtUTC, item.Session, item.Seed, item.Generations, item.FinalError, item.Converged, item.SnapshotID)
	if cfg := detail.Config; cfg != nil {
		fmt.Printf("config inputs=%d hidden_layers=%d hidden_neurons=%d outputs=%d softmax=%t hidden_activation=%s output_activation=%s learning_rate=%.4f max_generations=%d target_error=%.6f workers=%d\n",
			cfg.Inputs, cfg.HiddenLayers, cfg.HiddenNeurons, cfg.Outputs, cfg.Softmax, cfg.HiddenActivation, cfg.OutputActivation,
			cfg.LearningRate, cfg.MaxGenerations, cfg.TargetError, cfg.Workers)
	} else {
		fmt.Println("config unavailable (artifacts not written)")
	}
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id to delete")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("delete requires --id")
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.DeleteSnapshot(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("deleted snapshot_id=%s\n", *id)
	return nil
}

func runSnapshots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit snapshots as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snapshots, err := client.Snapshots(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	}
	if len(snapshots) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}
	for _, s := range snapshots {
		fmt.Printf("snapshot_id=%s name=%s generations=%d total_error=%.6f\n", s.ID, s.Name, s.Generations, s.TotalError)
	}
	return nil
}

func runSessions(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range sessions.Names() {
		session, err := sessions.Get(name)
		if err != nil {
			return err
		}
		fmt.Printf("session=%s units=%d\n", name, len(session.Units))
	}
	return nil
}

func parseInputs(raw string) ([]float32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("predict requires --inputs")
	}
	parts := strings.Split(raw, ",")
	out := make([]float32, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("parse input %d: %w", i+1, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func formatOutputs(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: meshctl <init|train|predict|export|import|runs|show|history|snapshots|delete|sessions> [flags]", msg)
}
