// Package evolvo is the public entry point for running challenges and
// inspecting the runs they leave behind.
package evolvo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"evolvo/internal/challenge"
	"evolvo/internal/evo"
	"evolvo/internal/model"
	"evolvo/internal/platform"
	"evolvo/internal/stats"
	"evolvo/internal/storage"
	"evolvo/internal/telemetry"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultSQLitePath   = "evolvo.db"
	defaultBadgerDir    = "evolvo.badger"
	defaultRunsLimit    = 20
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// MetricsRegistry receives the engine collectors when set.
	MetricsRegistry *prometheus.Registry
}

type Client struct {
	store   storage.Store
	runner  *platform.Runner
	metrics *telemetry.Metrics
	logger  *slog.Logger

	artifactsDir string
	exportsDir   string
}

type Window struct {
	Min float64
	Max float64
}

// RunRequest configures one run. Zero engine options fall back to 100
// generations, 2 parents, 20 children; a zero Seed draws a fresh one.
type RunRequest struct {
	RunID       string
	Challenge   string
	Strategy    string
	Generations int
	Parents     int
	Children    int
	LogLevel    int
	Seed        int64
	Start       []float64
	Target      []float64
	Window      *Window
	Step        float64
	MaxRestarts int
	MaxAttempts int
}

type RunSummary struct {
	RunID            string
	Challenge        string
	Strategy         string
	Seed             int64
	ArtifactsDir     string
	BestByGeneration []float64
	Winner           string
	Coordinates      []float64
	Magnitude        float64
	WinnerScore      float64
}

type SweepRequest struct {
	ID      string
	Workers int
	Runs    []RunRequest
}

type SweepItem struct {
	Summary RunSummary
	Error   string
}

type SweepSummary struct {
	ID          string
	Runs        []SweepItem
	SuccessRuns int
	ScoreMean   float64
	ScoreStd    float64
	ScoreMin    float64
	ScoreMax    float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC time.Time
	Challenge    string
	Strategy     string
	Seed         int64
	Generations  int
	Children     int
	Winner       string
	WinnerScore  float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DeleteRequest struct {
	RunID string
	// KeepArtifacts leaves the artifacts directory in place.
	KeepArtifacts bool
}

type ChallengeItem struct {
	Name        string
	Description string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		switch storeKind {
		case storage.KindSQLite:
			dbPath = defaultSQLitePath
		case storage.KindBadger:
			dbPath = defaultBadgerDir
		}
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath, logger)
	if err != nil {
		return nil, err
	}

	var metrics *telemetry.Metrics
	if opts.MetricsRegistry != nil {
		metrics, err = telemetry.NewMetrics(opts.MetricsRegistry)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return &Client{
		store:        store,
		metrics:      metrics,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureRunner(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	runner, err := c.ensureRunner(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	cfg, err := toRunConfig(req)
	if err != nil {
		return RunSummary{}, err
	}
	result, err := runner.Run(ctx, cfg)
	if err != nil {
		return RunSummary{}, err
	}
	return toRunSummary(result), nil
}

// Sweep runs every request concurrently. Per-run failures are reported in
// the summary; invalid requests fail the whole sweep before anything runs.
func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	runner, err := c.ensureRunner(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	configs := make([]platform.RunConfig, 0, len(req.Runs))
	for i, runReq := range req.Runs {
		cfg, err := toRunConfig(runReq)
		if err != nil {
			return SweepSummary{}, fmt.Errorf("sweep run %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}

	result, err := runner.Sweep(ctx, platform.SweepConfig{ID: req.ID, Workers: req.Workers, Runs: configs})
	if err != nil && result.ID == "" {
		return SweepSummary{}, err
	}

	summary := SweepSummary{
		ID:          result.ID,
		Runs:        make([]SweepItem, 0, len(result.Runs)),
		SuccessRuns: result.Report.SuccessRuns,
		ScoreMean:   result.Report.ScoreMean,
		ScoreStd:    result.Report.ScoreStd,
		ScoreMin:    result.Report.ScoreMin,
		ScoreMax:    result.Report.ScoreMax,
	}
	for _, run := range result.Runs {
		item := SweepItem{}
		if run.Err != nil {
			item.Error = run.Err.Error()
			item.Summary.Challenge = run.Config.Challenge
			item.Summary.Seed = run.Config.Seed
		} else {
			item.Summary = toRunSummary(run.Result)
		}
		summary.Runs = append(summary.Runs, item)
	}
	return summary, err
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultRunsLimit
	}
	if _, err := c.ensureRunner(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:        r.ID,
			CreatedAtUTC: r.CreatedAtUTC,
			Challenge:    r.Challenge,
			Strategy:     r.Strategy,
			Seed:         r.Seed,
			Generations:  r.Options.NumGenerations,
			Children:     r.Options.NumChildren,
			Winner:       r.Winner,
			WinnerScore:  r.WinnerScore,
		})
	}
	return out, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	record, err := c.lookupRun(ctx, req.RunID, req.Latest, req.Limit, "fitness history")
	if err != nil {
		return nil, err
	}
	history := record.BestByGeneration
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	record, err := c.lookupRun(ctx, req.RunID, req.Latest, req.Limit, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics := record.Diagnostics
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Delete removes a run from the store and, unless asked otherwise, its
// artifacts directory.
func (c *Client) Delete(ctx context.Context, req DeleteRequest) error {
	if req.RunID == "" {
		return errors.New("delete requires run id")
	}
	if req.RunID == "." || req.RunID == ".." || filepath.Base(req.RunID) != req.RunID {
		return fmt.Errorf("invalid run id: %q", req.RunID)
	}
	if _, err := c.ensureRunner(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteRun(ctx, req.RunID); err != nil {
		return err
	}
	if req.KeepArtifacts {
		return nil
	}
	return os.RemoveAll(filepath.Join(c.artifactsDir, req.RunID))
}

func (c *Client) Challenges() []ChallengeItem {
	if c.runner != nil {
		return toChallengeItems(c.runner.Challenges())
	}
	return toChallengeItems(platform.NewRunner(platform.Config{}).Challenges())
}

func (c *Client) lookupRun(ctx context.Context, runID string, latest bool, limit int, what string) (model.RunRecord, error) {
	if runID != "" && latest {
		return model.RunRecord{}, errors.New("use either run id or latest")
	}
	if limit < 0 {
		return model.RunRecord{}, errors.New("limit must be >= 0")
	}
	if _, err := c.ensureRunner(ctx); err != nil {
		return model.RunRecord{}, err
	}

	if latest {
		records, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return model.RunRecord{}, err
		}
		if len(records) == 0 {
			return model.RunRecord{}, errors.New("no runs available")
		}
		return records[0], nil
	}
	if runID == "" {
		return model.RunRecord{}, fmt.Errorf("%s requires run id or latest", what)
	}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%s not found for run id: %s", what, runID)
	}
	return record, nil
}

func (c *Client) ensureRunner(ctx context.Context) (*platform.Runner, error) {
	if c.runner != nil {
		return c.runner, nil
	}
	r := platform.NewRunner(platform.Config{
		Store:        c.store,
		ArtifactsDir: c.artifactsDir,
		Metrics:      c.metrics,
		Logger:       c.logger,
	})
	if err := r.Init(ctx); err != nil {
		return nil, err
	}
	c.runner = r
	return c.runner, nil
}

func toRunConfig(req RunRequest) (platform.RunConfig, error) {
	if req.Challenge == "" {
		req.Challenge = "x-target"
	}
	if req.Generations == 0 {
		req.Generations = evo.DefaultNumGenerations
	}
	if req.Parents == 0 {
		req.Parents = evo.DefaultNumParents
	}
	if req.Children == 0 {
		req.Children = evo.DefaultNumChildren
	}
	options, err := evo.NewOptions(req.Generations, req.Parents, req.Children, req.LogLevel)
	if err != nil {
		return platform.RunConfig{}, err
	}
	cfg := platform.RunConfig{
		RunID:       req.RunID,
		Challenge:   req.Challenge,
		Strategy:    req.Strategy,
		Options:     options,
		Seed:        req.Seed,
		Start:       req.Start,
		Target:      req.Target,
		Step:        req.Step,
		MaxRestarts: req.MaxRestarts,
		MaxAttempts: req.MaxAttempts,
	}
	if req.Window != nil {
		cfg.Window = &challenge.Window{Min: req.Window.Min, Max: req.Window.Max}
	}
	return cfg, nil
}

func toRunSummary(result platform.RunResult) RunSummary {
	r := result.Record
	return RunSummary{
		RunID:            r.ID,
		Challenge:        r.Challenge,
		Strategy:         r.Strategy,
		Seed:             r.Seed,
		ArtifactsDir:     result.ArtifactsDir,
		BestByGeneration: append([]float64(nil), r.BestByGeneration...),
		Winner:           r.Winner,
		Coordinates:      append([]float64(nil), r.Coordinates...),
		Magnitude:        r.Magnitude,
		WinnerScore:      r.WinnerScore,
	}
}

func toChallengeItems(challenges []challenge.Challenge) []ChallengeItem {
	out := make([]ChallengeItem, 0, len(challenges))
	for _, ch := range challenges {
		out = append(out, ChallengeItem{Name: ch.Name(), Description: ch.Description()})
	}
	return out
}
