// Package platform runs named challenges, persists their summaries and
// artifacts, and fans independent runs out over a bounded worker pool.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evolvo/internal/challenge"
	"evolvo/internal/evo"
	"evolvo/internal/model"
	"evolvo/internal/rng"
	"evolvo/internal/stats"
	"evolvo/internal/storage"
	"evolvo/internal/telemetry"
)

var tracer = otel.Tracer("evolvo.platform")

var (
	ErrNotInitialized = errors.New("runner is not initialized")
	ErrRunActive      = errors.New("run already active")
	ErrRunNotActive   = errors.New("run not active")
)

type Config struct {
	Store    storage.Store
	Registry *challenge.Registry
	// ArtifactsDir receives one directory per run; empty disables artifacts.
	ArtifactsDir string
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger
	Tracer       trace.Tracer
	Now          func() time.Time
}

// RunConfig selects a challenge and the engine settings for one run. A zero
// Seed draws a fresh one, which is reported back in the record.
type RunConfig struct {
	RunID       string
	Challenge   string
	Strategy    string
	Options     evo.Options
	Seed        int64
	Start       []float64
	Target      []float64
	Window      *challenge.Window
	Step        float64
	MaxRestarts int
	MaxAttempts int
}

type RunResult struct {
	Record       model.RunRecord
	ArtifactsDir string
}

type Runner struct {
	store        storage.Store
	registry     *challenge.Registry
	artifactsDir string
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc

	// indexMu serializes read-modify-write of the run index file.
	indexMu sync.Mutex
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		store:        cfg.Store,
		registry:     cfg.Registry,
		artifactsDir: cfg.ArtifactsDir,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		tracer:       cfg.Tracer,
		now:          cfg.Now,
		runs:         make(map[string]context.CancelFunc),
	}
	if r.registry == nil {
		r.registry = challenge.NewDefaultRegistry()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = tracer
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Runner) Init(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("store is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.store.Init(ctx); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Runner) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

func (r *Runner) Store() storage.Store {
	return r.store
}

func (r *Runner) ArtifactsDir() string {
	return r.artifactsDir
}

func (r *Runner) Challenges() []challenge.Challenge {
	names := r.registry.Names()
	out := make([]challenge.Challenge, 0, len(names))
	for _, name := range names {
		c, err := r.registry.Get(name)
		if err == nil {
			out = append(out, c)
		}
	}
	return out
}

// Run executes one challenge run to completion and persists its record.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if !r.Started() {
		return RunResult{}, ErrNotInitialized
	}
	target, err := r.registry.Get(cfg.Challenge)
	if err != nil {
		return RunResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	var src *rng.Source
	if cfg.Seed == 0 {
		src = rng.New()
	} else {
		src = rng.NewSeeded(cfg.Seed)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.registerRun(runID, cancel); err != nil {
		return RunResult{}, err
	}
	defer r.unregisterRun(runID)

	ctx, span := r.tracer.Start(ctx, "platform.Runner.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.challenge", target.Name()),
		attribute.Int64("run.seed", src.Seed()),
	))
	defer span.End()

	history := &historyObserver{}
	req := challenge.Request{
		Options:     cfg.Options,
		Strategy:    cfg.Strategy,
		Start:       cfg.Start,
		Target:      cfg.Target,
		Window:      cfg.Window,
		Step:        cfg.Step,
		MaxRestarts: cfg.MaxRestarts,
		MaxAttempts: cfg.MaxAttempts,
		Source:      src,
		Logger:      r.logger.With(slog.String("run_id", runID)),
		Observers:   []evo.Observer{history},
	}
	if r.metrics != nil {
		req.Observers = append(req.Observers, r.metrics.Observer(target.Name()))
		req.Recorder = r.metrics
	}

	started := r.now()
	outcome, err := target.Run(ctx, req)
	if r.metrics != nil {
		r.metrics.ObserveRun(target.Name(), r.now().Sub(started), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "run failed",
			slog.String("run_id", runID),
			slog.String("challenge", target.Name()),
			slog.String("error", err.Error()))
		return RunResult{}, fmt.Errorf("run %s: %w", runID, err)
	}

	record := model.RunRecord{
		VersionedRecord:  storage.CurrentVersion(),
		ID:               runID,
		CreatedAtUTC:     started.UTC(),
		Challenge:        outcome.Challenge,
		Strategy:         outcome.Strategy,
		Seed:             src.Seed(),
		Options:          toModelOptions(cfg.Options),
		Window:           toModelWindow(outcome.Window),
		Start:            outcome.Start,
		Target:           outcome.Target,
		BestByGeneration: history.best,
		Diagnostics:      history.diagnostics,
		Winner:           outcome.Winner,
		Coordinates:      outcome.Coordinates,
		Magnitude:        outcome.Magnitude,
		WinnerScore:      outcome.Score,
	}
	if err := r.store.SaveRun(ctx, record); err != nil {
		return RunResult{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	result := RunResult{Record: record}
	if r.artifactsDir != "" {
		dir, err := r.writeArtifacts(record, cfg)
		if err != nil {
			return RunResult{}, fmt.Errorf("write artifacts for run %s: %w", runID, err)
		}
		result.ArtifactsDir = dir
	}

	span.SetAttributes(attribute.Float64("run.winner_score", record.WinnerScore))
	r.logger.InfoContext(ctx, "run complete",
		slog.String("run_id", runID),
		slog.String("challenge", record.Challenge),
		slog.String("winner", record.Winner),
		slog.Float64("score", record.WinnerScore))
	return result, nil
}

// StopRun cancels an active run. The run returns context.Canceled at its
// next generation boundary.
func (r *Runner) StopRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	r.mu.RLock()
	cancel, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

func (r *Runner) ActiveRuns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Runner) registerRun(runID string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotInitialized
	}
	if _, exists := r.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	r.runs[runID] = cancel
	return nil
}

func (r *Runner) unregisterRun(runID string) {
	r.mu.Lock()
	delete(r.runs, runID)
	r.mu.Unlock()
}

func (r *Runner) writeArtifacts(record model.RunRecord, cfg RunConfig) (string, error) {
	dir, err := stats.WriteRunArtifacts(r.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          record.ID,
			Challenge:      record.Challenge,
			Strategy:       record.Strategy,
			Seed:           record.Seed,
			NumGenerations: record.Options.NumGenerations,
			NumParents:     record.Options.NumParents,
			NumChildren:    record.Options.NumChildren,
			LogLevel:       record.Options.LogLevel,
			Start:          record.Start,
			Target:         record.Target,
			Window:         record.Window,
			Step:           cfg.Step,
			MaxRestarts:    cfg.MaxRestarts,
			MaxAttempts:    cfg.MaxAttempts,
		},
		BestByGeneration:      record.BestByGeneration,
		GenerationDiagnostics: record.Diagnostics,
		Winner: stats.Winner{
			Description: record.Winner,
			Coordinates: record.Coordinates,
			Magnitude:   record.Magnitude,
			Score:       record.WinnerScore,
		},
	})
	if err != nil {
		return "", err
	}
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	err = stats.AppendRunIndex(r.artifactsDir, stats.RunIndexEntry{
		RunID:          record.ID,
		Challenge:      record.Challenge,
		Strategy:       record.Strategy,
		NumGenerations: record.Options.NumGenerations,
		NumChildren:    record.Options.NumChildren,
		Seed:           record.Seed,
		WinnerScore:    record.WinnerScore,
		CreatedAtUTC:   record.CreatedAtUTC.Format(time.RFC3339Nano),
	})
	return dir, err
}

func toModelOptions(o evo.Options) model.RunOptions {
	return model.RunOptions{
		NumGenerations: o.NumGenerations(),
		NumParents:     o.NumParents(),
		NumChildren:    o.NumChildren(),
		LogLevel:       o.LogLevel(),
	}
}

func toModelWindow(w *challenge.Window) *model.Window {
	if w == nil {
		return nil
	}
	return &model.Window{Min: w.Min, Max: w.Max}
}
