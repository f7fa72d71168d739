package platform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"evolvo/internal/stats"
)

const DefaultSweepWorkers = 4

type SweepConfig struct {
	ID      string
	Workers int
	Runs    []RunConfig
}

type SweepRunResult struct {
	Config RunConfig
	Result RunResult
	Err    error
}

type SweepResult struct {
	ID     string
	Runs   []SweepRunResult
	Report stats.SweepReport
}

// Sweep executes independent runs with at most Workers in flight. A failed
// run is reported in its slot and does not stop the others; cancelling ctx
// stops the sweep.
func (r *Runner) Sweep(ctx context.Context, cfg SweepConfig) (SweepResult, error) {
	if !r.Started() {
		return SweepResult{}, ErrNotInitialized
	}
	if len(cfg.Runs) == 0 {
		return SweepResult{}, fmt.Errorf("sweep has no runs")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultSweepWorkers
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	if id == "." || id == ".." || filepath.Base(id) != id {
		return SweepResult{}, fmt.Errorf("invalid sweep id: %q", id)
	}

	startedAt := r.now().UTC()
	results := make([]SweepRunResult, len(cfg.Runs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, runCfg := range cfg.Runs {
		if ctx.Err() != nil {
			results[i] = SweepRunResult{Config: runCfg, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			result, err := r.Run(ctx, runCfg)
			results[i] = SweepRunResult{Config: runCfg, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	reportRuns := make([]stats.SweepRun, len(results))
	for i, res := range results {
		entry := stats.SweepRun{
			RunID:       res.Result.Record.ID,
			Challenge:   res.Config.Challenge,
			Seed:        res.Result.Record.Seed,
			WinnerScore: res.Result.Record.WinnerScore,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			entry.Seed = res.Config.Seed
		}
		reportRuns[i] = entry
	}
	report := stats.BuildSweepReport(id, workers, reportRuns)
	report.StartedAtUTC = startedAt.Format(time.RFC3339Nano)
	report.CompletedAtUTC = r.now().UTC().Format(time.RFC3339Nano)

	if r.artifactsDir != "" {
		if err := stats.WriteSweepReport(r.artifactsDir, report); err != nil {
			return SweepResult{}, fmt.Errorf("write sweep report %s: %w", id, err)
		}
	}
	r.logger.InfoContext(ctx, "sweep complete",
		slog.String("sweep_id", id),
		slog.Int("runs", report.TotalRuns),
		slog.Int("succeeded", report.SuccessRuns))

	result := SweepResult{ID: id, Runs: results, Report: report}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
