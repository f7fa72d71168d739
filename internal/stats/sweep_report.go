package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const sweepsDir = "sweeps"

// SweepRun is one member run of a sweep.
type SweepRun struct {
	RunID       string  `json:"run_id"`
	Challenge   string  `json:"challenge"`
	Seed        int64   `json:"seed"`
	WinnerScore float64 `json:"winner_score"`
	Error       string  `json:"error,omitempty"`
}

// SweepReport aggregates the winner scores of the successful runs.
type SweepReport struct {
	ID             string     `json:"id"`
	StartedAtUTC   string     `json:"started_at_utc,omitempty"`
	CompletedAtUTC string     `json:"completed_at_utc,omitempty"`
	Workers        int        `json:"workers"`
	TotalRuns      int        `json:"total_runs"`
	SuccessRuns    int        `json:"success_runs"`
	ScoreMean      float64    `json:"score_mean"`
	ScoreStd       float64    `json:"score_std"`
	ScoreMin       float64    `json:"score_min"`
	ScoreMax       float64    `json:"score_max"`
	Runs           []SweepRun `json:"runs"`
}

// BuildSweepReport fills the aggregate fields from runs.
func BuildSweepReport(id string, workers int, runs []SweepRun) SweepReport {
	report := SweepReport{
		ID:        id,
		Workers:   workers,
		TotalRuns: len(runs),
		Runs:      append([]SweepRun(nil), runs...),
	}
	scores := make([]float64, 0, len(runs))
	for _, run := range runs {
		if run.Error == "" {
			scores = append(scores, run.WinnerScore)
		}
	}
	report.SuccessRuns = len(scores)
	report.ScoreMean, report.ScoreStd, report.ScoreMin, report.ScoreMax = describe(scores)
	return report
}

func WriteSweepReport(baseDir string, report SweepReport) error {
	if report.ID == "" {
		return fmt.Errorf("sweep id is required")
	}
	path := sweepReportPath(baseDir, report.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, report)
}

func ReadSweepReport(baseDir, id string) (SweepReport, bool, error) {
	if id == "" {
		return SweepReport{}, false, fmt.Errorf("sweep id is required")
	}
	var report SweepReport
	ok, err := readJSON(sweepReportPath(baseDir, id), &report)
	return report, ok, err
}

func sweepReportPath(baseDir, id string) string {
	return filepath.Join(baseDir, sweepsDir, id+".json")
}

// describe returns mean, population std, min and max. Non-finite values are
// skipped.
func describe(values []float64) (mean, std, lo, hi float64) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(finite)
	lo, hi = finite[0], finite[len(finite)-1]
	for i, v := range finite {
		mean += (v - mean) / float64(i+1)
	}
	var squares float64
	for _, v := range finite {
		d := v - mean
		squares += d * d
	}
	std = math.Sqrt(squares / float64(len(finite)))
	return mean, std, lo, hi
}
