package platform

import (
	"context"

	"evolvo/internal/evo"
	"evolvo/internal/model"
)

// historyObserver records the per-generation summaries of a single run.
// The launcher calls it from the run goroutine only.
type historyObserver struct {
	best        []float64
	diagnostics []model.GenerationDiagnostics
}

func (h *historyObserver) ObserveGeneration(_ context.Context, stats evo.GenerationStats) {
	h.best = append(h.best, stats.BestScore)
	h.diagnostics = append(h.diagnostics, model.GenerationDiagnostics{
		Generation: stats.Generation,
		Candidates: stats.Candidates,
		BestScore:  stats.BestScore,
		MeanScore:  stats.MeanScore,
		WorstScore: stats.WorstScore,
		Best:       stats.Best,
	})
}
