package evo

import (
	"context"
	"math"
)

// GenerationStats summarizes one ranked generation.
type GenerationStats struct {
	Generation int
	Budget     int
	Progress   float64
	Candidates int
	BestScore  float64
	MeanScore  float64
	WorstScore float64
	Best       string
}

// Observer is notified after every generation. Observers must not retain or
// modify phenotypes; they only see summaries.
type Observer interface {
	ObserveGeneration(ctx context.Context, stats GenerationStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, stats GenerationStats)

func (f ObserverFunc) ObserveGeneration(ctx context.Context, stats GenerationStats) {
	f(ctx, stats)
}

func summarize[P Phenotype[P]](coordinator *Coordinator, ranked []Result[P]) GenerationStats {
	stats := GenerationStats{
		Generation: coordinator.Generation(),
		Budget:     coordinator.Budget(),
		Progress:   coordinator.Progress(),
		Candidates: len(ranked),
	}
	if len(ranked) == 0 {
		return stats
	}
	stats.BestScore = ranked[0].Score
	stats.Best = ranked[0].Winner.Describe()
	stats.WorstScore = ranked[0].Score
	counted := 0
	for _, result := range ranked {
		if math.IsNaN(result.Score) {
			continue
		}
		counted++
		// running mean; a plain sum of MaxFloat64 scores overflows
		stats.MeanScore += (result.Score - stats.MeanScore) / float64(counted)
		if result.Score < stats.WorstScore || math.IsNaN(stats.WorstScore) {
			stats.WorstScore = result.Score
		}
	}
	return stats
}
