package evo

import (
	"math"
	"sort"
)

// Rank scores every candidate and orders the results best first. The sort is
// stable: equal scores keep breed order. NaN scores rank last.
func Rank[P any](candidates []P, score ScoreFunc[P]) []Result[P] {
	results := make([]Result[P], len(candidates))
	for i, candidate := range candidates {
		results[i] = Result[P]{Winner: candidate, Score: score(candidate)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return scoreBetter(results[i].Score, results[j].Score)
	})
	return results
}

// SelectParents returns the phenotypes of the top n ranked results.
func SelectParents[P any](ranked []Result[P], n int) []P {
	if n > len(ranked) {
		n = len(ranked)
	}
	if n < 0 {
		n = 0
	}
	parents := make([]P, n)
	for i := range parents {
		parents[i] = ranked[i].Winner
	}
	return parents
}

func scoreBetter(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}
