package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSweepReport(t *testing.T) {
	report := BuildSweepReport("sweep-1", 2, []SweepRun{
		{RunID: "a", WinnerScore: 2},
		{RunID: "b", WinnerScore: 4},
		{RunID: "c", Error: "boom"},
		{RunID: "d", WinnerScore: 6},
	})
	assert.Equal(t, 4, report.TotalRuns)
	assert.Equal(t, 3, report.SuccessRuns)
	assert.InDelta(t, 4.0, report.ScoreMean, 1e-12)
	assert.InDelta(t, math.Sqrt(8.0/3.0), report.ScoreStd, 1e-12)
	assert.Equal(t, 2.0, report.ScoreMin)
	assert.Equal(t, 6.0, report.ScoreMax)
}

func TestBuildSweepReportEmpty(t *testing.T) {
	report := BuildSweepReport("sweep-0", 1, nil)
	assert.Zero(t, report.SuccessRuns)
	assert.Zero(t, report.ScoreMean)
}

func TestSweepReportRoundTrip(t *testing.T) {
	base := t.TempDir()
	report := BuildSweepReport("sweep-2", 3, []SweepRun{{RunID: "a", WinnerScore: 1}})
	require.NoError(t, WriteSweepReport(base, report))

	got, ok, err := ReadSweepReport(base, "sweep-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, 3, got.Workers)

	_, ok, err = ReadSweepReport(base, "other")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Error(t, WriteSweepReport(base, SweepReport{}))
}
