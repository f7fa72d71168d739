package evolvo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolvo/internal/evo"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	base := t.TempDir()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = filepath.Join(base, "runs")
	}
	if opts.ExportsDir == "" {
		opts.ExportsDir = filepath.Join(base, "exports")
	}
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientRunRunsAndExport(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	summary, err := client.Run(ctx, RunRequest{
		Challenge:   "x-window",
		Generations: 20,
		Children:    10,
		Seed:        42,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "x-window", summary.Challenge)
	assert.Equal(t, "constrained", summary.Strategy)
	assert.Equal(t, int64(42), summary.Seed)
	assert.Len(t, summary.BestByGeneration, 20)
	assert.GreaterOrEqual(t, summary.Magnitude, 3.0)
	assert.DirExists(t, summary.ArtifactsDir)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, 20, runs[0].Generations)
	assert.Equal(t, 10, runs[0].Children)

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	assert.FileExists(t, filepath.Join(exported.Directory, "winner.json"))

	_, err = client.Export(ctx, ExportRequest{})
	require.Error(t, err)
	_, err = client.Export(ctx, ExportRequest{RunID: "x", Latest: true})
	require.Error(t, err)
}

func TestClientFitnessHistoryAndDiagnostics(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	first, err := client.Run(ctx, RunRequest{Challenge: "x-target", Generations: 6, Children: 6, Seed: 1, RunID: "first"})
	require.NoError(t, err)

	history, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: first.RunID})
	require.NoError(t, err)
	assert.Equal(t, first.BestByGeneration, history)

	history, err = client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, history, 2)

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "first"})
	require.NoError(t, err)
	require.Len(t, diagnostics, 6)
	for i, d := range diagnostics {
		assert.Equal(t, i+1, d.Generation)
		assert.Equal(t, 6, d.Candidates)
	}

	_, err = client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "missing"})
	require.Error(t, err)
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{})
	require.Error(t, err)
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{RunID: "first", Limit: -1})
	require.Error(t, err)
}

func TestClientSweep(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	summary, err := client.Sweep(ctx, SweepRequest{
		ID:      "sweep",
		Workers: 2,
		Runs: []RunRequest{
			{Challenge: "x-target", Generations: 10, Seed: 3},
			{Challenge: "point", Generations: 10, Seed: 4, Step: 0.5},
			{Challenge: "unknown", Generations: 10, Seed: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sweep", summary.ID)
	require.Len(t, summary.Runs, 3)
	assert.Equal(t, 2, summary.SuccessRuns)
	assert.Empty(t, summary.Runs[0].Error)
	assert.Equal(t, "point-target", summary.Runs[1].Summary.Challenge)
	assert.NotEmpty(t, summary.Runs[2].Error)

	_, err = client.Sweep(ctx, SweepRequest{Runs: []RunRequest{{Parents: 5, Children: 2}}})
	require.ErrorIs(t, err, evo.ErrConfiguration)
}

func TestClientDelete(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	summary, err := client.Run(ctx, RunRequest{Generations: 3, Seed: 8, RunID: "doomed"})
	require.NoError(t, err)
	require.NoError(t, client.Delete(ctx, DeleteRequest{RunID: summary.RunID}))

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, err = os.Stat(summary.ArtifactsDir)
	assert.True(t, os.IsNotExist(err))

	require.Error(t, client.Delete(ctx, DeleteRequest{}))
	require.Error(t, client.Delete(ctx, DeleteRequest{RunID: "../escape"}))
	require.Error(t, client.Delete(ctx, DeleteRequest{RunID: ".."}))
}

func TestClientBadgerStore(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "badger")
	client := newTestClient(t, Options{StoreKind: "badger", DBPath: dbDir})
	ctx := context.Background()

	_, err := client.Run(ctx, RunRequest{Generations: 3, Seed: 2, RunID: "kept"})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	reopened := newTestClient(t, Options{StoreKind: "badger", DBPath: dbDir})
	runs, err := reopened.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "kept", runs[0].RunID)
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, Options{MetricsRegistry: reg})

	_, err := client.Run(context.Background(), RunRequest{Challenge: "x-window", Generations: 4, Seed: 6})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "evolvo_engine_generations_total", "evolvo_engine_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClientChallenges(t *testing.T) {
	client := newTestClient(t, Options{})
	items := client.Challenges()
	require.Len(t, items, 3)
	assert.Equal(t, "point-target", items[0].Name)
	assert.NotEmpty(t, items[0].Description)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{StoreKind: "etcd"})
	require.Error(t, err)
}
