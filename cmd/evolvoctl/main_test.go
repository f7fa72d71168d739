package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolvo/internal/config"
	"evolvo/pkg/evolvo"
)

type workspace struct {
	dir string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	return workspace{dir: t.TempDir()}
}

func (w workspace) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	global := []string{
		"--store", "badger",
		"--db-path", filepath.Join(w.dir, "evolvo.badger"),
		"--artifacts-dir", filepath.Join(w.dir, "runs"),
		"--exports-dir", filepath.Join(w.dir, "exports"),
		"--log-format", "text",
	}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append(args, global...), &stdout, &stderr)
	return stdout.String(), err
}

func (w workspace) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := w.exec(t, args...)
	require.NoError(t, err)
	return out
}

func TestRunPersistsAcrossInvocations(t *testing.T) {
	ws := newWorkspace(t)

	out := ws.mustExec(t, "run", "--challenge", "x-window", "--gens", "30", "--seed", "7", "--json")
	var summary evolvo.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "x-window", summary.Challenge)
	assert.Equal(t, "constrained", summary.Strategy)
	assert.Equal(t, int64(7), summary.Seed)
	assert.Len(t, summary.BestByGeneration, 30)
	assert.GreaterOrEqual(t, summary.Magnitude, 3.0)

	out = ws.mustExec(t, "runs", "--json")
	var items []evolvo.RunItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, summary.RunID, items[0].RunID)
	assert.Equal(t, 30, items[0].Generations)

	table := ws.mustExec(t, "runs")
	assert.Contains(t, table, "RUN ID")
	assert.Contains(t, table, summary.RunID)

	fitness := ws.mustExec(t, "fitness", "--latest", "--limit", "5")
	assert.Equal(t, 5, strings.Count(fitness, "generation="))

	diagnostics := ws.mustExec(t, "diagnostics", "--run-id", summary.RunID)
	assert.Equal(t, 30, strings.Count(diagnostics, "candidates=20"))
}

func TestRunFlagsOverrideConfigFile(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("challenge: x-target\ngenerations: 50\nchildren: 8\nseed: 3\n"), 0o644))

	out := ws.mustExec(t, "run", "--config", path, "--gens", "4", "--json")
	var summary evolvo.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "x-target", summary.Challenge)
	assert.Equal(t, int64(3), summary.Seed)
	assert.Len(t, summary.BestByGeneration, 4)

	diagnostics := ws.mustExec(t, "diagnostics", "--latest")
	assert.Equal(t, 4, strings.Count(diagnostics, "candidates=8"))
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	ws := newWorkspace(t)

	_, err := ws.exec(t, "run", "--parents", "5", "--children", "2")
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = ws.exec(t, "run", "--challenge", "nope")
	require.Error(t, err)

	_, err = ws.exec(t, "run", "--strategy", "greedy")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPointRunWithWindowFlags(t *testing.T) {
	ws := newWorkspace(t)

	out := ws.mustExec(t, "run", "--challenge", "point",
		"--target", "6,8", "--window-max", "5", "--gens", "60", "--seed", "11", "--json")
	var summary evolvo.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "point-target", summary.Challenge)
	assert.Equal(t, "constrained", summary.Strategy)
	assert.Len(t, summary.Coordinates, 2)
	assert.LessOrEqual(t, summary.Magnitude, 5.0)
}

func TestSweepRunsEverySeed(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.dir, "sweep.yaml")
	body := `id: seeds
workers: 2
base:
  challenge: x-target
  generations: 10
seeds: [1, 2, 3]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	out := ws.mustExec(t, "sweep", "--config", path, "--json")
	var summary evolvo.SweepSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "seeds", summary.ID)
	require.Len(t, summary.Runs, 3)
	assert.Equal(t, 3, summary.SuccessRuns)
	for i, item := range summary.Runs {
		assert.Empty(t, item.Error)
		assert.Equal(t, int64(i+1), item.Summary.Seed)
	}

	out = ws.mustExec(t, "runs", "--json")
	var items []evolvo.RunItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 3)

	_, err := os.Stat(filepath.Join(ws.dir, "runs", "sweeps", "seeds.json"))
	require.NoError(t, err)
}

func TestSweepRequiresConfig(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.exec(t, "sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")
}

func TestExportAndDelete(t *testing.T) {
	ws := newWorkspace(t)

	out := ws.mustExec(t, "run", "--gens", "5", "--seed", "9", "--json")
	var summary evolvo.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))

	exported := ws.mustExec(t, "export", "--latest")
	assert.Contains(t, exported, "run_id="+summary.RunID)
	_, err := os.Stat(filepath.Join(ws.dir, "exports", summary.RunID, "winner.json"))
	require.NoError(t, err)

	custom := filepath.Join(ws.dir, "elsewhere")
	ws.mustExec(t, "export", "--run-id", summary.RunID, "--out", custom)
	_, err = os.Stat(filepath.Join(custom, summary.RunID, "config.json"))
	require.NoError(t, err)

	ws.mustExec(t, "delete", "--run-id", summary.RunID)
	out = ws.mustExec(t, "runs", "--json")
	var items []evolvo.RunItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Empty(t, items)
	_, err = os.Stat(filepath.Join(ws.dir, "runs", summary.RunID))
	assert.True(t, os.IsNotExist(err))

	_, err = ws.exec(t, "fitness", "--run-id", summary.RunID)
	require.Error(t, err)
}

func TestChallengesListsBuiltins(t *testing.T) {
	ws := newWorkspace(t)
	out := ws.mustExec(t, "challenges")
	for _, name := range []string{"x-target", "x-window", "point-target"} {
		assert.Contains(t, out, name)
	}
}

func TestUnknownLogFormatFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"challenges", "--log-format", "xml"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log format")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger("text", &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	logger, err = newLogger("auto", &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger, err = newLogger("json", &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.25", formatScore(0.25))
	assert.Equal(t, "max", formatScore(1.7976931348623157e308))
}

func TestMetricsServerExposesRegistry(t *testing.T) {
	var stderr bytes.Buffer
	c := &cli{stdout: io.Discard, stderr: &stderr, logFormat: "text", metricsAddr: "127.0.0.1:0"}
	require.NoError(t, c.setup(context.Background()))
	t.Cleanup(func() { _ = c.teardown() })

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "evolvo_cli_probe_total", Help: "probe"})
	c.registry.MustRegister(counter)
	counter.Inc()

	resp, err := http.Get("http://" + c.metricsHost + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "evolvo_cli_probe_total 1")
	assert.Contains(t, stderr.String(), "serving metrics")
}
