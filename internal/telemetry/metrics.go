// Package telemetry exports engine activity as Prometheus metrics.
package telemetry

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evolvo/internal/evo"
)

const (
	metricsNamespace = "evolvo"
	engineSubsystem  = "engine"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors of one registry. Use NewMetrics with a
// private registry in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	generationsTotal   *prometheus.CounterVec
	bestScore          *prometheus.GaugeVec
	constraintAttempts *prometheus.HistogramVec
	constraintFailures *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine collectors on reg.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "generations_total",
				Help:      "Generations completed by challenge",
			},
			[]string{"challenge"},
		),
		bestScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "best_score",
				Help:      "Best score of the latest generation by challenge",
			},
			[]string{"challenge"},
		),
		constraintAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "constraint_attempts",
				Help:      "Mutations tried per child before it landed inside the magnitude window",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 11),
			},
			[]string{"strategy"},
		),
		constraintFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "constraint_failures_total",
				Help:      "Children that exhausted the retry budget",
			},
			[]string{"strategy"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "runs_total",
				Help:      "Finished runs by challenge and outcome",
			},
			[]string{"challenge", "outcome"},
		),
		runDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a run in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"challenge"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.generationsTotal, m.bestScore, m.constraintAttempts,
		m.constraintFailures, m.runsTotal, m.runDurationSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Observer returns a generation observer labelled with challenge.
func (m *Metrics) Observer(challenge string) evo.Observer {
	generations := m.generationsTotal.WithLabelValues(challenge)
	best := m.bestScore.WithLabelValues(challenge)
	return evo.ObserverFunc(func(_ context.Context, stats evo.GenerationStats) {
		generations.Inc()
		if !math.IsNaN(stats.BestScore) {
			best.Set(stats.BestScore)
		}
	})
}

// RecordAttempts implements evo.AttemptRecorder.
func (m *Metrics) RecordAttempts(strategy string, attempts int, accepted bool) {
	m.constraintAttempts.WithLabelValues(strategy).Observe(float64(attempts))
	if !accepted {
		m.constraintFailures.WithLabelValues(strategy).Inc()
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(challenge string, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.runsTotal.WithLabelValues(challenge, outcome).Inc()
	m.runDurationSeconds.WithLabelValues(challenge).Observe(elapsed.Seconds())
}
