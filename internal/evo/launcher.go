package evo

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evolvo/internal/rng"
)

var tracer = otel.Tracer("evolvo.evo")

type launcherConfig struct {
	logger    *slog.Logger
	observers []Observer
	tracer    trace.Tracer
}

// LauncherOption configures a Launcher.
type LauncherOption func(*launcherConfig)

// WithLogger sets the sink for generation logs. Output is controlled by the
// log level of the settings.
func WithLogger(logger *slog.Logger) LauncherOption {
	return func(c *launcherConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an observer notified after every generation.
func WithObserver(observer Observer) LauncherOption {
	return func(c *launcherConfig) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

// WithTracer replaces the package tracer.
func WithTracer(t trace.Tracer) LauncherOption {
	return func(c *launcherConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// Launcher runs the generational loop: breed, score, rank, select.
// A Launcher holds no run state and may start any number of runs, each with
// its own Source.
type Launcher[P Phenotype[P], S Settings] struct {
	settings S
	cfg      launcherConfig
}

// NewLauncher validates settings and returns a launcher for them.
func NewLauncher[P Phenotype[P], S Settings](settings S, opts ...LauncherOption) (*Launcher[P, S], error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	cfg := launcherConfig{
		logger: slog.Default(),
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Launcher[P, S]{settings: settings, cfg: cfg}, nil
}

func (l *Launcher[P, S]) Settings() S {
	return l.settings
}

// Run evolves start for the configured number of generations and returns the
// best candidate of the final generation. Cancellation is honored between
// generations.
func (l *Launcher[P, S]) Run(ctx context.Context, start P, strategy Strategy[P, S], score ScoreFunc[P], src *rng.Source) (Result[P], error) {
	if strategy == nil {
		return Result[P]{}, fmt.Errorf("%w: strategy is required", ErrInvalidInput)
	}
	if score == nil {
		return Result[P]{}, fmt.Errorf("%w: score function is required", ErrInvalidInput)
	}
	if src == nil {
		return Result[P]{}, fmt.Errorf("%w: random source is required", ErrInvalidInput)
	}

	ctx, span := l.cfg.tracer.Start(ctx, "evo.Launcher.Run",
		trace.WithAttributes(
			attribute.String("evo.strategy", strategy.Name()),
			attribute.Int("evo.generations", l.settings.NumGenerations()),
			attribute.Int("evo.parents", l.settings.NumParents()),
			attribute.Int("evo.children", l.settings.NumChildren()),
			attribute.Int64("evo.seed", src.Seed()),
		))
	defer span.End()

	coordinator := NewCoordinator(l.settings)
	parents := []P{start}
	var ranked []Result[P]

	for !coordinator.Done() {
		if err := ctx.Err(); err != nil {
			return Result[P]{}, l.fail(span, fmt.Errorf("before generation %d: %w", coordinator.Generation()+1, err))
		}
		if err := coordinator.Advance(); err != nil {
			return Result[P]{}, l.fail(span, err)
		}
		generation := coordinator.Generation()

		candidates, err := strategy.Breed(parents, src, l.settings)
		if err != nil {
			return Result[P]{}, l.fail(span, fmt.Errorf("breed generation %d: %w", generation, err))
		}
		if len(candidates) == 0 {
			return Result[P]{}, l.fail(span, fmt.Errorf("%w: generation %d", ErrEmptyPopulation, generation))
		}

		ranked = Rank(candidates, score)
		parents = SelectParents(ranked, l.settings.NumParents())

		l.logGeneration(ctx, generation, ranked)
		stats := summarize(coordinator, ranked)
		span.AddEvent("generation", trace.WithAttributes(
			attribute.Int("evo.generation", stats.Generation),
			attribute.Float64("evo.best_score", stats.BestScore),
		))
		for _, observer := range l.cfg.observers {
			observer.ObserveGeneration(ctx, stats)
		}
	}

	best := ranked[0]
	span.SetAttributes(attribute.Float64("evo.best_score", best.Score))
	return best, nil
}

func (l *Launcher[P, S]) logGeneration(ctx context.Context, generation int, ranked []Result[P]) {
	level := l.settings.LogLevel()
	if level <= 0 {
		return
	}
	l.cfg.logger.InfoContext(ctx, "generation",
		slog.Int("generation", generation),
		slog.Int("of", l.settings.NumGenerations()),
		slog.Float64("best_score", ranked[0].Score))
	if level <= 1 {
		return
	}
	for rank, result := range ranked {
		l.cfg.logger.InfoContext(ctx, "candidate",
			slog.Int("generation", generation),
			slog.Int("rank", rank),
			slog.Float64("score", result.Score),
			slog.String("phenotype", result.Winner.Describe()))
	}
}

func (l *Launcher[P, S]) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
