package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"evolvo/internal/storage"
	"evolvo/pkg/evolvo"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
)

// cli carries the global flags and the resources they open.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	storeKind    string
	dbPath       string
	artifactsDir string
	exportsDir   string
	logFormat    string
	metricsAddr  string

	logger      *slog.Logger
	registry    *prometheus.Registry
	server      *http.Server
	metricsHost string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "evolvoctl",
		Short:         "Run and inspect generational evolution challenges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite|badger")
	flags.StringVar(&c.dbPath, "db-path", "", "sqlite file or badger directory")
	flags.StringVar(&c.artifactsDir, "artifacts-dir", defaultArtifactsDir, "directory for per-run artifacts")
	flags.StringVar(&c.exportsDir, "exports-dir", defaultExportsDir, "default export destination")
	flags.StringVar(&c.logFormat, "log-format", "auto", "log format: auto|text|json")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(
		newRunCmd(c),
		newSweepCmd(c),
		newRunsCmd(c),
		newFitnessCmd(c),
		newDiagnosticsCmd(c),
		newExportCmd(c),
		newDeleteCmd(c),
		newChallengesCmd(c),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	logger, err := newLogger(c.logFormat, c.stderr)
	if err != nil {
		return err
	}
	c.logger = logger
	c.registry = prometheus.NewRegistry()

	if c.metricsAddr == "" {
		return nil
	}
	listener, err := net.Listen("tcp", c.metricsAddr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handlers.CompressHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))
	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := c.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.ErrorContext(ctx, "metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	c.metricsHost = listener.Addr().String()
	c.logger.InfoContext(ctx, "serving metrics", slog.String("addr", c.metricsHost))
	return nil
}

func (c *cli) teardown() error {
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.server.Shutdown(ctx)
	c.server = nil
	return err
}

func (c *cli) openClient() (*evolvo.Client, error) {
	return evolvo.New(evolvo.Options{
		StoreKind:       c.storeKind,
		DBPath:          c.dbPath,
		ArtifactsDir:    c.artifactsDir,
		ExportsDir:      c.exportsDir,
		Logger:          c.logger,
		MetricsRegistry: c.registry,
	})
}

// newLogger picks a text handler for terminals and JSON otherwise.
func newLogger(format string, w io.Writer) (*slog.Logger, error) {
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, nil)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, nil)), nil
	case "", "auto":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return slog.New(slog.NewTextHandler(w, nil)), nil
		}
		return slog.New(slog.NewJSONHandler(w, nil)), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}
