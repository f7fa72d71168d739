package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"evolvo/internal/config"
	"evolvo/pkg/evolvo"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		flags  runFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one challenge and persist the result",
		Example: `  evolvoctl run --challenge x-window --seed 7
  evolvoctl run --challenge point-target --target 6,8 --window-max 5
  evolvoctl run --config run.yaml --gens 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), toRunRequest(cfg))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.stdout, summary)
			}
			fmt.Fprintf(c.stdout, "run_id=%s challenge=%s strategy=%s seed=%d\n", summary.RunID, summary.Challenge, summary.Strategy, summary.Seed)
			fmt.Fprintf(c.stdout, "winner=%q score=%s magnitude=%s\n", summary.Winner, formatScore(summary.WinnerScore), formatScore(summary.Magnitude))
			if summary.ArtifactsDir != "" {
				fmt.Fprintf(c.stdout, "artifacts=%s\n", summary.ArtifactsDir)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")
	return cmd
}

func newSweepCmd(c *cli) *cobra.Command {
	var (
		configPath string
		workers    int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run many independent configurations concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				return errors.New("sweep requires --config")
			}
			cfg, err := config.LoadSweepConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cfg.Workers < 1 {
				return fmt.Errorf("workers must be >= 1")
			}

			runs := cfg.Expand()
			req := evolvo.SweepRequest{ID: cfg.ID, Workers: cfg.Workers, Runs: make([]evolvo.RunRequest, 0, len(runs))}
			for _, run := range runs {
				req.Runs = append(req.Runs, toRunRequest(run))
			}

			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Sweep(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.stdout, summary)
			}
			fmt.Fprintf(c.stdout, "sweep_id=%s runs=%d succeeded=%d mean=%s std=%s min=%s max=%s\n",
				summary.ID, len(summary.Runs), summary.SuccessRuns,
				formatScore(summary.ScoreMean), formatScore(summary.ScoreStd),
				formatScore(summary.ScoreMin), formatScore(summary.ScoreMax))
			for i, item := range summary.Runs {
				if item.Error != "" {
					fmt.Fprintf(c.stdout, "%d challenge=%s error=%q\n", i, item.Summary.Challenge, item.Error)
					continue
				}
				fmt.Fprintf(c.stdout, "%d run_id=%s challenge=%s seed=%d score=%s winner=%q\n",
					i, item.Summary.RunID, item.Summary.Challenge, item.Summary.Seed,
					formatScore(item.Summary.WinnerScore), item.Summary.Winner)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML or JSON sweep config file")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "maximum concurrent runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the sweep summary as JSON")
	return cmd
}

func newRunsCmd(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), evolvo.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.stdout, items)
			}
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tCHALLENGE\tSTRATEGY\tSEED\tGENS\tSCORE\tWINNER")
			for _, item := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					item.RunID,
					humanize.Time(item.CreatedAtUTC),
					item.Challenge,
					item.Strategy,
					item.Seed,
					humanize.Comma(int64(item.Generations)),
					formatScore(item.WinnerScore),
					item.Winner)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

// runSelector holds the --run-id/--latest/--limit trio shared by the
// inspection commands.
type runSelector struct {
	runID  string
	latest bool
	limit  int
}

func (s *runSelector) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.runID, "run-id", "", "run id to inspect")
	cmd.Flags().BoolVar(&s.latest, "latest", false, "inspect the most recent run")
	cmd.Flags().IntVar(&s.limit, "limit", 0, "maximum generations to print (0 prints all)")
}

func newFitnessCmd(c *cli) *cobra.Command {
	var sel runSelector
	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Print the best score of every generation of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			history, err := client.FitnessHistory(cmd.Context(), evolvo.FitnessHistoryRequest{RunID: sel.runID, Latest: sel.latest, Limit: sel.limit})
			if err != nil {
				return err
			}
			for i, best := range history {
				fmt.Fprintf(c.stdout, "generation=%d best=%s\n", i+1, formatScore(best))
			}
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newDiagnosticsCmd(c *cli) *cobra.Command {
	var sel runSelector
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Print per-generation score statistics of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			diagnostics, err := client.Diagnostics(cmd.Context(), evolvo.DiagnosticsRequest{RunID: sel.runID, Latest: sel.latest, Limit: sel.limit})
			if err != nil {
				return err
			}
			for _, d := range diagnostics {
				fmt.Fprintf(c.stdout, "generation=%d candidates=%d best=%s mean=%s worst=%s leader=%q\n",
					d.Generation, d.Candidates, formatScore(d.BestScore), formatScore(d.MeanScore), formatScore(d.WorstScore), d.Best)
			}
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		runID  string
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to another directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), evolvo.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id to export")
	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "", "destination directory (default: --exports-dir)")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var (
		runID         string
		keepArtifacts bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Delete(cmd.Context(), evolvo.DeleteRequest{RunID: runID, KeepArtifacts: keepArtifacts}); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "deleted run_id=%s\n", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id to delete")
	cmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "leave the artifacts directory in place")
	return cmd
}

func newChallengesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "List the available challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			for _, item := range client.Challenges() {
				fmt.Fprintf(tw, "%s\t%s\n", item.Name, item.Description)
			}
			return tw.Flush()
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatScore keeps exact hits readable.
func formatScore(v float64) string {
	s := strconv.FormatFloat(v, 'g', 6, 64)
	if strings.Contains(s, "e+308") {
		return "max"
	}
	return s
}
