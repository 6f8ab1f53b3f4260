package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/gv-guard/internal/config"
	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/metrics"
	"github.com/danielpatrickdp/gv-guard/internal/scenario"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// runCmd runs synthetic scenarios through the engine
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios through the monitor and classifier",
	Long: `Generate one or more scenario series, run each through its own monitor and
classifier session, persist every step to SQLite and print a summary table.

Scenarios come from --scenario, else from the config file, else every
registered scenario.

Examples:
  gvguard run
  gvguard run --scenario swarm_amplification --steps 500 --seed 7
  gvguard run --no-store --json
  gvguard run --metrics-file run.prom`,
	RunE: runScenarios,
}

var (
	runScenarioNames []string
	runSteps         int
	runSeed          int64
	runDB            string
	runNoStore       bool
	runJSON          bool
	runMetricsFile   string
	runParallelism   int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runScenarioNames, "scenario", nil, "Scenario to run (repeatable)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "Steps per scenario (0 = scenario default)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Random seed (0 = scenario default)")
	runCmd.Flags().StringVar(&runDB, "db", "", "SQLite path (overrides store.path)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "Do not persist runs")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print summaries as JSON")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the runs")
	runCmd.Flags().IntVar(&runParallelism, "parallel", -1, "Concurrent scenarios (overrides parallelism; 0 = unbounded)")
}

func runScenarios(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	series, err := buildSeries(scenario.NewRegistry(), cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	deps := engine.Deps{Recorder: metrics.New(reg), Logger: &logger}

	if !runNoStore {
		path := cfg.Store.Path
		if runDB != "" {
			path = runDB
		}
		st, err := store.NewStore(path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		sink, err := engine.NewStoreSink(st, cfg.Engine)
		if err != nil {
			return err
		}
		deps.Sink = sink
	}

	eng, err := engine.New(cfg.Engine, deps)
	if err != nil {
		return err
	}

	parallelism := cfg.Parallelism
	if runParallelism >= 0 {
		parallelism = runParallelism
	}
	results, err := eng.RunAll(ctx, series, parallelism)
	if err != nil {
		return err
	}

	if runMetricsFile != "" {
		if err := prometheus.WriteToTextfile(runMetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	summaries := make([]engine.Summary, len(results))
	for i, r := range results {
		summaries[i] = r.Summary
	}
	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	return printSummaries(summaries)
}

// buildSeries resolves which scenarios to run and generates their series.
func buildSeries(reg *scenario.Registry, c *config.Config) ([]scenario.Series, error) {
	var picks []config.ScenarioConfig
	switch {
	case len(runScenarioNames) > 0:
		for _, name := range runScenarioNames {
			picks = append(picks, config.ScenarioConfig{Name: name, Steps: runSteps, Seed: runSeed})
		}
	case len(c.Scenarios) > 0:
		picks = c.Scenarios
	default:
		for _, name := range reg.Names() {
			picks = append(picks, config.ScenarioConfig{Name: name, Steps: runSteps, Seed: runSeed})
		}
	}

	series := make([]scenario.Series, 0, len(picks))
	for _, p := range picks {
		s, err := reg.Generate(p.Name, scenario.Options{Steps: p.Steps, Seed: p.Seed})
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

func printSummaries(summaries []engine.Summary) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTEPS\tLAST ACTION\tHALT\tGOODNESS\tPEAK |V|\tDRIFT\tFINAL REC\tBIN\tRUN ID")
	for _, s := range summaries {
		halt := "-"
		if s.Halted {
			halt = fmt.Sprintf("%d:%s", s.HaltStep, s.HaltReason)
		}
		runID := s.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.3f\t%.5f\t%.4f\t%.3f\t%s\t%s\n",
			s.Scenario, s.Steps, s.LastAction, halt, s.GoodnessRatio,
			s.PeakAbsVelocity, s.CumulativeAbsDrift, s.FinalRecoverability, s.Bin, runID)
	}
	return w.Flush()
}
