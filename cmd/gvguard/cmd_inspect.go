package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/httpapi"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// inspectCmd prints stored runs
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List stored runs or show one run step by step",
	Long: `Inspect reads the SQLite store written by 'gvguard run'.

Examples:
  gvguard inspect --db gvguard.db
  gvguard inspect --db gvguard.db --last 5 --json
  gvguard inspect --db gvguard.db --run <id>`,
	RunE: runInspect,
}

var (
	inspectDB   string
	inspectRun  string
	inspectLast int
	inspectJSON bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "SQLite path (default: store.path)")
	inspectCmd.Flags().StringVar(&inspectRun, "run", "", "Show a single run in detail")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "Show N most recent runs")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON instead of table")
}

func runInspect(_ *cobra.Command, _ []string) error {
	path := cfg.Store.Path
	if inspectDB != "" {
		path = inspectDB
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	st, err := store.NewStore(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if inspectRun != "" {
		return runDetailMode(st, inspectRun, inspectJSON)
	}
	return runListMode(st, inspectLast, inspectJSON)
}

// #region list-mode

func runListMode(st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	// store returns newest first, print chronologically
	views := make([]httpapi.RunView, len(runs))
	for i, r := range runs {
		views[len(runs)-1-i] = httpapi.NewRunView(r, nil)
	}
	if jsonOut {
		return printJSON(views)
	}

	fmt.Printf("%-36s  %-24s  %6s  %-13s  %8s  %-20s  %s\n",
		"Run", "Scenario", "Steps", "Last Action", "Goodness", "Halt", "Created")
	fmt.Printf("%-36s+-%-24s+-%6s+-%-13s+-%8s+-%-20s+-%s\n",
		"------------------------------------", "------------------------", "------",
		"-------------", "--------", "--------------------", "--------------------")
	for _, v := range views {
		sum := parseSummary(v.Summary)
		halt := "-"
		if v.Halted {
			halt = v.HaltReason
		}
		action := "open"
		goodness := "-"
		steps := "-"
		if sum != nil {
			action = string(sum.LastAction)
			goodness = fmt.Sprintf("%.3f", sum.GoodnessRatio)
			steps = fmt.Sprintf("%d", sum.Steps)
			if sum.Cancelled {
				halt = "cancelled"
			}
		}
		fmt.Printf("%-36s  %-24s  %6s  %-13s  %8s  %-20s  %s\n",
			v.RunID, v.Scenario, steps, action, goodness, halt, v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(st *store.Store, runID string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	steps, err := st.Steps(runID)
	if err != nil {
		return err
	}
	view := httpapi.NewRunView(run, steps)
	if jsonOut {
		return printJSON(view)
	}

	fmt.Printf("Run:       %s\n", view.RunID)
	fmt.Printf("Scenario:  %s\n", view.Scenario)
	fmt.Printf("Created:   %s\n", view.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if sum := parseSummary(view.Summary); sum != nil {
		fmt.Printf("Bin:       %s\n", sum.Bin)
		fmt.Printf("Goodness:  %.3f (%d good / %d bad)\n", sum.GoodnessRatio, sum.Counters.StepsGood, sum.Counters.StepsBad)
		fmt.Printf("Peak |v|:  %.5f   Drift: %.4f   Peak strain: %.4f\n", sum.PeakAbsVelocity, sum.CumulativeAbsDrift, sum.PeakStrain)
		if sum.Halted {
			fmt.Printf("Halted:    step %d (%s)\n", sum.HaltStep, sum.HaltReason)
		}
		if sum.Cancelled {
			fmt.Printf("Cancelled: after %d steps\n", sum.Steps)
		}
	}
	fmt.Println()

	fmt.Printf("%5s  %9s  %10s  %8s  %6s  %-13s  %-22s  %-4s  %6s  %s\n",
		"Step", "Strain", "Velocity", "Drift", "Rec", "Action", "Reason", "Env", "Good", "Recovery")
	for _, s := range view.Steps {
		recovery := ""
		if s.RecoverySteps != nil {
			recovery = fmt.Sprintf("%d", *s.RecoverySteps)
		}
		reason := s.Reason
		if s.Substituted {
			reason += " (subst)"
		}
		fmt.Printf("%5d  %9s  %10s  %8s  %6s  %-13s  %-22s  %-4s  %6.3f  %s\n",
			s.Step, fmtPtr(s.Strain, "%.4f"), fmtPtr(s.Velocity, "%.6f"), fmtPtr(s.CumulativeDrift, "%.4f"),
			fmtPtr(s.Recoverability, "%.3f"), s.Action, reason, s.Environment, s.GoodnessRatio, recovery)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func parseSummary(raw json.RawMessage) *engine.Summary {
	if len(raw) == 0 {
		return nil
	}
	var s engine.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
