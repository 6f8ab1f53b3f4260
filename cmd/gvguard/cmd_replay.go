package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/gv-guard/internal/replay"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// replayCmd re-runs a fixture or a stored run and compares actions
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture or stored run and compare actions step by step",
	Long: `Replay feeds recorded inputs through a fresh engine built from the recorded
config and compares each step's action with the expected one.

Exit status is 0 when every step matches, 1 on any divergence and 2 when
the input cannot be loaded.

Examples:
  gvguard replay --fixture internal/replay/testdata/adversarial_floor.json
  gvguard replay --db gvguard.db              # latest run
  gvguard replay --db gvguard.db --run <id>`,
	RunE: runReplay,
}

var (
	replayFixture string
	replayDB      string
	replayRun     string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "Path to fixture JSON (fixture mode)")
	replayCmd.Flags().StringVar(&replayDB, "db", "", "Path to gvguard SQLite database (DB mode)")
	replayCmd.Flags().StringVar(&replayRun, "run", "", "Run id in DB mode (default: latest run)")
	replayCmd.MarkFlagsMutuallyExclusive("fixture", "db")
	replayCmd.MarkFlagsOneRequired("fixture", "db")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	var f *replay.Fixture
	var err error
	if replayFixture != "" {
		f, err = replay.LoadFixture(replayFixture)
	} else {
		f, err = fixtureFromDB(replayDB, replayRun)
	}
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("load: %v", err)}
	}

	results, err := replay.ReplayContext(cmd.Context(), f)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("replay: %v", err)}
	}
	logger.Debug().Str("scenario", f.Scenario).Int("steps", len(results)).Msg("replay finished")

	c := replay.Compare(results, f.ExpectedResults)
	printComparison(c)
	if !c.OK() {
		return &exitError{code: 1}
	}
	return nil
}

// fixtureFromDB exports runID, or the latest run, from the database at path.
func fixtureFromDB(path, runID string) (*replay.Fixture, error) {
	st, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if runID == "" {
		runs, err := st.ListRuns(1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs found in %s", path)
		}
		runID = runs[0].RunID
	}
	return replay.FixtureFromRun(st, runID)
}

// printComparison outputs the comparison table and summary line.
func printComparison(c replay.Comparison) {
	fmt.Printf("%-6s| %-15s| %-15s| %-24s| %s\n", "Step", "Expected", "Replayed", "Reason", "Match")
	fmt.Printf("%-6s+%-16s+%-16s+%-25s+%s\n",
		"------", "----------------", "----------------", "-------------------------", "------")

	for _, row := range c.Rows {
		match := "DIFF"
		if row.Match {
			match = "OK"
		}
		fmt.Printf("%-6s| %-15s| %-15s| %-24s| %s\n",
			strconv.Itoa(row.Step), dash(row.Expected), dash(row.Replayed), dash(row.Reason), match)
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(c.Rows), c.Matched, c.Diverged)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
