package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/gv-guard/internal/replay"
)

// exportCmd writes a stored run out as a replay fixture
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run as a replay fixture",
	Long: `Export reads a run's config snapshot, inputs and recorded actions from the
database and writes them as a fixture that 'gvguard replay --fixture' accepts.

Examples:
  gvguard export --db gvguard.db --out fixture.json
  gvguard export --db gvguard.db --run <id> --out fixture.json`,
	RunE: runExport,
}

var (
	exportDB  string
	exportRun string
	exportOut string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDB, "db", "", "Path to gvguard SQLite database")
	exportCmd.Flags().StringVar(&exportRun, "run", "", "Run id (default: latest run)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output fixture JSON path")
	_ = exportCmd.MarkFlagRequired("db")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(_ *cobra.Command, _ []string) error {
	f, err := fixtureFromDB(exportDB, exportRun)
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(exportOut, f); err != nil {
		return err
	}
	fmt.Printf("Wrote %d steps (%s) to %s\n", len(f.Steps), f.Scenario, exportOut)
	return nil
}
