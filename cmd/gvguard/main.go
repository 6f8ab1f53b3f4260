package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/gv-guard/internal/applog"
	"github.com/danielpatrickdp/gv-guard/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
)

// rootCmd is the base command for the gvguard CLI
var rootCmd = &cobra.Command{
	Use:   "gvguard",
	Short: "Drift monitor and action classifier for two-signal entropy series",
	Long: `gvguard folds a global and a local entropy reading per step into a strain
scalar and its smoothed velocity, then maps recoverability, cumulative drift
and peak velocity to CONTINUE, STABILIZE or SAFE_REFUSAL.

Refusal is reserved for scenarios configured as unrecoverable; everything
else stabilizes and keeps running.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults and GVGUARD_* env when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// setup loads configuration and builds the logger before any subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Default()
		if err == nil {
			cfg.ApplyEnv(os.Getenv)
			err = cfg.Validate()
		}
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, logCloser, err = applog.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With().Str("command", cmd.Name()).Logger()
	return nil
}

// exitError ends the process with code after printing msg, if any.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}
