// Package applog builds the process logger.
package applog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level, encoding and destination.
type Config struct {
	Level      string `yaml:"level" json:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format     string `yaml:"format" json:"format" default:"console" validate:"oneof=console json"`
	Output     string `yaml:"output" json:"output" default:"stderr"` // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format" json:"time_format"`
}

// New returns a logger writing to cfg.Output. The returned closer releases
// the log file, if one was opened.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
		closer = file
	}

	return build(output, level, cfg), closer, nil
}

// NewWriter is New for an explicit writer, used by tests and embedding callers.
func NewWriter(w io.Writer, cfg Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	return build(w, level, cfg), nil
}

func build(w io.Writer, level zerolog.Level, cfg Config) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "gvguard").
		Logger()
}

// nopCloser is returned for stdout and stderr, which New does not own.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }
