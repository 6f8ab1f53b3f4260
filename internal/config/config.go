// Package config loads the gvguard YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/gv-guard/internal/applog"
	"github.com/danielpatrickdp/gv-guard/internal/engine"
)

var validate = validator.New()

// Config is the whole gvguard configuration file.
type Config struct {
	Log applog.Config `yaml:"log" json:"log"`

	Store struct {
		Path string `yaml:"path" json:"path" default:"gvguard.db" validate:"required"`
	} `yaml:"store" json:"store"`

	Server struct {
		Addr        string `yaml:"addr" json:"addr" default:":50061" validate:"required"`
		MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" default:":9090"`
		// StreamIdleTimeout drops rpc streams idle this long. 0 keeps them.
		StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout" json:"stream_idle_timeout" default:"15m" validate:"gte=0"`
	} `yaml:"server" json:"server"`

	Engine      engine.Config    `yaml:"engine" json:"engine"`
	Scenarios   []ScenarioConfig `yaml:"scenarios" json:"scenarios" validate:"dive"`
	Parallelism int              `yaml:"parallelism" json:"parallelism" default:"4" validate:"gte=0"`
}

// ScenarioConfig selects one registered scenario for `gvguard run`.
type ScenarioConfig struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Steps int    `yaml:"steps" json:"steps" validate:"gte=0"`
	Seed  int64  `yaml:"seed" json:"seed"`
}

// Default returns a config with every default applied.
func Default() (*Config, error) {
	c := &Config{Engine: engine.DefaultConfig()}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return c, nil
}

// Load reads a YAML file over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load for an in-memory document.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides file values with GVGUARD_* variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GVGUARD_DB"); v != "" {
		c.Store.Path = v
	}
	if v := getenv("GVGUARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("GVGUARD_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := getenv("GVGUARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks field tags, then builds an engine from the engine
// section so cross-field rules fail here rather than at run time.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := engine.New(c.Engine, engine.Deps{}); err != nil {
		return err
	}
	return nil
}
