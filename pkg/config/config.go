// Package config loads the YAML run configuration: clock acceleration,
// account, symbol universe, scenario script, and the optional journal and
// stream sidecars.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type Journal struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Stream struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Replay  int    `yaml:"replay"`
}

type Config struct {
	Acceleration  float64             `yaml:"acceleration"`
	Balance       fixed.Point         `yaml:"balance"`
	Seed          int64               `yaml:"seed"`
	OrderThrottle utility.Duration    `yaml:"order_throttle"`
	Scenario      string              `yaml:"scenario"`
	Symbols       []common.SymbolSpec `yaml:"symbols"`
	Journal       Journal             `yaml:"journal"`
	Stream        Stream              `yaml:"stream"`
}

// Default fills everything a minimal run needs except the symbol universe
// and the scenario path.
func Default() Config {
	return Config{
		Acceleration: 60,
		Balance:      fixed.FromInt(10000, 0),
		Seed:         1,
		Stream:       Stream{Addr: "localhost:8642", Replay: 256},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Acceleration <= 0 {
		return fmt.Errorf("config: acceleration must be > 0, got %v", c.Acceleration)
	}
	if c.Balance.IsNegative() {
		return fmt.Errorf("config: balance must not be negative")
	}
	if c.OrderThrottle < 0 {
		return fmt.Errorf("config: order_throttle must not be negative")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	for i, s := range c.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("config: symbol %d: name is required", i)
		}
		if !s.Point.IsPositive() || s.Digits <= 0 {
			return fmt.Errorf("config: symbol %s: point and digits must be positive", s.Symbol)
		}
		if s.SpreadPips.IsNegative() || !s.ContractSize.IsPositive() {
			return fmt.Errorf("config: symbol %s: invalid spread or contract size", s.Symbol)
		}
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("config: journal enabled without a path")
	}
	if c.Stream.Enabled && c.Stream.Addr == "" {
		return fmt.Errorf("config: stream enabled without an address")
	}
	return nil
}
