// Package scenario scripts a simulation run: an ordered list of timed
// actions consumed sequentially by a driver that paces them against the
// accelerated clock. Scripts are immutable once loaded.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type Kind string

const (
	KindSetPrice            Kind = "set-price"
	KindMovePrice           Kind = "move-price"
	KindGenerateWarmup      Kind = "generate-warmup"
	KindGenerateEntryCandle Kind = "generate-entry-candle"
	KindWait                Kind = "wait"
	KindVerify              Kind = "verify"
)

// Verify checks supported by KindVerify.
const (
	CheckFrozen   = "frozen"
	CheckContract = "contract"
)

// Action is one scripted step. At is the simulated-time offset from the
// scenario start; actions must be ordered by non-decreasing At. Only the
// fields its Kind consumes are read.
type Action struct {
	At   utility.Duration `yaml:"at"`
	Kind Kind             `yaml:"kind"`

	Symbol    string           `yaml:"symbol,omitempty"`
	Bid       fixed.Point      `yaml:"bid,omitempty"`
	Ask       fixed.Point      `yaml:"ask,omitempty"`
	DeltaBid  fixed.Point      `yaml:"delta_bid,omitempty"`
	DeltaAsk  fixed.Point      `yaml:"delta_ask,omitempty"`
	Duration  utility.Duration `yaml:"duration,omitempty"`
	Direction string           `yaml:"direction,omitempty"`
	Count     int              `yaml:"count,omitempty"`
	BasePrice fixed.Point      `yaml:"base_price,omitempty"`
	Check     string           `yaml:"check,omitempty"`
}

// Side maps the scripted direction onto the order side, defaulting to Buy.
func (a Action) Side() common.Side {
	if a.Direction == common.SideSell.String() {
		return common.SideSell
	}
	return common.SideBuy
}

type Script struct {
	Name    string   `yaml:"name"`
	Actions []Action `yaml:"actions"`
}

// Load reads and validates a YAML script.
func Load(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if len(s.Actions) == 0 {
		return fmt.Errorf("scenario %q: no actions", s.Name)
	}

	var prev utility.Duration
	for i, a := range s.Actions {
		if a.At < prev {
			return fmt.Errorf("scenario %q: action %d at %s is before its predecessor", s.Name, i, a.At)
		}
		prev = a.At

		switch a.Kind {
		case KindSetPrice:
			if a.Symbol == "" || !a.Bid.IsPositive() {
				return fmt.Errorf("scenario %q: action %d: set-price needs symbol and positive bid", s.Name, i)
			}
		case KindMovePrice:
			if a.Symbol == "" {
				return fmt.Errorf("scenario %q: action %d: move-price needs symbol", s.Name, i)
			}
		case KindGenerateWarmup:
			if a.Symbol == "" || !a.BasePrice.IsPositive() {
				return fmt.Errorf("scenario %q: action %d: generate-warmup needs symbol and positive base_price", s.Name, i)
			}
		case KindGenerateEntryCandle:
			if a.Symbol == "" {
				return fmt.Errorf("scenario %q: action %d: generate-entry-candle needs symbol", s.Name, i)
			}
		case KindWait:
			if a.Duration <= 0 {
				return fmt.Errorf("scenario %q: action %d: wait needs positive duration", s.Name, i)
			}
		case KindVerify:
			if a.Check != CheckFrozen && a.Check != CheckContract {
				return fmt.Errorf("scenario %q: action %d: unknown check %q", s.Name, i, a.Check)
			}
			if a.Symbol == "" {
				return fmt.Errorf("scenario %q: action %d: verify needs symbol", s.Name, i)
			}
		default:
			return fmt.Errorf("scenario %q: action %d: unknown kind %q", s.Name, i, a.Kind)
		}
	}
	return nil
}
