package common

import (
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

// SymbolSpec carries the static pricing parameters of one symbol, used for
// P/L and pip conversions.
type SymbolSpec struct {
	Symbol       string      `json:"symbol" yaml:"symbol"`
	Point        fixed.Point `json:"point" yaml:"point"`
	Digits       int         `json:"digits" yaml:"digits"`
	SpreadPips   fixed.Point `json:"spread_pips" yaml:"spread_pips"`
	ContractSize fixed.Point `json:"contract_size" yaml:"contract_size"`
}

// PipSize is the price increment of one pip. On 5-digit quotes one pip is
// ten points.
func (s SymbolSpec) PipSize() fixed.Point {
	return s.Point.MulInt(10)
}

// SpreadPrice is the configured spread expressed in price units.
func (s SymbolSpec) SpreadPrice() fixed.Point {
	return s.SpreadPips.Mul(s.PipSize())
}
