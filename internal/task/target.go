// =============================================
// File: internal/task/target.go
// =============================================
package task

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultSlippagePercent is used when a target does not set slippage.
const DefaultSlippagePercent = 0.5

// Direction selects which side of the trigger price fires.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection accepts any casing; empty means BUY.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case "", DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("unsupported direction: %q", s)
	}
}

// Target is a single watched pair. Values are copied around and never mutated after load.
type Target struct {
	Name         string
	PairAddress  string
	BaseToken    string
	QuoteToken   string
	TriggerPrice float64   // quote units per base unit, as a raw reserve ratio
	Direction    Direction
	AmountIn     float64 // quote token, human units
	MinLiquidity float64 // compared against the raw quote-side reserve
	Slippage     float64 // percent
}

// Key identifies the target's pair in the position store and the triggered set.
func (t Target) Key() string {
	return PairKey(t.PairAddress)
}

// SlippageOrDefault returns the configured slippage or DefaultSlippagePercent.
func (t Target) SlippageOrDefault() float64 {
	if t.Slippage == 0 {
		return DefaultSlippagePercent
	}
	return t.Slippage
}

// Label is the name when set, the pair address otherwise.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.PairAddress
}

// PairKey checksums a well-formed hex address and returns anything else unchanged.
func PairKey(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}
