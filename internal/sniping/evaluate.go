// internal/sniping/evaluate.go
package sniping

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
	"github.com/rovshanmuradov/evm-sniper/internal/dex/uniswapv2"
	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

// Evaluation is the outcome of checking one target against one reserves snapshot.
type Evaluation struct {
	Price     decimal.Decimal // raw reserve ratio; meaningless when Infinite
	Infinite  bool            // base-side reserve is zero
	Liquidity *big.Int        // raw quote-side reserve
	Fired     bool
}

// PriceString renders the price for logs and notifications.
func (e Evaluation) PriceString() string {
	if e.Infinite {
		return "inf"
	}
	return e.Price.String()
}

// Evaluate decides whether t fires for reserves r. Prices are raw reserve
// ratios: no decimals normalization is applied to either side.
func Evaluate(t task.Target, r *blockchain.Reserves) Evaluation {
	base := common.HexToAddress(t.BaseToken)
	quote := common.HexToAddress(t.QuoteToken)

	price, finite := uniswapv2.SpotPrice(r, base)
	ev := Evaluation{
		Price:     price,
		Infinite:  !finite,
		Liquidity: uniswapv2.QuoteLiquidity(r, quote),
	}

	trigger := decimal.NewFromFloat(t.TriggerPrice)
	var priceOK bool
	switch t.Direction {
	case task.DirectionSell:
		priceOK = ev.Infinite || price.GreaterThanOrEqual(trigger)
	default:
		priceOK = !ev.Infinite && price.LessThanOrEqual(trigger)
	}

	liquidity := decimal.Zero
	if ev.Liquidity != nil {
		liquidity = decimal.NewFromBigInt(ev.Liquidity, 0)
	}
	ev.Fired = priceOK && liquidity.GreaterThanOrEqual(decimal.NewFromFloat(t.MinLiquidity))
	return ev
}
