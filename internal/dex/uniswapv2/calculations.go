// =============================
// File: internal/dex/uniswapv2/calculations.go
// =============================
package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
)

// DefaultDecimals is assumed for tokens whose decimals() cannot be read.
const DefaultDecimals uint8 = 18

var hundred = decimal.NewFromInt(100)

// SpotPrice returns the raw reserve ratio quoted as "other side per base token".
// finite is false when the base-side reserve is zero.
//
// Reserves are not normalized by token decimals, so the ratio only equals the
// human price when both tokens use the same number of decimals.
func SpotPrice(r *blockchain.Reserves, base common.Address) (price decimal.Decimal, finite bool) {
	num, den := r.Reserve1, r.Reserve0
	if r.Token0 != base {
		num, den = r.Reserve0, r.Reserve1
	}
	if den == nil || den.Sign() == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(den, 0)), true
}

// QuoteLiquidity returns the raw reserve held on the quote token's side.
func QuoteLiquidity(r *blockchain.Reserves, quote common.Address) *big.Int {
	if r.Token1 == quote {
		return r.Reserve1
	}
	return r.Reserve0
}

// ToBaseUnits converts a human amount to integer base units, truncating dust.
func ToBaseUnits(amount float64, decimals uint8) *big.Int {
	return decimal.NewFromFloat(amount).Shift(int32(decimals)).BigInt()
}

// MinAmountOut applies slippage (in percent) to a quoted output, truncating.
func MinAmountOut(quoted *big.Int, slippagePercent float64) *big.Int {
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePercent).Div(hundred))
	return decimal.NewFromBigInt(quoted, 0).Mul(keep).BigInt()
}

// ScaleGasPrice multiplies a gas price by multiplier, truncating to wei.
func ScaleGasPrice(gasPrice *big.Int, multiplier float64) *big.Int {
	return decimal.NewFromBigInt(gasPrice, 0).Mul(decimal.NewFromFloat(multiplier)).BigInt()
}

// BuyPath spends quote to receive base.
func BuyPath(quote, base common.Address) []common.Address {
	return []common.Address{quote, base}
}
