// internal/blockchain/types.go
package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reserves is a snapshot of a pair's getReserves() together with its token order.
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	Token0   common.Address
	Token1   common.Address
}
