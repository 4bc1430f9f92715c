// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PairReader reads Uniswap V2 pair state.
type PairReader interface {
	GetReserves(ctx context.Context, pair common.Address) (*Reserves, error)
}

// TokenReader reads ERC20 token state.
type TokenReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// RouterReader quotes swaps against a Uniswap V2 router.
type RouterReader interface {
	GetAmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}

// TxSender covers everything needed to get a signed transaction mined.
type TxSender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionKnown(ctx context.Context, hash common.Hash) (bool, error)
	WaitReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// ChainClient is the full read/write surface used by the trader.
type ChainClient interface {
	PairReader
	TokenReader
	RouterReader
	TxSender
}
