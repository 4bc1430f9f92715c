// internal/blockchain/client.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const defaultReceiptPoll = time.Second

// backend is the subset of *ethclient.Client the Client relies on.
type backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// LatencyRecorder receives per-method RPC timings.
type LatencyRecorder interface {
	ObserveRPC(method string, d time.Duration)
}

// Client talks to an EVM JSON-RPC node using Uniswap V2 and ERC20 ABIs.
type Client struct {
	rpc         backend
	logger      *zap.Logger
	latency     LatencyRecorder
	receiptPoll time.Duration
	callTimeout time.Duration

	// token0/token1 never change for a deployed pair.
	pairMu     sync.Mutex
	pairTokens map[common.Address][2]common.Address
}

// Dial connects to rpcURL (http, https, ws or wss).
func Dial(ctx context.Context, rpcURL string, logger *zap.Logger, latency LatencyRecorder) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return newClient(ec, logger, latency), nil
}

func newClient(b backend, logger *zap.Logger, latency LatencyRecorder) *Client {
	return &Client{
		rpc:         b,
		logger:      logger.Named("chain"),
		latency:     latency,
		receiptPoll: defaultReceiptPoll,
		pairTokens:  make(map[common.Address][2]common.Address),
	}
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error {
	c.rpc.Close()
	return nil
}

// SetCallTimeout bounds every single RPC request except receipt waiting.
// Zero leaves requests bounded only by the caller's context.
func (c *Client) SetCallTimeout(d time.Duration) {
	c.callTimeout = d
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) observe(method string, start time.Time) {
	if c.latency != nil {
		c.latency.ObserveRPC(method, time.Since(start))
	}
}

func (c *Client) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	c.observe(method, start)
	if err != nil {
		return nil, wrapRPC(method, err)
	}
	if len(out) == 0 {
		return nil, wrapRPC(method, ErrEmptyResult)
	}

	vals, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, wrapRPC(method, fmt.Errorf("unpack: %w", err))
	}
	return vals, nil
}

func (c *Client) callAddress(ctx context.Context, to common.Address, method string) (common.Address, error) {
	vals, err := c.call(ctx, PairABI, to, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, wrapRPC(method, fmt.Errorf("unexpected type %T", vals[0]))
	}
	return addr, nil
}

// GetReserves reads getReserves, token0 and token1 of a pair.
func (c *Client) GetReserves(ctx context.Context, pair common.Address) (*Reserves, error) {
	vals, err := c.call(ctx, PairABI, pair, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, wrapRPC("getReserves", fmt.Errorf("unexpected result len %d", len(vals)))
	}
	r0, ok0 := vals[0].(*big.Int)
	r1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, wrapRPC("getReserves", fmt.Errorf("unexpected types %T, %T", vals[0], vals[1]))
	}

	tokens, err := c.pairTokensOf(ctx, pair)
	if err != nil {
		return nil, err
	}
	return &Reserves{Reserve0: r0, Reserve1: r1, Token0: tokens[0], Token1: tokens[1]}, nil
}

func (c *Client) pairTokensOf(ctx context.Context, pair common.Address) ([2]common.Address, error) {
	c.pairMu.Lock()
	tokens, ok := c.pairTokens[pair]
	c.pairMu.Unlock()
	if ok {
		return tokens, nil
	}

	token0, err := c.callAddress(ctx, pair, "token0")
	if err != nil {
		return tokens, err
	}
	token1, err := c.callAddress(ctx, pair, "token1")
	if err != nil {
		return tokens, err
	}
	tokens = [2]common.Address{token0, token1}

	c.pairMu.Lock()
	c.pairTokens[pair] = tokens
	c.pairMu.Unlock()
	return tokens, nil
}

// Decimals reads ERC20 decimals().
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	vals, err := c.call(ctx, ERC20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, wrapRPC("decimals", fmt.Errorf("unexpected type %T", vals[0]))
	}
	return d, nil
}

// Allowance reads ERC20 allowance(owner, spender).
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	vals, err := c.call(ctx, ERC20ABI, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	a, ok := vals[0].(*big.Int)
	if !ok {
		return nil, wrapRPC("allowance", fmt.Errorf("unexpected type %T", vals[0]))
	}
	return a, nil
}

// GetAmountsOut quotes a swap along path via the router.
func (c *Client) GetAmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	vals, err := c.call(ctx, RouterABI, router, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok {
		return nil, wrapRPC("getAmountsOut", fmt.Errorf("unexpected type %T", vals[0]))
	}
	if len(amounts) != len(path) {
		return nil, wrapRPC("getAmountsOut", fmt.Errorf("got %d amounts for path of %d", len(amounts), len(path)))
	}
	return amounts, nil
}

// ChainID returns the network chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	id, err := c.rpc.ChainID(ctx)
	c.observe("eth_chainId", start)
	return id, wrapRPC("eth_chainId", err)
}

// PendingNonceAt returns the next nonce for account, including pending txs.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	n, err := c.rpc.PendingNonceAt(ctx, account)
	c.observe("eth_getTransactionCount", start)
	return n, wrapRPC("eth_getTransactionCount", err)
}

// SuggestGasPrice returns the node's current legacy gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	p, err := c.rpc.SuggestGasPrice(ctx)
	c.observe("eth_gasPrice", start)
	return p, wrapRPC("eth_gasPrice", err)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	err := c.rpc.SendTransaction(ctx, tx)
	c.observe("eth_sendRawTransaction", start)
	return wrapRPC("eth_sendRawTransaction", err)
}

// TransactionKnown reports whether the node has hash, pending or mined.
func (c *Client) TransactionKnown(ctx context.Context, hash common.Hash) (bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	_, _, err := c.rpc.TransactionByHash(ctx, hash)
	c.observe("eth_getTransactionByHash", start)
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapRPC("eth_getTransactionByHash", err)
	}
	return true, nil
}

// WaitReceipt polls for the receipt of hash until it exists or timeout elapses.
// Lookup errors other than "not found" are logged and polling continues.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("Receipt lookup failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %s after %s", ErrReceiptTimeout, hash.Hex(), timeout)
			}
			return nil, waitCtx.Err()
		case <-ticker.C:
		}
	}
}
