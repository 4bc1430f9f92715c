// =============================
// File: internal/bot/trader.go
// =============================
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
	"github.com/rovshanmuradov/evm-sniper/internal/dex/uniswapv2"
	"github.com/rovshanmuradov/evm-sniper/internal/events"
	"github.com/rovshanmuradov/evm-sniper/internal/metrics"
	"github.com/rovshanmuradov/evm-sniper/internal/storage"
	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

const (
	DefaultGasMultiplier         = 1.2
	DefaultGasLimit              = 300_000
	DefaultApproveGasLimit       = 100_000
	DefaultSwapDeadline          = 60 * time.Second
	DefaultSubmitRetries         = 3
	DefaultSubmitRetryDelay      = 2 * time.Second
	DefaultSwapReceiptTimeout    = 180 * time.Second
	DefaultApproveReceiptTimeout = 120 * time.Second

	maxSlippagePercent = 50
)

// Signer signs transactions for a single account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type TraderConfig struct {
	Chain     blockchain.ChainClient
	Signer    Signer
	ChainID   *big.Int
	Router    common.Address
	Positions storage.Positions
	Publisher events.Publisher
	Logger    *zap.Logger
	Metrics   *metrics.Collector

	GasMultiplier         float64
	GasLimit              uint64
	ApproveGasLimit       uint64
	SwapDeadline          time.Duration
	SubmitRetries         int
	SubmitRetryDelay      time.Duration
	SwapReceiptTimeout    time.Duration
	ApproveReceiptTimeout time.Duration

	Now func() time.Time
}

// TradeResult describes a swap attempt that reached the chain.
type TradeResult struct {
	TradeID      string
	Pair         string
	ApproveTx    common.Hash // zero when the allowance was already sufficient
	SwapTx       common.Hash
	AmountIn     *big.Int
	AmountOutMin *big.Int
	GasPrice     *big.Int
}

// Trader turns a triggered target into one confirmed swap.
type Trader struct {
	chain     blockchain.ChainClient
	signer    Signer
	chainID   *big.Int
	router    common.Address
	positions storage.Positions
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *metrics.Collector

	gasMultiplier         float64
	gasLimit              uint64
	approveGasLimit       uint64
	swapDeadline          time.Duration
	submitRetries         int
	submitRetryDelay      time.Duration
	swapReceiptTimeout    time.Duration
	approveReceiptTimeout time.Duration

	now func() time.Time
}

func NewTrader(cfg TraderConfig) *Trader {
	t := &Trader{
		chain:                 cfg.Chain,
		signer:                cfg.Signer,
		chainID:               cfg.ChainID,
		router:                cfg.Router,
		positions:             cfg.Positions,
		publisher:             cfg.Publisher,
		logger:                cfg.Logger.Named("trader"),
		metrics:               cfg.Metrics,
		gasMultiplier:         cfg.GasMultiplier,
		gasLimit:              cfg.GasLimit,
		approveGasLimit:       cfg.ApproveGasLimit,
		swapDeadline:          cfg.SwapDeadline,
		submitRetries:         cfg.SubmitRetries,
		submitRetryDelay:      cfg.SubmitRetryDelay,
		swapReceiptTimeout:    cfg.SwapReceiptTimeout,
		approveReceiptTimeout: cfg.ApproveReceiptTimeout,
		now:                   cfg.Now,
	}

	if t.publisher == nil {
		t.publisher = events.Discard
	}
	if t.gasMultiplier <= 0 {
		t.gasMultiplier = DefaultGasMultiplier
	}
	if t.gasLimit == 0 {
		t.gasLimit = DefaultGasLimit
	}
	if t.approveGasLimit == 0 {
		t.approveGasLimit = DefaultApproveGasLimit
	}
	if t.swapDeadline <= 0 {
		t.swapDeadline = DefaultSwapDeadline
	}
	if t.submitRetries <= 0 {
		t.submitRetries = DefaultSubmitRetries
	}
	if t.submitRetryDelay <= 0 {
		t.submitRetryDelay = DefaultSubmitRetryDelay
	}
	if t.swapReceiptTimeout <= 0 {
		t.swapReceiptTimeout = DefaultSwapReceiptTimeout
	}
	if t.approveReceiptTimeout <= 0 {
		t.approveReceiptTimeout = DefaultApproveReceiptTimeout
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Execute validates target, swaps, waits for the receipt and records the pair.
// The pair is recorded only after a successful receipt. Every outcome is published.
func (t *Trader) Execute(ctx context.Context, target task.Target) (*TradeResult, error) {
	res := &TradeResult{TradeID: uuid.New().String(), Pair: target.Key()}
	log := t.logger.With(
		zap.String("trade_id", res.TradeID),
		zap.String("target", target.Label()),
		zap.String("pair", res.Pair))

	start := time.Now()
	err := t.execute(ctx, target, res, log)
	elapsed := time.Since(start)

	if err != nil {
		status := "failed"
		switch {
		case errors.Is(err, ErrValidation):
			status = "rejected"
			elapsed = 0
		case errors.Is(err, ErrReverted):
			status = "reverted"
		}
		t.metrics.RecordSwap(status, elapsed)

		log.Error("Swap failed", zap.String("status", status), zap.Error(err))
		var txHash string
		if res.SwapTx != (common.Hash{}) {
			txHash = res.SwapTx.Hex()
		}
		_ = t.publisher.Publish(events.NewSwapFailed(res.TradeID, target.Label(), res.Pair, txHash, err))
		return res, err
	}

	t.metrics.RecordSwap("success", elapsed)
	log.Info("Swap confirmed",
		zap.String("tx", res.SwapTx.Hex()),
		zap.Duration("elapsed", elapsed))
	_ = t.publisher.Publish(events.NewSwapSucceeded(res.TradeID, target.Label(), res.Pair, res.SwapTx.Hex()))
	return res, nil
}

func (t *Trader) execute(ctx context.Context, target task.Target, res *TradeResult, log *zap.Logger) error {
	if err := t.validate(target); err != nil {
		return err
	}

	base := common.HexToAddress(target.BaseToken)
	quote := common.HexToAddress(target.QuoteToken)
	path := uniswapv2.BuyPath(quote, base)

	decimals, err := t.chain.Decimals(ctx, quote)
	if err != nil {
		log.Warn("decimals() unavailable, assuming default",
			zap.Uint8("decimals", uniswapv2.DefaultDecimals), zap.Error(err))
		decimals = uniswapv2.DefaultDecimals
	}

	res.AmountIn = uniswapv2.ToBaseUnits(target.AmountIn, decimals)
	if res.AmountIn.Sign() <= 0 {
		return invalid("amount_in %v is below one base unit", target.AmountIn)
	}

	approveTx, err := t.ensureAllowance(ctx, quote, res.AmountIn, log)
	if err != nil {
		return err
	}
	res.ApproveTx = approveTx

	amounts, err := t.chain.GetAmountsOut(ctx, t.router, res.AmountIn, path)
	if err != nil {
		return fmt.Errorf("quote amounts out: %w", err)
	}
	if len(amounts) == 0 {
		return errors.New("quote amounts out: empty result")
	}
	res.AmountOutMin = uniswapv2.MinAmountOut(amounts[len(amounts)-1], target.SlippageOrDefault())

	deadline := big.NewInt(t.now().Add(t.swapDeadline).Unix())
	data, err := blockchain.PackSwapExactTokensForTokens(res.AmountIn, res.AmountOutMin, path, t.signer.Address(), deadline)
	if err != nil {
		return fmt.Errorf("pack swap: %w", err)
	}

	tx, err := t.buildAndSign(ctx, t.router, data, t.gasLimit)
	if err != nil {
		return err
	}
	res.GasPrice = tx.GasPrice()

	log.Info("Submitting swap",
		zap.String("amount_in", res.AmountIn.String()),
		zap.String("amount_out_min", res.AmountOutMin.String()),
		zap.Uint64("nonce", tx.Nonce()),
		zap.String("gas_price", res.GasPrice.String()))

	hash, err := t.submit(ctx, tx, log)
	if err != nil {
		return err
	}
	res.SwapTx = hash

	receipt, err := t.chain.WaitReceipt(ctx, hash, t.swapReceiptTimeout)
	if err != nil {
		return fmt.Errorf("wait swap receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: swap %s", ErrReverted, hash.Hex())
	}

	if err := t.positions.Add(res.Pair); err != nil {
		log.Error("Swap confirmed but position not persisted", zap.Error(err))
	}
	return nil
}

func (t *Trader) validate(target task.Target) error {
	for _, f := range []struct{ name, addr string }{
		{"pair", target.PairAddress},
		{"base_token", target.BaseToken},
		{"quote_token", target.QuoteToken},
	} {
		if !common.IsHexAddress(f.addr) {
			return invalid("%s %q is not an address", f.name, f.addr)
		}
	}
	if target.Direction == task.DirectionSell {
		return invalid("SELL execution is not supported")
	}
	if target.AmountIn <= 0 {
		return invalid("amount_in must be positive, got %v", target.AmountIn)
	}
	if s := target.SlippageOrDefault(); s <= 0 || s >= maxSlippagePercent {
		return invalid("slippage must be in (0, %d), got %v", maxSlippagePercent, s)
	}
	if t.positions.Has(target.Key()) {
		return ErrAlreadyExecuted
	}
	return nil
}

// ensureAllowance approves the router for the max amount when the current
// allowance does not cover amount, and waits for that approval to be mined.
func (t *Trader) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int, log *zap.Logger) (common.Hash, error) {
	owner := t.signer.Address()
	current, err := t.chain.Allowance(ctx, token, owner, t.router)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read allowance: %w", err)
	}
	if current.Cmp(amount) >= 0 {
		return common.Hash{}, nil
	}

	log.Info("Approving router", zap.String("token", token.Hex()), zap.String("allowance", current.String()))

	data, err := blockchain.PackApprove(t.router, blockchain.MaxUint256)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack approve: %w", err)
	}
	tx, err := t.buildAndSign(ctx, token, data, t.approveGasLimit)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := t.submit(ctx, tx, log)
	if err != nil {
		return common.Hash{}, fmt.Errorf("approve: %w", err)
	}

	receipt, err := t.chain.WaitReceipt(ctx, hash, t.approveReceiptTimeout)
	if err != nil {
		return hash, fmt.Errorf("wait approve receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash, fmt.Errorf("%w: approve %s", ErrReverted, hash.Hex())
	}
	log.Info("Router approved", zap.String("tx", hash.Hex()))
	return hash, nil
}

// buildAndSign creates a legacy transaction with a fresh nonce and a scaled gas price.
func (t *Trader) buildAndSign(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Transaction, error) {
	nonce, err := t.chain.PendingNonceAt(ctx, t.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	suggested, err := t.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    new(big.Int),
		Gas:      gasLimit,
		GasPrice: uniswapv2.ScaleGasPrice(suggested, t.gasMultiplier),
		Data:     data,
	})
	signed, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return nil, err
	}
	return signed, nil
}

// submit broadcasts tx, retrying any rejection with a constant delay. The same
// signed bytes are resent, so a retry can never double-spend. The one exception
// is "nonce too low": if the node does not know our hash, the nonce was taken by
// another transaction and tx is re-signed with a fresh nonce.
func (t *Trader) submit(ctx context.Context, tx *types.Transaction, log *zap.Logger) (common.Hash, error) {
	attempts := 0
	op := func() (common.Hash, error) {
		attempts++
		err := t.chain.SendTransaction(ctx, tx)
		if err == nil || isAlreadyKnown(err) {
			return tx.Hash(), nil
		}
		if !blockchain.IsNonceTooLow(err) {
			return common.Hash{}, err
		}

		known, kerr := t.chain.TransactionKnown(ctx, tx.Hash())
		if kerr != nil {
			return common.Hash{}, errors.Join(err, kerr)
		}
		if known {
			// An earlier attempt landed; its response was lost.
			return tx.Hash(), nil
		}
		resigned, rerr := t.resign(ctx, tx)
		if rerr != nil {
			return common.Hash{}, errors.Join(err, rerr)
		}
		log.Warn("Nonce taken by another transaction, re-signed",
			zap.Uint64("old_nonce", tx.Nonce()),
			zap.Uint64("new_nonce", resigned.Nonce()))
		tx = resigned
		return common.Hash{}, err
	}
	notify := func(err error, next time.Duration) {
		log.Warn("Broadcast rejected, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", next),
			zap.Bool("transient", blockchain.IsRetryable(err)),
			zap.Error(err))
	}

	hash, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(t.submitRetryDelay)),
		backoff.WithMaxTries(uint(t.submitRetries)),
		backoff.WithNotify(notify))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w after %d attempts: %w", ErrSubmitFailed, attempts, err)
	}
	return hash, nil
}

// resign rebuilds tx with the account's current pending nonce, keeping every
// other field.
func (t *Trader) resign(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	nonce, err := t.chain.PendingNonceAt(ctx, t.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return t.signer.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       tx.To(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Data:     tx.Data(),
	}), t.chainID)
}

// isAlreadyKnown reports a node saying it already has this exact transaction,
// which happens when an earlier attempt reached the mempool but its response was lost.
func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
