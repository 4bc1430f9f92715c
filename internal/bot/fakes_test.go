// internal/bot/fakes_test.go
package bot

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
	"github.com/rovshanmuradov/evm-sniper/internal/events"
	"github.com/rovshanmuradov/evm-sniper/internal/storage"
	"github.com/rovshanmuradov/evm-sniper/internal/task"
	"github.com/rovshanmuradov/evm-sniper/internal/wallet"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var (
	testPair   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testBase   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testQuote  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testRouter = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testNow    = time.Unix(1_700_000_000, 0)
)

// fakeChain is an in-memory chain: sent transactions are mined on the first
// receipt lookup, and a mined approve raises the allowance to max.
type fakeChain struct {
	mu sync.Mutex

	calls       int
	sendCalls   int
	decimals    uint8
	decimalsErr error
	allowance   *big.Int
	amountsOut  []*big.Int
	sendErrs    []error
	mempool     map[common.Hash]bool
	revert      map[common.Address]bool
	reserves    *blockchain.Reserves
	gasPrice    *big.Int
	nonce       uint64
	sent        []*types.Transaction
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		decimals:   18,
		allowance:  new(big.Int),
		amountsOut: []*big.Int{big.NewInt(0), big.NewInt(1000)},
		revert:     make(map[common.Address]bool),
		mempool:    make(map[common.Hash]bool),
		gasPrice:   big.NewInt(5_000_000_000),
		nonce:      7,
	}
}

func (f *fakeChain) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeChain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChain) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeChain) sentTxs() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func (f *fakeChain) GetReserves(context.Context, common.Address) (*blockchain.Reserves, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserves == nil {
		return nil, errors.New("no reserves")
	}
	return f.reserves, nil
}

func (f *fakeChain) Decimals(context.Context, common.Address) (uint8, error) {
	f.hit()
	return f.decimals, f.decimalsErr
}

func (f *fakeChain) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeChain) GetAmountsOut(_ context.Context, _ common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	f.hit()
	return f.amountsOut, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.hit()
	return f.gasPrice, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			// Another transaction used the nonce.
			if blockchain.IsNonceTooLow(err) {
				f.nonce++
			}
			return err
		}
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionKnown(_ context.Context, hash common.Hash) (bool, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mempool[hash], nil
}

func (f *fakeChain) WaitReceipt(_ context.Context, hash common.Hash, _ time.Duration) (*types.Receipt, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() != hash {
			continue
		}
		f.nonce++
		if f.revert[*tx.To()] {
			return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: hash}, nil
		}
		if *tx.To() != testRouter {
			f.allowance = new(big.Int).Set(blockchain.MaxUint256)
		}
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
	}
	return nil, blockchain.ErrReceiptTimeout
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func testTarget() task.Target {
	return task.Target{
		Name:         "cake",
		PairAddress:  testPair.Hex(),
		BaseToken:    testBase.Hex(),
		QuoteToken:   testQuote.Hex(),
		TriggerPrice: 500,
		Direction:    task.DirectionBuy,
		AmountIn:     0.1,
		MinLiquidity: 10_000,
		Slippage:     1.0,
	}
}

func newTestPositions(t *testing.T) *storage.PositionTracker {
	t.Helper()
	return storage.NewPositionTracker(filepath.Join(t.TempDir(), "positions.json"), zaptest.NewLogger(t))
}

func newTestTrader(t *testing.T, chain *fakeChain, positions storage.Positions, pub events.Publisher) *Trader {
	t.Helper()
	w, err := wallet.NewWallet(testKey)
	require.NoError(t, err)
	return NewTrader(TraderConfig{
		Chain:            chain,
		Signer:           w,
		ChainID:          big.NewInt(56),
		Router:           testRouter,
		Positions:        positions,
		Publisher:        pub,
		Logger:           zaptest.NewLogger(t),
		SubmitRetryDelay: time.Millisecond,
		Now:              func() time.Time { return testNow },
	})
}
