package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const targetsYAML = `
targets:
  - name: cake
    pair: "0x0ed7e52944161450477ee417de9cd3a859b14fd0"
    base_token: "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
    quote_token: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
    trigger_price: 500
    amount_in: 0.1
    min_liquidity: 10000
  - name: sell-side
    pair: "0x58F876857a02D6762E0101bb5C46A8c1ED44Dc16"
    base_token: "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"
    trigger_price: 300
    direction: sell
    slippage: 2
  - name: duplicate
    pair: "0x0ED7E52944161450477EE417DE9CD3A859B14FD0"
    base_token: "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
    trigger_price: 1
  - name: no-trigger
    pair: "0x1111111111111111111111111111111111111111"
  - name: no-pair
    trigger_price: 10
  - name: weird-direction
    pair: "0x2222222222222222222222222222222222222222"
    trigger_price: 10
    base_token: "0x3333333333333333333333333333333333333333"
    direction: hold
  - name: no-base
    pair: "0x4444444444444444444444444444444444444444"
    trigger_price: 10
`

func TestParseTargets(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	targets, err := m.ParseTargets([]byte(targetsYAML))
	require.NoError(t, err)
	require.Len(t, targets, 2)

	cake := targets[0]
	assert.Equal(t, "cake", cake.Name)
	assert.Equal(t, DirectionBuy, cake.Direction)
	assert.Equal(t, 0.1, cake.AmountIn)
	assert.Equal(t, 10000.0, cake.MinLiquidity)
	assert.Equal(t, DefaultSlippagePercent, cake.Slippage)
	assert.Equal(t, common.HexToAddress(cake.PairAddress).Hex(), cake.Key())

	sell := targets[1]
	assert.Equal(t, DirectionSell, sell.Direction)
	assert.Equal(t, 2.0, sell.Slippage)
	assert.Zero(t, sell.MinLiquidity)
}

func TestParseTargets_SkipsMissingBaseToken(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	targets, err := m.ParseTargets([]byte(targetsYAML))
	require.NoError(t, err)
	for _, tg := range targets {
		assert.NotEqual(t, "no-base", tg.Name)
		assert.NotEmpty(t, tg.BaseToken)
	}

	_, err = m.ParseTargets([]byte("targets:\n  - pair: \"0x4444444444444444444444444444444444444444\"\n    trigger_price: 10\n"))
	assert.Error(t, err)
}

func TestParseTargets_DefaultQuoteToken(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.SetDefaultQuoteToken("0xBB4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")

	targets, err := m.ParseTargets([]byte(targetsYAML))
	require.NoError(t, err)
	assert.Equal(t, "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", targets[0].QuoteToken)
	assert.Equal(t, "0xBB4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", targets[1].QuoteToken)
}

func TestParseTargets_NoValidTargets(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	_, err := m.ParseTargets([]byte("targets:\n  - name: x\n"))
	assert.Error(t, err)

	_, err = m.ParseTargets([]byte("targets: []\n"))
	assert.Error(t, err)

	_, err = m.ParseTargets([]byte("targets: ["))
	assert.Error(t, err)
}

func TestLoadTargets_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(targetsYAML), 0o600))

	targets, err := NewManager(zaptest.NewLogger(t)).LoadTargets(path)
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	_, err = NewManager(zaptest.NewLogger(t)).LoadTargets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTarget_Helpers(t *testing.T) {
	tg := Target{PairAddress: "0xabc"}
	assert.Equal(t, "0xabc", tg.Key())
	assert.Equal(t, "0xabc", tg.Label())
	assert.Equal(t, DefaultSlippagePercent, tg.SlippageOrDefault())

	tg.Name = "named"
	tg.Slippage = 3
	assert.Equal(t, "named", tg.Label())
	assert.Equal(t, 3.0, tg.SlippageOrDefault())
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": DirectionBuy, "buy": DirectionBuy, " Sell ": DirectionSell} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("short")
	assert.Error(t, err)
}
