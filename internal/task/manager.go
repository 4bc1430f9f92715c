package task

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads Target definitions.
type Manager struct {
	logger       *zap.Logger
	defaultQuote string
}

// TargetsFile is the YAML layout of the targets file.
type TargetsFile struct {
	Targets []struct {
		Name         string  `yaml:"name"`
		Pair         string  `yaml:"pair"`
		BaseToken    string  `yaml:"base_token"`
		QuoteToken   string  `yaml:"quote_token"`
		TriggerPrice float64 `yaml:"trigger_price"`
		Direction    string  `yaml:"direction"`
		AmountIn     float64 `yaml:"amount_in"`
		MinLiquidity float64 `yaml:"min_liquidity"`
		Slippage     float64 `yaml:"slippage"`
	} `yaml:"targets"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// SetDefaultQuoteToken fills quote_token for entries that omit it, normally
// with the chain's wrapped native token.
func (m *Manager) SetDefaultQuoteToken(addr string) {
	m.defaultQuote = addr
}

// LoadTargets reads targets from a YAML file.
//
// Entries without a pair, with a non-positive trigger price, with an unknown
// direction or with a pair already seen are skipped with a warning. Address
// format is not checked here; the trader rejects malformed addresses.
func (m *Manager) LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.ParseTargets(data)
}

// ParseTargets decodes and filters a YAML targets document.
func (m *Manager) ParseTargets(data []byte) ([]Target, error) {
	var file TargetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets found in configuration")
	}

	seen := make(map[string]struct{}, len(file.Targets))
	targets := make([]Target, 0, len(file.Targets))
	for _, raw := range file.Targets {
		if raw.Pair == "" || raw.TriggerPrice <= 0 {
			m.logger.Warn("Skipping target with missing pair or trigger price",
				zap.String("name", raw.Name),
				zap.String("pair", raw.Pair),
				zap.Float64("trigger_price", raw.TriggerPrice))
			continue
		}

		// Without a base token the reserves cannot be oriented.
		if raw.BaseToken == "" {
			m.logger.Warn("Skipping target with missing base token",
				zap.String("name", raw.Name),
				zap.String("pair", raw.Pair))
			continue
		}

		dir, err := ParseDirection(raw.Direction)
		if err != nil {
			m.logger.Warn("Skipping invalid target", zap.String("name", raw.Name), zap.Error(err))
			continue
		}

		t := Target{
			Name:         raw.Name,
			PairAddress:  raw.Pair,
			BaseToken:    raw.BaseToken,
			QuoteToken:   raw.QuoteToken,
			TriggerPrice: raw.TriggerPrice,
			Direction:    dir,
			AmountIn:     raw.AmountIn,
			MinLiquidity: raw.MinLiquidity,
			Slippage:     raw.Slippage,
		}
		if t.QuoteToken == "" {
			t.QuoteToken = m.defaultQuote
		}
		if t.Slippage == 0 {
			t.Slippage = DefaultSlippagePercent
		}

		if _, dup := seen[t.Key()]; dup {
			m.logger.Warn("Skipping duplicate pair", zap.String("name", t.Name), zap.String("pair", t.Key()))
			continue
		}
		seen[t.Key()] = struct{}{}
		targets = append(targets, t)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid targets loaded")
	}

	m.logger.Info("Loaded targets", zap.Int("count", len(targets)))
	return targets, nil
}
