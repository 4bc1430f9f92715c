// internal/sniping/scanner.go
package sniping

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
	"github.com/rovshanmuradov/evm-sniper/internal/events"
	"github.com/rovshanmuradov/evm-sniper/internal/metrics"
	"github.com/rovshanmuradov/evm-sniper/internal/storage"
	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

// DefaultPollInterval is the pause between two poll cycles.
const DefaultPollInterval = 3 * time.Second

type ScannerConfig struct {
	Targets      []task.Target
	Reader       blockchain.PairReader
	Positions    storage.Positions
	Publisher    events.Publisher
	PollInterval time.Duration
	Logger       *zap.Logger
	Metrics      *metrics.Collector
}

// Scanner polls pair reserves and queues each target at most once per process.
type Scanner struct {
	targets   []task.Target
	reader    blockchain.PairReader
	positions storage.Positions
	publisher events.Publisher
	interval  time.Duration
	logger    *zap.Logger
	metrics   *metrics.Collector

	mu        sync.Mutex
	triggered map[string]struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard
	}
	return &Scanner{
		targets:   append([]task.Target(nil), cfg.Targets...),
		reader:    cfg.Reader,
		positions: cfg.Positions,
		publisher: cfg.Publisher,
		interval:  cfg.PollInterval,
		logger:    cfg.Logger.Named("scanner"),
		metrics:   cfg.Metrics,
		triggered: make(map[string]struct{}),
		stop:      make(chan struct{}),
	}
}

// Start polls until Stop is called or ctx is done. Fired targets are sent on out.
func (s *Scanner) Start(ctx context.Context, out chan<- task.Target) error {
	s.logger.Info("Scanner started",
		zap.Int("targets", len(s.targets)),
		zap.Duration("interval", s.interval))
	_ = s.publisher.Publish(events.NewScannerStarted(len(s.targets), s.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scanner stopped", zap.String("reason", "context done"))
			return nil
		case <-s.stop:
			s.logger.Info("Scanner stopped")
			return nil
		default:
		}

		s.PollOnce(ctx, out)

		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
		case <-s.stop:
		case <-timer.C:
		}
	}
}

// Stop ends the poll loop. Safe to call more than once.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// PollOnce runs one sequential pass over all targets and returns how many were queued.
func (s *Scanner) PollOnce(ctx context.Context, out chan<- task.Target) int {
	queued := 0
	for _, t := range s.targets {
		if ctx.Err() != nil {
			break
		}
		if s.check(ctx, t, out) {
			queued++
		}
	}
	s.metrics.PollCompleted()
	return queued
}

func (s *Scanner) check(ctx context.Context, t task.Target, out chan<- task.Target) bool {
	key := t.Key()
	if s.Triggered(key) || s.positions.Has(key) {
		return false
	}

	log := s.logger.With(zap.String("target", t.Label()), zap.String("pair", key))

	if !common.IsHexAddress(t.PairAddress) {
		log.Warn("Skipping target with malformed pair address")
		s.metrics.ScanError()
		return false
	}

	reserves, err := s.reader.GetReserves(ctx, common.HexToAddress(t.PairAddress))
	if err != nil {
		log.Warn("Failed to read reserves", zap.Error(err))
		s.metrics.ScanError()
		return false
	}

	ev := Evaluate(t, reserves)
	if !ev.Infinite {
		liq, _ := ev.Liquidity.Float64()
		s.metrics.UpdatePair(key, ev.Price.InexactFloat64(), liq)
	}
	log.Debug("Pair evaluated",
		zap.String("price", ev.PriceString()),
		zap.String("liquidity", ev.Liquidity.String()),
		zap.Bool("fired", ev.Fired))
	if !ev.Fired {
		return false
	}

	select {
	case out <- t:
	case <-ctx.Done():
		return false
	case <-s.stop:
		return false
	}

	s.mu.Lock()
	s.triggered[key] = struct{}{}
	s.mu.Unlock()
	s.metrics.TargetTriggered()

	executable := t.Direction != task.DirectionSell
	log.Info("Target hit",
		zap.String("direction", string(t.Direction)),
		zap.String("price", ev.PriceString()),
		zap.String("liquidity", ev.Liquidity.String()),
		zap.Bool("executable", executable))
	if !executable {
		log.Warn("SELL targets are watched only; the trader will reject this swap")
	}
	_ = s.publisher.Publish(events.NewTargetTriggered(
		t.Label(), key, string(t.Direction), ev.PriceString(), ev.Liquidity.String()))
	return true
}

// Triggered reports whether pair was queued during this process lifetime.
func (s *Scanner) Triggered(pair string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggered[task.PairKey(pair)]
	return ok
}

// Rearm makes pair eligible again on the next cycle.
func (s *Scanner) Rearm(pair string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.triggered, task.PairKey(pair))
}
