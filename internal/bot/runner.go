// internal/bot/runner.go
package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

// DefaultQueueSize bounds the handoff between scanner and trader.
const DefaultQueueSize = 16

// TargetSource produces fired targets. *sniping.Scanner implements it.
type TargetSource interface {
	Start(ctx context.Context, out chan<- task.Target) error
	Stop()
	Rearm(pair string)
}

// Executor runs one trade. *Trader implements it.
type Executor interface {
	Execute(ctx context.Context, target task.Target) (*TradeResult, error)
}

type RunnerConfig struct {
	Source         TargetSource
	Executor       Executor
	QueueSize      int
	RearmOnFailure bool
	Logger         *zap.Logger
}

// Runner connects a TargetSource to an Executor through a FIFO queue and
// executes trades one at a time.
type Runner struct {
	source    TargetSource
	executor  Executor
	queueSize int
	rearm     bool
	logger    *zap.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Runner{
		source:    cfg.Source,
		executor:  cfg.Executor,
		queueSize: cfg.QueueSize,
		rearm:     cfg.RearmOnFailure,
		logger:    cfg.Logger.Named("runner"),
	}
}

// Run blocks until ctx is cancelled. On cancellation the source is stopped
// and awaited; a trade already in progress is finished first.
func (r *Runner) Run(ctx context.Context) error {
	queue := make(chan task.Target, r.queueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.source.Start(gctx, queue)
	})
	g.Go(func() error {
		r.consume(gctx, queue)
		return nil
	})

	err := g.Wait()
	r.logger.Info("Runner stopped")
	return err
}

func (r *Runner) consume(ctx context.Context, queue <-chan task.Target) {
	defer r.source.Stop()

	for {
		// Cancellation wins over a ready queue item.
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case t := <-queue:
			r.execute(ctx, t)
		}
	}
}

func (r *Runner) execute(ctx context.Context, t task.Target) {
	r.logger.Info("Executing target", zap.String("target", t.Label()), zap.String("pair", t.Key()))

	// Shutdown must not interrupt a transaction between signing and recording.
	_, err := r.executor.Execute(context.WithoutCancel(ctx), t)
	if err == nil {
		return
	}

	if r.rearm && !errors.Is(err, ErrValidation) {
		r.logger.Info("Re-arming target after failure", zap.String("pair", t.Key()))
		r.source.Rearm(t.Key())
	}
}
