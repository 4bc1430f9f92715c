// internal/notify/notify.go
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-sniper/internal/events"
)

// Notifier delivers a plain text message somewhere a human will see it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Log writes notifications to the logger. Used when no chat is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) Notify(_ context.Context, text string) error {
	l.logger.Info(text)
	return nil
}

// Subscribe forwards every pipeline event to n. Delivery errors are logged
// and never reach the publisher.
func Subscribe(bus *events.Bus, n Notifier, logger *zap.Logger) []events.Subscription {
	logger = logger.Named("notify")
	handler := events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		text := Format(e)
		if text == "" {
			return nil
		}
		if err := n.Notify(ctx, text); err != nil {
			logger.Warn("Notification not delivered",
				zap.String("event_type", string(e.Type())),
				zap.Error(err))
		}
		return nil
	})

	subs := make([]events.Subscription, 0, len(events.AllTypes))
	for _, typ := range events.AllTypes {
		subs = append(subs, bus.Subscribe(typ, handler))
	}
	return subs
}

// Format renders an event as a single line of text.
func Format(e events.Event) string {
	switch ev := e.(type) {
	case events.ScannerStartedEvent:
		return fmt.Sprintf("Sniper started: watching %d target(s) every %s", ev.Targets, ev.PollInterval)
	case events.TargetTriggeredEvent:
		return fmt.Sprintf("Target hit: %s %s pair %s price=%s liquidity=%s",
			ev.Name, ev.Direction, ev.Pair, ev.Price, ev.Liquidity)
	case events.SwapSucceededEvent:
		return fmt.Sprintf("Swap confirmed: %s pair %s tx %s", ev.Name, ev.Pair, ev.TxHash)
	case events.SwapFailedEvent:
		msg := fmt.Sprintf("Swap failed: %s pair %s: %v", ev.Name, ev.Pair, ev.Err)
		if ev.TxHash != "" {
			msg += " tx " + ev.TxHash
		}
		return msg
	default:
		return ""
	}
}
