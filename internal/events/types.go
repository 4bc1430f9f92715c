// internal/events/types.go
package events

import (
	"context"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	ScannerStarted  EventType = "scanner.started"
	TargetTriggered EventType = "target.triggered"
	SwapSucceeded   EventType = "swap.succeeded"
	SwapFailed      EventType = "swap.failed"
)

// AllTypes lists every event the pipeline emits.
var AllTypes = []EventType{ScannerStarted, TargetTriggered, SwapSucceeded, SwapFailed}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(event Event) error
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription can be cancelled.
type Subscription interface {
	Unsubscribe()
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// ScannerStartedEvent is emitted once when the poll loop begins.
type ScannerStartedEvent struct {
	BaseEvent
	Targets      int
	PollInterval time.Duration
}

// TargetTriggeredEvent is emitted when a target is queued for execution.
type TargetTriggeredEvent struct {
	BaseEvent
	Name      string
	Pair      string
	Direction string
	Price     string // raw reserve ratio, decimal string
	Liquidity string // raw quote-side reserve
}

// SwapSucceededEvent is emitted after a successful receipt.
type SwapSucceededEvent struct {
	BaseEvent
	TradeID string
	Name    string
	Pair    string
	TxHash  string
}

// SwapFailedEvent is emitted for any failed execution.
type SwapFailedEvent struct {
	BaseEvent
	TradeID string
	Name    string
	Pair    string
	TxHash  string // empty unless a transaction was mined
	Err     error
}

func NewScannerStarted(targets int, interval time.Duration) ScannerStartedEvent {
	return ScannerStartedEvent{BaseEvent: newBase(ScannerStarted), Targets: targets, PollInterval: interval}
}

func NewTargetTriggered(name, pair, direction, price, liquidity string) TargetTriggeredEvent {
	return TargetTriggeredEvent{
		BaseEvent: newBase(TargetTriggered),
		Name:      name,
		Pair:      pair,
		Direction: direction,
		Price:     price,
		Liquidity: liquidity,
	}
}

func NewSwapSucceeded(tradeID, name, pair, txHash string) SwapSucceededEvent {
	return SwapSucceededEvent{BaseEvent: newBase(SwapSucceeded), TradeID: tradeID, Name: name, Pair: pair, TxHash: txHash}
}

func NewSwapFailed(tradeID, name, pair, txHash string, err error) SwapFailedEvent {
	return SwapFailedEvent{BaseEvent: newBase(SwapFailed), TradeID: tradeID, Name: name, Pair: pair, TxHash: txHash, Err: err}
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) error { return nil }
