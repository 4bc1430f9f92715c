// internal/events/bus_test.go
package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu   sync.Mutex
	seen []EventType
}

func (r *recorder) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e.Type())
	return nil
}

func (r *recorder) events() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventType(nil), r.seen...)
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	rec := &recorder{}
	for _, typ := range AllTypes {
		bus.Subscribe(typ, rec)
	}

	require.NoError(t, bus.Publish(NewScannerStarted(1, time.Second)))
	require.NoError(t, bus.Publish(NewTargetTriggered("t", "0xabc", "BUY", "480", "15000")))
	require.NoError(t, bus.Publish(NewSwapSucceeded("id", "t", "0xabc", "0xhash")))
	require.NoError(t, bus.Publish(NewSwapFailed("id", "t", "0xdef", "", errors.New("boom"))))

	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Equal(t, []EventType{ScannerStarted, TargetTriggered, SwapSucceeded, SwapFailed}, rec.events())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	rec := &recorder{}
	sub := bus.Subscribe(SwapSucceeded, rec)

	require.NoError(t, bus.PublishSync(context.Background(), NewSwapSucceeded("1", "a", "b", "c")))
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), NewSwapSucceeded("2", "a", "b", "c")))

	assert.Len(t, rec.events(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestBus_HandlerErrorIsReported(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	boom := errors.New("boom")
	bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), NewSwapFailed("", "", "", "", nil))
	assert.ErrorIs(t, err, boom)
	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestBus_PublishAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(NewScannerStarted(0, 0)), ErrBusClosed)
}

func TestBus_FullBufferDrops(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	release := make(chan struct{})
	bus.SubscribeFunc(ScannerStarted, func(context.Context, Event) error {
		<-release
		return nil
	})

	// First event is picked up and blocks the delivery goroutine, second fills
	// the buffer, so a third one has nowhere to go.
	require.NoError(t, bus.Publish(NewScannerStarted(0, 0)))
	require.Eventually(t, func() bool { return len(bus.eventChan) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(NewScannerStarted(0, 0)))
	assert.ErrorIs(t, bus.Publish(NewScannerStarted(0, 0)), ErrBufferFull)

	close(release)
	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(NewScannerStarted(0, 0)))
}
