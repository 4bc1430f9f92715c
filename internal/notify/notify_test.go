// internal/notify/notify_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/evm-sniper/internal/events"
)

type captureNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.err
}

func (c *captureNotifier) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestFormat(t *testing.T) {
	assert.Contains(t, Format(events.NewScannerStarted(2, 3*time.Second)), "2 target(s) every 3s")
	assert.Contains(t, Format(events.NewTargetTriggered("cake", "0xabc", "BUY", "480", "15000")), "price=480 liquidity=15000")
	assert.Contains(t, Format(events.NewSwapSucceeded("id", "cake", "0xabc", "0xfeed")), "tx 0xfeed")

	failed := Format(events.NewSwapFailed("id", "cake", "0xabc", "", errors.New("reverted")))
	assert.Contains(t, failed, "reverted")
	assert.NotContains(t, failed, " tx ")
}

func TestSubscribe_SwallowsNotifierErrors(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	n := &captureNotifier{err: errors.New("chat unreachable")}
	Subscribe(bus, n, zaptest.NewLogger(t))

	err := bus.PublishSync(context.Background(), events.NewSwapSucceeded("id", "cake", "0xabc", "0xfeed"))
	assert.NoError(t, err)

	require.NoError(t, bus.Publish(events.NewScannerStarted(1, time.Second)))
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Len(t, n.all(), 2)
}

func TestLog_Notify(t *testing.T) {
	assert.NoError(t, NewLog(zaptest.NewLogger(t)).Notify(context.Background(), "hello"))
}

func fakeTelegram(t *testing.T, sent *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "sniper", "username": "sniper_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			mu.Lock()
			*sent = append(*sent, r.Form.Get("text"))
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"result": map[string]any{
					"message_id": 1,
					"date":       0,
					"chat":       map[string]any{"id": 42, "type": "private"},
					"text":       r.Form.Get("text"),
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTelegram_Notify(t *testing.T) {
	var sent []string
	srv := fakeTelegram(t, &sent)
	defer srv.Close()

	tg, err := NewTelegram("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, tg.Notify(context.Background(), "swap confirmed"))
	assert.Equal(t, []string{"swap confirmed"}, sent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tg.Notify(ctx, "late"))
}

func TestNewTelegram_RequiresCredentials(t *testing.T) {
	_, err := NewTelegram("", 42, "", nil, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = NewTelegram("token", 0, "", nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNew_FallsBackToLogWhenBotAPIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client(), zaptest.NewLogger(t))
	require.IsType(t, &Log{}, n)
	assert.NoError(t, n.Notify(context.Background(), "swap confirmed"))
}

func TestNew_Unconfigured(t *testing.T) {
	assert.IsType(t, &Log{}, New("", 0, "", nil, zaptest.NewLogger(t)))
	assert.IsType(t, &Log{}, New("123:abc", 0, "", nil, zaptest.NewLogger(t)))
}

func TestNew_Telegram(t *testing.T) {
	var sent []string
	srv := fakeTelegram(t, &sent)
	defer srv.Close()

	n := New("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client(), zaptest.NewLogger(t))
	require.IsType(t, &Telegram{}, n)
	require.NoError(t, n.Notify(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, sent)
}

func TestNewTelegram_DefaultClientHasTimeout(t *testing.T) {
	var sent []string
	srv := fakeTelegram(t, &sent)
	defer srv.Close()

	tg, err := NewTelegram("123:abc", 42, srv.URL+"/bot%s/%s", nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	client, ok := tg.bot.Client.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, client.Timeout)
}

func TestTelegram_HungSendDoesNotBlockBus(t *testing.T) {
	release := make(chan struct{})
	var sent []string
	api := fakeTelegram(t, &sent)
	defer api.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		api.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	tg, err := NewTelegram("123:abc", 42, srv.URL+"/bot%s/%s", client, zaptest.NewLogger(t))
	require.NoError(t, err)

	bus := events.NewBus(zaptest.NewLogger(t), 4)
	Subscribe(bus, tg, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(events.NewSwapSucceeded("id", "cake", "0xabc", "0xfeed")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, bus.Shutdown(ctx))
}
