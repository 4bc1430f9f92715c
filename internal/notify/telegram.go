// internal/notify/telegram.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every Bot API request so a stuck send cannot hold up
// the event bus.
const DefaultTimeout = 10 * time.Second

// Telegram sends notifications to a single chat through the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram authorizes the bot token against endpoint. An empty endpoint
// means the public Bot API.
func NewTelegram(token string, chatID int64, endpoint string, client *http.Client, logger *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	logger = logger.Named("telegram")
	logger.Info("Telegram notifications enabled", zap.String("bot", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// New returns a Telegram notifier when token and chatID are set and the Bot API
// accepts them. Otherwise it falls back to the log: notifications must never
// keep the sniper from starting.
func New(token string, chatID int64, endpoint string, client *http.Client, logger *zap.Logger) Notifier {
	if token == "" || chatID == 0 {
		logger.Info("Telegram not configured, notifications go to the log")
		return NewLog(logger)
	}
	tg, err := NewTelegram(token, chatID, endpoint, client, logger)
	if err != nil {
		logger.Warn("Telegram unavailable, notifications go to the log", zap.Error(err))
		return NewLog(logger)
	}
	return tg
}
