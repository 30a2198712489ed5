// Package notifier pushes operational notifications about training
// runs to Telegram. Entirely optional; the orchestrator works without
// one.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram sends training notifications to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", api.Self.UserName))

	return &Telegram{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Notify sends a message to the configured chat. Delivery failures are
// logged, never propagated; notifications must not affect training.
func (t *Telegram) Notify(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Failed to send Telegram notification", zap.Error(err))
	}
}
