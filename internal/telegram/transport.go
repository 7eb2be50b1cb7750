// Package telegram adapts Telegram updates to orchestrator actions and
// renders the orchestrator's replies back into messages and inline keyboards.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/bot"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// Transport long-polls Telegram and dispatches each update on its own
// goroutine, so a slow remote call in one conversation never blocks another.
type Transport struct {
	api    *tgbotapi.BotAPI
	orch   *bot.Orchestrator
	logger *slog.Logger
}

func New(token string, orch *bot.Orchestrator, logger *slog.Logger) (*Transport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Transport{api: api, orch: orch, logger: logger}, nil
}

// Run polls for updates until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	t.logger.Info("telegram transport started", "bot", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.logger.Info("telegram transport stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go t.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update. A panic in a handler is logged and answered
// with a generic error; it never takes the process down.
func (t *Transport) dispatch(ctx context.Context, update tgbotapi.Update) {
	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic while handling update", "error", r)
			if chatID != 0 {
				t.send(chatID, models.Reply{Text: "⚠️ Something went wrong. Please try again later."})
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		chatID = q.Message.Chat.ID
		if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			t.logger.Error("failed to answer callback", "error", err)
		}
		reply := t.orch.HandleAction(ctx, q.From.ID, q.Data)
		t.edit(chatID, q.Message.MessageID, reply)

	case update.Message != nil && update.Message.IsCommand():
		chatID = update.Message.Chat.ID
		reply := t.orch.HandleCommand(ctx, update.Message.From.ID, update.Message.Command())
		t.send(chatID, reply)

	case update.Message != nil && update.Message.Text != "":
		chatID = update.Message.Chat.ID
		reply := t.orch.HandleText(ctx, update.Message.From.ID, update.Message.Text)
		t.send(chatID, reply)
	}
}

func (t *Transport) send(chatID int64, reply models.Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	applyOptions(&msg, reply)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// edit rewrites the message the pressed keyboard was attached to, falling
// back to a fresh message if Telegram refuses the edit.
func (t *Transport) edit(chatID int64, messageID int, reply models.Reply) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
	if reply.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	msg.DisableWebPagePreview = reply.NoPreview
	if kb := keyboard(reply); kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("failed to edit message", "chat_id", chatID, "error", err)
		t.send(chatID, reply)
	}
}

func applyOptions(msg *tgbotapi.MessageConfig, reply models.Reply) {
	if reply.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	msg.DisableWebPagePreview = reply.NoPreview
	if kb := keyboard(reply); kb != nil {
		msg.ReplyMarkup = *kb
	}
}

func keyboard(reply models.Reply) *tgbotapi.InlineKeyboardMarkup {
	if len(reply.Keyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Keyboard))
	for _, row := range reply.Keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
