package telegram

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of the bot API the adapter needs; tests substitute
// a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter sends assistant replies to a Telegram chat.
type Adapter struct {
	bot sender
}

// NewAdapter connects to the Bot API with the given token.
func NewAdapter(token string) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	slog.Info("telegram bot connected", "username", bot.Self.UserName)
	return &Adapter{bot: bot}, nil
}

// Send formats the text as Telegram HTML, truncates it to the message
// limit, and sends it. If Telegram rejects the HTML (malformed entities),
// the same text is retried as plain text.
func (a *Adapter) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, Truncate(FormatHTML(text)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := a.bot.Send(msg); err != nil {
		slog.Warn("HTML send rejected, retrying as plain text", "chat_id", chatID, "error", err)
		plain := tgbotapi.NewMessage(chatID, Truncate(text))
		if _, err := a.bot.Send(plain); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// ChatStore remembers the default delivery chat so proactive messages
// (heartbeat findings, push notifications) have somewhere to go. An
// explicitly configured chat ID always wins over the remembered one.
type ChatStore struct {
	path       string
	configured int64
}

// NewChatStore creates a store backed by the given file. configured is an
// operator-set chat ID override; zero means none.
func NewChatStore(path string, configured int64) *ChatStore {
	return &ChatStore{path: path, configured: configured}
}

// ChatID returns the delivery chat: the configured override if set,
// otherwise the last remembered chat, otherwise zero.
func (s *ChatStore) ChatID() int64 {
	if s.configured != 0 {
		return s.configured
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		slog.Warn("chat-id file is corrupt", "path", s.path, "error", err)
		return 0
	}
	return id
}

// Remember records the chat a user wrote from as the future default.
func (s *ChatStore) Remember(chatID int64) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		slog.Warn("could not create chat-id dir", "error", err)
		return
	}
	if err := os.WriteFile(s.path, []byte(strconv.FormatInt(chatID, 10)), 0o644); err != nil {
		slog.Warn("could not remember chat id", "error", err)
	}
}
