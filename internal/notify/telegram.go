package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultTelegramAPI is the Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig configures the bot.
type TelegramConfig struct {
	Token string
	// OpsChatID receives operational events. Empty disables Send.
	OpsChatID string
	APIURL    string
	// RatePerSec caps outgoing messages across all chats.
	RatePerSec float64
}

// TelegramSender delivers HTML messages through the Telegram Bot API.
type TelegramSender struct {
	cfg     TelegramConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegramSender creates a TelegramSender with a 10-second HTTP timeout.
func NewTelegramSender(cfg TelegramConfig) *TelegramSender {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultTelegramAPI
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 25
	}
	return &TelegramSender{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

type sendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Deliver sends an alert to the subscriber's chat. Subscriber ids are
// Telegram chat ids.
func (t *TelegramSender) Deliver(ctx context.Context, subscriberID int64, text string) error {
	return t.SendTo(ctx, strconv.FormatInt(subscriberID, 10), text)
}

// Send posts an operational event to the ops chat.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	if t.cfg.OpsChatID == "" {
		return nil
	}
	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(message))
	return t.SendTo(ctx, t.cfg.OpsChatID, text)
}

// SendTo posts HTML text to chatID.
func (t *TelegramSender) SendTo(ctx context.Context, chatID, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: wait: %w", err)
	}

	body, err := json.Marshal(sendMessage{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := strings.TrimRight(t.cfg.APIURL, "/") + "/bot" + t.cfg.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		return fmt.Errorf("telegram: send to %s: request failed", chatID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: send to %s: unexpected status %d: %s", chatID, resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
