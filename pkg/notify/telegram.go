// Package notify delivers support notifications to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/pkg/tasks"
)

// ErrNotConfigured is returned when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram notifier not configured")

// TelegramNotifier sends plain text messages through the Bot API.
type TelegramNotifier struct {
	cfg    config.TelegramConfig
	client *http.Client
}

// NewTelegramNotifier creates a notifier from the telegram config section.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.telegram.org"
	}
	return &TelegramNotifier{cfg: cfg, client: &http.Client{}}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify posts the notification text to the configured chat.
func (t *TelegramNotifier) Notify(ctx context.Context, n tasks.SupportNotification) error {
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(sendMessageRequest{ChatID: t.cfg.ChatID, Text: n.Text()})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.APIBase, "/"), t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram api returned %s: %s", resp.Status, out.Description)
	}
	return nil
}
