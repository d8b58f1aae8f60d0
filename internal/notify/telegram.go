package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
	"github.com/mengleangdeaun/foodie-sub002/internal/queue"
	"github.com/mengleangdeaun/foodie-sub002/internal/resilience"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends owner alerts through the Bot API. Calls go through the
// resilient client so a flapping Telegram API trips the breaker instead of
// hammering it from every retry.
type Telegram struct {
	BotToken string
	ChatID   string
	HTTP     resilience.HTTPClient
	BaseURL  string
	Logger   zerolog.Logger
}

// SendMessage posts one text message to the configured chat.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if t == nil || strings.TrimSpace(t.BotToken) == "" || strings.TrimSpace(t.ChatID) == "" {
		return fmt.Errorf("notify: telegram not configured")
	}
	base := t.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	body, err := json.Marshal(map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.HTTP
	if client.Client == nil {
		client.Client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(ctx, req)
	if err != nil {
		obs.ObserveNotifyDelivery("telegram", "error")
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		obs.ObserveNotifyDelivery("telegram", "error")
		return fmt.Errorf("notify: telegram send: status %d: %s", resp.StatusCode, string(snippet))
	}
	obs.ObserveNotifyDelivery("telegram", "ok")
	return nil
}

// HandleTask processes queued Telegram alerts on the worker.
func (t *Telegram) HandleTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.TelegramAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := t.SendMessage(ctx, payload.Text); err != nil {
		t.Logger.Error().Err(err).Str("order_id", payload.OrderID).Msg("telegram alert delivery")
		return err
	}
	t.Logger.Info().Str("order_id", payload.OrderID).Msg("telegram alert delivered")
	return nil
}
