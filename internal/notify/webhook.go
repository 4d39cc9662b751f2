// Package notify delivers run summaries to a chat webhook. Delivery is
// best-effort: the engine logs failures and moves on, a run never fails
// because its summary did.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single webhook delivery.
const DefaultTimeout = 10 * time.Second

// Webhook posts text messages to a group-chat robot webhook.
type Webhook struct {
	url        string
	enabled    bool
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL or enabled=false
// yields a notifier whose Send is a no-op.
func NewWebhook(url string, enabled bool) *Webhook {
	return &Webhook{
		url:        url,
		enabled:    enabled && url != "",
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type textMessage struct {
	MsgType string      `json:"msg_type"`
	Content textContent `json:"content"`
}

type textContent struct {
	Text string `json:"text"`
}

// Send posts text as a robot text message. Disabled notifiers return nil
// without sending.
func (w *Webhook) Send(ctx context.Context, text string) error {
	if !w.enabled {
		return nil
	}

	payload, err := json.Marshal(textMessage{MsgType: "text", Content: textContent{Text: text}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
