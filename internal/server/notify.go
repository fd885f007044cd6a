package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"senryaku/internal/config"
)

const defaultNotifyTimeout = 5 * time.Second

// notifier pushes plain-text messages to the configured webhook. It speaks
// three dialects: ntfy (raw body + Title header), telegram (bot API sendMessage
// payload) and generic (JSON with text and source fields).
type notifier struct {
	hook   config.WebhookConfig
	client *http.Client
}

func newNotifier(hook config.WebhookConfig) *notifier {
	timeout := defaultNotifyTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	return &notifier{
		hook:   hook,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *notifier) configured() bool {
	if n == nil || strings.TrimSpace(n.hook.URL) == "" {
		return false
	}
	if n.hook.Enabled != nil && !*n.hook.Enabled {
		return false
	}
	return true
}

func (n *notifier) Send(ctx context.Context, message string) error {
	if !n.configured() {
		return nil
	}
	var req *http.Request
	var err error
	switch n.hook.Type {
	case "telegram":
		req, err = n.jsonRequest(ctx, map[string]any{
			"text":       message,
			"parse_mode": "Markdown",
		})
	case "generic":
		req, err = n.jsonRequest(ctx, map[string]any{
			"text":   message,
			"source": "senryaku",
		})
	default: // ntfy
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, n.hook.URL, strings.NewReader(message))
		if err == nil {
			req.Header.Set("Title", "Senryaku")
		}
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(n.hook.Secret) != "" {
		req.Header.Set("X-Senryaku-Secret", n.hook.Secret)
	}
	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (n *notifier) jsonRequest(ctx context.Context, payload map[string]any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.hook.URL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
