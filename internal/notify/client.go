// ABOUTME: Bridge-side client for the notification relay worker
// ABOUTME: Posts session-completion notices to the worker's /notify endpoint

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client posts notifications to a remote worker, authenticating with the
// install key issued by the worker's /start command.
type Client struct {
	baseURL    string
	installKey string
	client     *http.Client
	logger     *slog.Logger
}

// NewClient creates a worker client.
func NewClient(baseURL, installKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		installKey: installKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "notify-client"),
	}
}

// Notify delivers one text notification. Best-effort from the caller's
// perspective; the error is for logging, not recovery.
func (c *Client) Notify(ctx context.Context, text string) error {
	payload, err := json.Marshal(notifyRequest{InstallKey: c.installKey, Text: text})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("worker returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
