// ABOUTME: HTTP client for the OpenCode assistant runtime
// ABOUTME: Session CRUD, prompt delivery, and SSE event subscription

package opencode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client communicates with the OpenCode server HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a runtime client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// No client-level timeout: the /event subscription is a
		// long-lived stream. Per-call deadlines come from the context.
		client: &http.Client{},
		logger: logger.With("component", "opencode"),
	}
}

// apiError extracts a readable failure from a non-2xx response.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("%s: runtime returned status %d: %s", op, resp.StatusCode, msg)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(method+" "+path, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// CreateSession asks the runtime for a fresh session.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/session", struct{}{}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns every session the runtime knows about.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.doJSON(ctx, http.MethodGet, "/session", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session from the runtime.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/session/"+url.PathEscape(sessionID), nil, nil)
}

// promptRequest is the body for delivering operator text to a session.
type promptRequest struct {
	Parts []promptPart `json:"parts"`
}

type promptPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendPrompt forwards operator text to a session as a prompt. The runtime
// streams the assistant's answer through the event subscription, so the
// response body here is discarded.
func (c *Client) SendPrompt(ctx context.Context, sessionID, text string) error {
	body := promptRequest{Parts: []promptPart{{Type: PartTypeText, Text: text}}}
	return c.doJSON(ctx, http.MethodPost, "/session/"+url.PathEscape(sessionID)+"/message", body, nil)
}

// Events subscribes to the runtime's SSE event stream and delivers decoded
// events on out until the stream ends or ctx is cancelled. The caller owns
// out; Events never closes it. Unknown event kinds and malformed payloads
// are logged and skipped.
func (c *Client) Events(ctx context.Context, out chan<- Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event", nil)
	if err != nil {
		return fmt.Errorf("creating event request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("GET /event", resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates one SSE event.
		if line == "" {
			if len(dataLines) > 0 {
				c.dispatch(ctx, strings.Join(dataLines, "\n"), out)
				dataLines = nil
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// Comment and event-name lines are ignored; the payload's own
		// type field identifies the event.
	}
	if len(dataLines) > 0 {
		c.dispatch(ctx, strings.Join(dataLines, "\n"), out)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading event stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) dispatch(ctx context.Context, data string, out chan<- Event) {
	event, err := decodeEvent([]byte(data))
	if err != nil {
		c.logger.Warn("skipping malformed event", "error", err)
		return
	}
	if event == nil {
		return
	}
	select {
	case out <- event:
	case <-ctx.Done():
	}
}
