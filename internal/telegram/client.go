// ABOUTME: Minimal Telegram Bot API client for the bridge
// ABOUTME: JSON method calls, multipart document upload, and getUpdates long-polling

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// APIError is a structured failure returned by the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error (%d): %s", e.Code, e.Description)
}

// Client communicates with the Telegram Bot API over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// New creates a Bot API client for the given bot token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultAPIBase,
		token:   token,
		// Long-polling getUpdates holds the connection open; leave room
		// beyond the poll timeout.
		client: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the Bot API's uniform response envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call POSTs a JSON-encoded method call and decodes the result envelope.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling %s params: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		return &APIError{Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own account, verifying the credential.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessage delivers text to a chat, optionally inside a forum topic
// (threadID 0 targets the general thread).
func (c *Client) SendMessage(ctx context.Context, chatID int64, threadID int, text string) (*Message, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if threadID != 0 {
		params["message_thread_id"] = threadID
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument uploads content as a file attachment into a chat or topic.
func (c *Client) SendDocument(ctx context.Context, chatID int64, threadID int, content []byte, filename string) (*Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, fmt.Errorf("building sendDocument form: %w", err)
	}
	if threadID != 0 {
		if err := w.WriteField("message_thread_id", strconv.Itoa(threadID)); err != nil {
			return nil, fmt.Errorf("building sendDocument form: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return nil, fmt.Errorf("building sendDocument form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("writing document content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing sendDocument form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return nil, fmt.Errorf("creating sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var msg Message
	if err := c.do(req, "sendDocument", &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateForumTopic creates a new forum topic in the chat.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (*ForumTopic, error) {
	params := map[string]any{
		"chat_id": chatID,
		"name":    name,
	}
	var topic ForumTopic
	if err := c.call(ctx, "createForumTopic", params, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// DeleteForumTopic deletes a forum topic along with all its messages.
func (c *Client) DeleteForumTopic(ctx context.Context, chatID int64, threadID int) error {
	params := map[string]any{
		"chat_id":           chatID,
		"message_thread_id": threadID,
	}
	return c.call(ctx, "deleteForumTopic", params, nil)
}

// DeleteMessage removes a single message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", params, nil)
}

// GetUpdates long-polls for incoming updates. Offset should be one past the
// highest update id already seen; a negative offset discards the backlog
// and returns only the most recent update, which the bridge uses to drop
// pending updates at startup.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
