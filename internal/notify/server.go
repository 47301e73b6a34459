// ABOUTME: HTTP service for the notification relay worker
// ABOUTME: Telegram webhook command handling plus the authenticated /notify endpoint

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-remote/telegram-remote/internal/telegram"
)

// MessageSender is the Telegram surface the worker delivers through. The
// worker talks to private chats, so the thread id is always zero.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, threadID int, text string) (*telegram.Message, error)
}

// Server handles the worker's two inbound surfaces: the Telegram webhook
// for user commands and the /notify endpoint the bridge posts to.
type Server struct {
	store  *Store
	sender MessageSender
	logger *slog.Logger
}

// NewServer creates a Server.
func NewServer(store *Store, sender MessageSender, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		sender: sender,
		logger: logger.With("component", "notify-server"),
	}
}

// Handler returns the worker's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /notify", s.handleNotify)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// handleWebhook processes one Telegram update delivered by webhook. The
// worker only reacts to private-chat commands; everything else is ignored
// with a 200 so Telegram does not redeliver.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn("malformed webhook payload", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat.Type != "private" {
		w.WriteHeader(http.StatusOK)
		return
	}

	reply := s.dispatchCommand(r.Context(), msg)
	if reply != "" {
		if _, err := s.sender.SendMessage(r.Context(), msg.Chat.ID, 0, reply); err != nil {
			s.logger.Error("failed to send command reply",
				"chat_id", msg.Chat.ID, "error", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) dispatchCommand(ctx context.Context, msg *telegram.Message) string {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start":
		return s.handleStart(ctx, msg)
	case "/revoke":
		return s.handleRevoke(ctx, msg)
	case "/status":
		return s.handleStatus(ctx, msg)
	case "/help":
		return helpText
	default:
		return "Unknown command. " + helpText
	}
}

const helpText = "Commands:\n" +
	"/start - register and receive an install key\n" +
	"/revoke - rotate your install key\n" +
	"/status - show your registration\n" +
	"/help - show this message"

// handleStart registers the chat and issues a fresh install key. Running
// /start again rotates the key, same as /revoke.
func (s *Server) handleStart(ctx context.Context, msg *telegram.Message) string {
	user := &User{
		ChatID:     msg.Chat.ID,
		FirstName:  msg.From.FirstName,
		InstallKey: uuid.NewString(),
		CreatedAt:  time.Now(),
	}
	if err := s.store.Upsert(ctx, user); err != nil {
		s.logger.Error("failed to register user", "chat_id", msg.Chat.ID, "error", err)
		return "Registration failed, please try again."
	}
	s.logger.Info("registered notification user", "chat_id", msg.Chat.ID)
	return "You're registered. Your install key:\n\n" + user.InstallKey +
		"\n\nSet it as NOTIFY_INSTALL_KEY on the bridge."
}

func (s *Server) handleRevoke(ctx context.Context, msg *telegram.Message) string {
	existing, err := s.store.UserByChatID(ctx, msg.Chat.ID)
	if errors.Is(err, ErrNotFound) {
		return "You're not registered. Send /start first."
	}
	if err != nil {
		s.logger.Error("failed to load user", "chat_id", msg.Chat.ID, "error", err)
		return "Something went wrong, please try again."
	}

	existing.InstallKey = uuid.NewString()
	if err := s.store.Upsert(ctx, existing); err != nil {
		s.logger.Error("failed to rotate install key", "chat_id", msg.Chat.ID, "error", err)
		return "Something went wrong, please try again."
	}
	s.logger.Info("rotated install key", "chat_id", msg.Chat.ID)
	return "Old key revoked. Your new install key:\n\n" + existing.InstallKey
}

func (s *Server) handleStatus(ctx context.Context, msg *telegram.Message) string {
	user, err := s.store.UserByChatID(ctx, msg.Chat.ID)
	if errors.Is(err, ErrNotFound) {
		return "Not registered. Send /start to set up notifications."
	}
	if err != nil {
		s.logger.Error("failed to load user", "chat_id", msg.Chat.ID, "error", err)
		return "Something went wrong, please try again."
	}
	return fmt.Sprintf("Registered since %s. Install key ends in …%s.",
		user.CreatedAt.Format("2006-01-02"), keyTail(user.InstallKey))
}

// keyTail returns the last 4 characters of a key for display.
func keyTail(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}

// notifyRequest is the payload the bridge posts on session completion.
type notifyRequest struct {
	InstallKey string `json:"install_key"`
	Text       string `json:"text"`
}

// handleNotify validates the install key and forwards the text to the
// registered chat.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.InstallKey == "" || req.Text == "" {
		http.Error(w, "install_key and text are required", http.StatusBadRequest)
		return
	}

	user, err := s.store.UserByInstallKey(r.Context(), req.InstallKey)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("notify with unknown install key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.logger.Error("failed to look up install key", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := s.sender.SendMessage(r.Context(), user.ChatID, 0, req.Text); err != nil {
		s.logger.Error("failed to deliver notification",
			"chat_id", user.ChatID, "error", err)
		http.Error(w, "delivery failed", http.StatusBadGateway)
		return
	}

	s.logger.Debug("delivered notification", "chat_id", user.ChatID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
