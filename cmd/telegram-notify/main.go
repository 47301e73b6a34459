// ABOUTME: Entry point for the telegram-notify worker
// ABOUTME: Webhook-driven registration service plus the /notify delivery endpoint

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/opencode-remote/telegram-remote/internal/logging"
	"github.com/opencode-remote/telegram-remote/internal/notify"
	"github.com/opencode-remote/telegram-remote/internal/telegram"
)

const banner = `
    ╭────────────────────────────────────╮
    │                                    │
    │   ┏┓╻┏━┓╺┳╸╻┏━╸╻ ╻                 │
    │   ┃┗┫┃ ┃ ┃ ┃┣╸ ┗┳┛                 │
    │   ╹ ╹┗━┛ ╹ ╹╹   ╹                  │
    │                                    │
    │      telegram-notify worker        │
    │                                    │
    ╰────────────────────────────────────╯
`

const defaultListenAddr = ":8787"

// dbPath returns the worker database location.
// Priority: NOTIFY_DB_PATH > XDG_DATA_HOME/telegram-notify/notify.db >
// ~/.local/share/telegram-notify/notify.db
func dbPath() string {
	if p := os.Getenv("NOTIFY_DB_PATH"); p != "" {
		return p
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "notify.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "telegram-notify", "notify.db")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	addr := os.Getenv("NOTIFY_LISTEN_ADDR")
	if addr == "" {
		addr = defaultListenAddr
	}

	logger := logging.Setup(logging.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Dir:    os.Getenv("LOG_DIR"),
	})

	path := dbPath()

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Listen:   %s\n", addr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", path)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg := telegram.New(token)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}
	logger.Info("bot authenticated", "username", me.Username)

	store, err := notify.NewStore(path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	server := notify.NewServer(store, tg, logger)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notify worker listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
