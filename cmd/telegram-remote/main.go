// ABOUTME: Entry point for the telegram-remote bridge
// ABOUTME: Connects OpenCode sessions to Telegram forum topics

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/opencode-remote/telegram-remote/internal/bot"
	"github.com/opencode-remote/telegram-remote/internal/config"
	"github.com/opencode-remote/telegram-remote/internal/logging"
	"github.com/opencode-remote/telegram-remote/internal/notify"
	"github.com/opencode-remote/telegram-remote/internal/opencode"
	"github.com/opencode-remote/telegram-remote/internal/registry"
	"github.com/opencode-remote/telegram-remote/internal/relay"
	"github.com/opencode-remote/telegram-remote/internal/telegram"
	"github.com/opencode-remote/telegram-remote/internal/throttle"
	"github.com/opencode-remote/telegram-remote/internal/tracker"
)

const banner = `
    ╭────────────────────────────────────╮
    │                                    │
    │   ╺┳╸┏━╸╻  ┏━╸┏━╸┏━┓┏━┓┏┳┓         │
    │    ┃ ┣╸ ┃  ┣╸ ┃╺┓┣┳┛┣━┫┃┃┃         │
    │    ╹ ┗━╸┗━╸┗━╸┗━┛╹┗╸╹ ╹╹ ╹         │
    │                                    │
    │      telegram-remote bridge        │
    │                                    │
    ╰────────────────────────────────────╯
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
	})

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Runtime:       %s\n", cfg.OpenCode.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Group:         %d\n", cfg.Telegram.GroupID)
	green.Print("    ▶ ")
	fmt.Printf("Allowed users: %d\n", len(cfg.Telegram.AllowedUserIDs))
	green.Print("    ▶ ")
	if cfg.NotifyEnabled() {
		fmt.Println("Notifications: enabled")
	} else {
		fmt.Println("Notifications: disabled")
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg := telegram.New(cfg.Telegram.BotToken)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}
	logger.Info("bot authenticated", "username", me.Username)

	runtime := opencode.NewClient(cfg.OpenCode.BaseURL, logger)
	throttler := throttle.New(config.DefaultThrottleInterval, logger)
	reg := registry.New()
	track := tracker.New(logger)
	gateway := bot.NewGateway(tg, throttler, cfg.Telegram.GroupID, logger)

	var notifier relay.Notifier
	if cfg.NotifyEnabled() {
		notifier = notify.NewClient(cfg.Notify.WorkerURL, cfg.Notify.InstallKey, logger)
	}

	eventRelay := relay.New(runtime, gateway, reg, track, notifier, logger)
	syncer := relay.NewSyncer(runtime, gateway, reg, cfg.Telegram.MaxSessions, logger)
	inbound := bot.New(gateway, runtime, reg, cfg.Telegram.GroupID, cfg.Telegram.AllowedUserIDs, logger)

	// Reconciliation must not delay event processing; it runs alongside it.
	go func() {
		if err := syncer.Sync(ctx); err != nil {
			logger.Error("session reconciliation failed", "error", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- eventRelay.Run(ctx) }()
	go func() { errCh <- inbound.Run(ctx) }()

	err = <-errCh
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}
