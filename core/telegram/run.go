package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Bot      *tele.Bot
	Registry *Registry
	Routes   []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
}

// NewBot builds a long-polling bot sharing the given HTTP client for all API calls.
// tele.NewBot performs a getMe call, so configuration must be validated before.
func NewBot(cfg *coreconfig.Config, client *http.Client) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller := BuildPoller(PollerOptions{
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
	})
	if client == nil {
		client = BuildHTTPClient(poller.Timeout)
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  client,
		OnError: onBotError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %s", logger.RedactToken(err.Error()))
	}

	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", int(poller.Timeout/time.Second)),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	)
	return bot, nil
}

func onBotError(err error, c tele.Context) {
	if err == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("err", logger.RedactToken(err.Error())),
	}
	if c != nil {
		attrs = append(attrs, slog.Int("update_id", c.Update().ID))
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelError, "bot.error", attrs...)
}

// RunTelegram wires routes and runs the receive loop until ctx is done or the bot stops.
// A stale webhook and its pending updates are dropped first so that no other receiver
// competes for updates.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Bot == nil {
		return fmt.Errorf("telegram: nil bot provided")
	}

	bot := opts.Bot
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	rt := Runtime{Bot: bot, Registry: reg}

	if !opts.DisableWebhookCleanup {
		if err := bot.RemoveWebhook(true); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", logger.RedactToken(err.Error())),
			)
		} else {
			logger.TG.Info("webhook deleted",
				slog.String("event", "delete_webhook"),
				slog.Bool("drop_pending", true),
			)
		}
	}

	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}

	InitBotCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
