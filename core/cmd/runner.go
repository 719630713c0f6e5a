// Package cmd is the process orchestrator: it loads configuration, builds the
// shared bot session, then runs the liveness server and the receive loop until
// a signal arrives or the loop ends.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/health"
	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/metrics"
	"github.com/m3rciful/invitebot/core/schedule"
	coretelegram "github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/core/telegram/router"
	"github.com/m3rciful/invitebot/internal/bot"
	"github.com/m3rciful/invitebot/internal/gateway"

	tele "gopkg.in/telebot.v4"
)

// Options describe how to load configuration and run the bot. Zero values pick
// the production implementations.
type Options struct {
	// ConfigEnvVar names the variable holding an optional YAML config path.
	ConfigEnvVar string

	LoadConfig     func(path string) (*coreconfig.Config, error)
	InitLogger     func(cfg *coreconfig.Config) error
	ShutdownLogger func() error
	NewBot         func(cfg *coreconfig.Config, client *http.Client) (*tele.Bot, error)
	NewGateway     func(b *tele.Bot) gateway.Gateway
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

func (o *Options) defaults() {
	if o.ConfigEnvVar == "" {
		o.ConfigEnvVar = "CONFIG_PATH"
	}
	if o.LoadConfig == nil {
		o.LoadConfig = coreconfig.Load
	}
	if o.InitLogger == nil {
		o.InitLogger = logger.InitLogger
	}
	if o.ShutdownLogger == nil {
		o.ShutdownLogger = logger.Shutdown
	}
	if o.NewBot == nil {
		o.NewBot = coretelegram.NewBot
	}
	if o.NewGateway == nil {
		o.NewGateway = func(b *tele.Bot) gateway.Gateway { return gateway.New(b) }
	}
	if o.RunTelegram == nil {
		o.RunTelegram = coretelegram.RunTelegram
	}
}

// Run blocks until SIGINT/SIGTERM or until the receive loop stops.
func Run(opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunContext(ctx, opts)
}

// RunContext is Run with caller-controlled cancellation. Configuration errors
// are returned before any network activity.
func RunContext(ctx context.Context, opts Options) error {
	opts.defaults()
	startedAt := time.Now()

	cfg, err := opts.LoadConfig(os.Getenv(opts.ConfigEnvVar))
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if err := opts.InitLogger(cfg); err != nil {
		return fmt.Errorf("cmd: logger init failed: %w", err)
	}
	defer func() {
		if err := opts.ShutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	metrics.MustRegister()

	client := coretelegram.BuildHTTPClient(time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second)
	defer client.CloseIdleConnections()

	b, err := opts.NewBot(cfg, client)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	sched := schedule.New(schedule.Options{})
	defer sched.Close()

	handler := bot.New(bot.Options{
		Gateway:  opts.NewGateway(b),
		Channel:  cfg.Channel,
		Deferrer: sched,
	})
	reg := coretelegram.NewRegistry()
	if err := handler.Register(reg); err != nil {
		return fmt.Errorf("cmd: register handlers: %w", err)
	}

	liveness := health.NewServer(cfg.HTTP.Addr())
	app := logger.Component("app")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	runOpts := coretelegram.RunOptions{
		Bot:      b,
		Registry: reg,
		Routes:   append(router.CommandRoutes(reg), router.CallbackRoute(reg)),
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if err := liveness.Start(); err != nil {
				return err
			}
			app.Info("app ready",
				slog.String("event", "ready"),
				slog.String("addr", liveness.Addr()),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			app.Info("shutting down...",
				slog.String("event", "shutdown"),
				slog.Int("pending_tasks", sched.Pending()),
			)
			sched.Close()
			return nil
		},
	}

	g.Go(func() error {
		defer stop()
		return opts.RunTelegram(gctx, runOpts)
	})
	g.Go(func() error {
		<-gctx.Done()
		return liveness.Shutdown(context.WithoutCancel(gctx))
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.Error("bot stopped",
			slog.String("event", "stopped"),
			slog.String("status", "fail"),
			slog.String("err", logger.RedactToken(err.Error())),
		)
		return err
	}
	app.Info("bot stopped", slog.String("event", "stopped"), slog.String("status", "ok"))
	return nil
}
