package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	tg "github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		h := def.Handler
		wrapped := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), func() error { return h(c) })
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  middleware.LoggerMiddleware(middleware.RecoverMiddleware(wrapped)),
		})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{
				Endpoint: alias,
				Handler:  middleware.LoggerMiddleware(middleware.RecoverMiddleware(wrapped)),
			})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
