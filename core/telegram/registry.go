package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// UnsupportedActionText answers callbacks whose action tag has no handler.
const UnsupportedActionText = "Unsupported action"

var (
	// ErrInvalidRegistration rejects empty names, nil handlers and missing descriptions.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicateRegistration rejects a second handler for the same name.
	ErrDuplicateRegistration = errors.New("telegram: already registered")
)

// Registry maps slash commands and callback action tags to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty Registry whose unknown-callback fallback
// answers with UnsupportedActionText.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: UnsupportedActionText})
		},
	}
}

func slashed(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds a command. name must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	}
	if name[0] != '/' {
		return fmt.Errorf("%w: command %q must start with /", ErrInvalidRegistration, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: command %s", ErrDuplicateRegistration, name)
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		if alias != "" {
			r.aliases[slashed(alias)] = name
		}
	}
	logger.Debug(context.Background(), "tg.wire", "register.command", slog.String("name", name))
	return nil
}

// LookupCommand resolves name or one of its aliases to the canonical command.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = slashed(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns menu entries sorted by name.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds handler to a callback action tag.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("%w: callback %s", ErrDuplicateRegistration, key)
	}
	r.callbacks[key] = handler
	logger.Debug(context.Background(), "tg.wire", "register.callback", slog.String("cb_key", key))
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered action tags, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CallbackNotFound returns the handler for unknown action tags.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}

// InitBotCommands publishes the visible commands as the bot menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	err := bot.SetCommands(list)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("count", len(list)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "commands.set", attrs...)
		return
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "commands.set", attrs...)
}
