// Package bot implements the interaction flow: /start greets members and
// non-members differently, and the invite buttons turn the same message into a
// single-use link that later flips to an expired notice.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/internal/gateway"
	"github.com/m3rciful/invitebot/internal/invite"
)

// Options wires a Handler. Gateway and Deferrer are shared process-wide.
type Options struct {
	Gateway  gateway.Gateway
	Channel  coreconfig.ChannelConfig
	Deferrer invite.Deferrer
	Issuer   []invite.IssuerOption
}

// Handler drives a chat message through its states.
type Handler struct {
	gw      gateway.Gateway
	checker *invite.Checker
	issuer  *invite.Issuer
	texts   Texts
}

// New builds a Handler from opts.
func New(opts Options) *Handler {
	h := &Handler{
		gw:      opts.Gateway,
		checker: invite.NewChecker(opts.Gateway, opts.Channel.ID),
		texts:   NewTexts(opts.Channel),
	}
	h.issuer = invite.NewIssuer(opts.Gateway, opts.Channel.ID, opts.Deferrer, h.expire, opts.Issuer...)
	return h
}

// Issuer exposes the invite issuer.
func (h *Handler) Issuer() *invite.Issuer { return h.issuer }

// Handle dispatches ev and returns the state the bound message ended in.
func (h *Handler) Handle(ctx context.Context, ev Event) (State, error) {
	switch e := ev.(type) {
	case StartCommand:
		return h.HandleStart(ctx, e)
	case ButtonPress:
		return h.HandleButton(ctx, e)
	default:
		return "", fmt.Errorf("bot: unsupported event %T", ev)
	}
}

// HandleStart replies to /start with the member or non-member welcome.
func (h *Handler) HandleStart(ctx context.Context, ev StartCommand) (State, error) {
	state := StateWelcomeNonMember
	if h.checker.IsMember(ctx, ev.UserID) {
		state = StateWelcomeMember
	}
	if _, err := h.gw.Send(ctx, ev.ChatID, h.texts.Render(state, "")); err != nil {
		return state, fmt.Errorf("send welcome: %w", err)
	}
	logger.Info(ctx, "bot", "start.reply",
		slog.String("status", "ok"),
		slog.String("state", string(state)),
	)
	return state, nil
}

// HandleButton acknowledges the press, then issues a fresh link into the same
// message. Both invite actions share this path.
func (h *Handler) HandleButton(ctx context.Context, ev ButtonPress) (State, error) {
	if err := h.gw.Acknowledge(ctx, ev.CallbackID, ""); err != nil {
		logger.Warn(ctx, "bot", "callback.ack",
			slog.String("status", "fail"),
			slog.String("err_kind", string(gateway.KindOf(err))),
			slog.String("err", logger.RedactToken(err.Error())),
		)
	}
	if ev.MessageID == 0 {
		return "", fmt.Errorf("bot: button press %q without a message", ev.Action)
	}

	ref := ev.Target()
	state := StateLinkIssued
	grant, err := h.issuer.Issue(ctx, ref)
	msg := h.texts.Render(state, grant.URL)
	if err != nil {
		state = StateLinkError
		msg = h.texts.Render(state, "")
	}

	if err := h.gw.Edit(ctx, ref, msg); err != nil && !gateway.IsKind(err, gateway.KindNotModified) {
		return state, fmt.Errorf("edit to %s: %w", state, err)
	}
	logger.Info(ctx, "bot", "button.reply",
		slog.String("status", "ok"),
		slog.String("state", string(state)),
		slog.String("cb_key", ev.Action),
		slog.Uint64("version", grant.Version),
	)
	return state, nil
}

func (h *Handler) expire(ctx context.Context, ref gateway.MessageRef) error {
	err := h.gw.Edit(ctx, ref, h.texts.Render(StateLinkExpired, ""))
	if gateway.IsKind(err, gateway.KindNotModified) {
		return nil
	}
	return err
}

// apologize tells the chat something went wrong without exposing the cause.
func (h *Handler) apologize(ctx context.Context, chatID int64) {
	if chatID == 0 {
		return
	}
	if _, err := h.gw.Send(ctx, chatID, gateway.Message{Text: ApologyText}); err != nil {
		logger.Warn(ctx, "bot", "apology.send",
			slog.String("status", "fail"),
			slog.String("err", logger.RedactToken(err.Error())),
		)
	}
}
