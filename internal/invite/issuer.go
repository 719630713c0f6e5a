package invite

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/metrics"
	"github.com/m3rciful/invitebot/core/schedule"
	"github.com/m3rciful/invitebot/internal/gateway"
)

const (
	// LinkTTL is how long an issued link stays valid.
	LinkTTL = 60 * time.Second
	// MemberLimit caps redemptions per link.
	MemberLimit = 1
)

// ErrEmptyLink is returned when the API accepted the request but produced no link.
var ErrEmptyLink = errors.New("invite: empty invite link")

// LinkGateway creates chat invite links.
type LinkGateway interface {
	CreateInviteLink(ctx context.Context, channel string, expireAt time.Time, memberLimit int) (string, error)
}

// Deferrer runs a task once after delay.
type Deferrer interface {
	After(ctx context.Context, delay time.Duration, name string, run schedule.Task) (string, error)
}

// ExpireFunc renders the expired notice on ref.
type ExpireFunc func(ctx context.Context, ref gateway.MessageRef) error

// Grant is a successfully issued link.
type Grant struct {
	URL       string
	ExpiresAt time.Time
	Version   uint64
	TaskID    string
}

// Issuer creates links and schedules their expiry notice.
type Issuer struct {
	links    LinkGateway
	channel  string
	deferrer Deferrer
	tracker  *Tracker
	onExpire ExpireFunc
	ttl      time.Duration
	now      func() time.Time
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithClock overrides the time source used for link expiry.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithTTL overrides LinkTTL.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithTracker shares a version tracker.
func WithTracker(t *Tracker) IssuerOption {
	return func(i *Issuer) {
		if t != nil {
			i.tracker = t
		}
	}
}

// NewIssuer builds an Issuer for channel. onExpire runs once per issuance,
// LinkTTL after it, unless a newer issuance for the same message superseded it.
func NewIssuer(links LinkGateway, channel string, deferrer Deferrer, onExpire ExpireFunc, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		links:    links,
		channel:  channel,
		deferrer: deferrer,
		tracker:  NewTracker(),
		onExpire: onExpire,
		ttl:      LinkTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TTL returns the link lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Tracker exposes the issuance versions.
func (i *Issuer) Tracker() *Tracker { return i.tracker }

// Issue creates a single-use link for the message ref and schedules its expiry
// edit. On failure nothing is scheduled.
func (i *Issuer) Issue(ctx context.Context, ref gateway.MessageRef) (Grant, error) {
	start := time.Now()
	expiresAt := i.now().Add(i.ttl)

	url, err := i.links.CreateInviteLink(ctx, i.channel, expiresAt, MemberLimit)
	if err == nil && url == "" {
		err = ErrEmptyLink
	}
	if err != nil {
		metrics.IncInviteLink(metrics.ResultFailed)
		logger.Error(ctx, "invite", "invite.issue",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ref.ChatID),
			slog.Int("message_id", ref.MessageID),
			slog.String("err_kind", string(gateway.KindOf(err))),
			slog.String("err", logger.RedactToken(err.Error())),
			slog.Duration("duration", logger.Took(start)),
		)
		return Grant{}, err
	}
	metrics.IncInviteLink(metrics.ResultCreated)

	grant := Grant{URL: url, ExpiresAt: expiresAt, Version: i.tracker.Next(ref)}
	version := grant.Version
	taskID, schedErr := i.deferrer.After(ctx, i.ttl, "invite.expire", func(ctx context.Context) error {
		return i.expire(ctx, ref, version)
	})
	grant.TaskID = taskID

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
		slog.Uint64("version", version),
		slog.String("task_id", taskID),
		slog.Duration("duration", logger.Took(start)),
	}
	if schedErr != nil {
		// Only happens during shutdown; the link still expires on Telegram's side.
		i.tracker.Release(ref, version)
		logger.Warn(ctx, "invite", "expiry.schedule",
			slog.String("status", "fail"),
			slog.String("err", schedErr.Error()),
		)
	}
	logger.Info(ctx, "invite", "invite.issue", attrs...)
	return grant, nil
}

func (i *Issuer) expire(ctx context.Context, ref gateway.MessageRef, version uint64) error {
	if !i.tracker.Release(ref, version) {
		current, _ := i.tracker.Current(ref)
		metrics.IncExpiryEdit(metrics.ResultStale)
		logger.Info(ctx, "invite", "expiry.stale",
			slog.String("status", "skip"),
			slog.Int64("chat_id", ref.ChatID),
			slog.Int("message_id", ref.MessageID),
			slog.Uint64("version", version),
			slog.Uint64("current", current),
		)
		return nil
	}
	if i.onExpire == nil {
		return nil
	}
	if err := i.onExpire(ctx, ref); err != nil {
		metrics.IncExpiryEdit(metrics.ResultFailed)
		return err
	}
	metrics.IncExpiryEdit(metrics.ResultOK)
	logger.Info(ctx, "invite", "expiry.edit",
		slog.String("status", "ok"),
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
		slog.Uint64("version", version),
	)
	return nil
}
