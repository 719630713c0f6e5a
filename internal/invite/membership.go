// Package invite decides channel membership and issues single-use invite links
// whose expiry notice is bound to the message that requested them.
package invite

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/metrics"
	"github.com/m3rciful/invitebot/internal/gateway"

	tele "gopkg.in/telebot.v4"
)

// MembershipGateway looks up a user's status in a chat.
type MembershipGateway interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (tele.MemberStatus, error)
}

// Checker answers whether a user belongs to the gated channel.
type Checker struct {
	gw      MembershipGateway
	channel string
}

// NewChecker builds a Checker for channel.
func NewChecker(gw MembershipGateway, channel string) *Checker {
	return &Checker{gw: gw, channel: channel}
}

// IsMemberStatus reports whether status counts as belonging to the channel.
func IsMemberStatus(status tele.MemberStatus) bool {
	switch status {
	case tele.Member, tele.Administrator, tele.Creator:
		return true
	default:
		return false
	}
}

// Check returns true for members, administrators and the owner. Any gateway
// failure yields false together with the classified error, which is already logged.
func (c *Checker) Check(ctx context.Context, userID int64) (bool, error) {
	start := time.Now()
	status, err := c.gw.MemberStatus(ctx, c.channel, userID)
	if err != nil {
		kind := gateway.KindOf(err)
		level := slog.LevelError
		if kind == gateway.KindPermission || kind == gateway.KindNotFound {
			level = slog.LevelWarn
		}
		metrics.IncMembershipCheck(metrics.ResultError)
		logger.LogEvent(ctx, logger.Component("invite"), level, "membership.check",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err_kind", string(kind)),
			slog.String("err", logger.RedactToken(err.Error())),
			slog.Duration("duration", logger.Took(start)),
		)
		return false, err
	}

	member := IsMemberStatus(status)
	result := metrics.ResultNonMember
	if member {
		result = metrics.ResultMember
	}
	metrics.IncMembershipCheck(result)
	logger.Debug(ctx, "invite", "membership.check",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(status)),
		slog.Bool("member", member),
		slog.Duration("duration", logger.Took(start)),
	)
	return member, nil
}

// IsMember is Check without the error: failures count as not a member.
func (c *Checker) IsMember(ctx context.Context, userID int64) bool {
	member, _ := c.Check(ctx, userID)
	return member
}
