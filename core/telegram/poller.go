package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// DefaultAllowedUpdates restricts getUpdates to the event kinds the bot handles.
var DefaultAllowedUpdates = []string{"message", "callback_query"}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	LongPollTimeoutSeconds int
	AllowedUpdates         []string
}

// BuildPoller returns a long poller for the receive loop.
func BuildPoller(opts PollerOptions) *tele.LongPoller {
	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	allowed := opts.AllowedUpdates
	if len(allowed) == 0 {
		allowed = DefaultAllowedUpdates
	}
	return &tele.LongPoller{
		Timeout:        time.Duration(timeoutSec) * time.Second,
		AllowedUpdates: append([]string(nil), allowed...),
	}
}
