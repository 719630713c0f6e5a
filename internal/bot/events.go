package bot

import (
	"github.com/m3rciful/invitebot/core/telegram/keyboard"
	"github.com/m3rciful/invitebot/internal/gateway"

	tele "gopkg.in/telebot.v4"
)

// Event is either a StartCommand or a ButtonPress.
type Event interface {
	// Target is the chat message the event is bound to.
	Target() gateway.MessageRef
	event()
}

// StartCommand is a /start message.
type StartCommand struct {
	ChatID    int64
	MessageID int
	UserID    int64
}

func (e StartCommand) Target() gateway.MessageRef {
	return gateway.MessageRef{ChatID: e.ChatID, MessageID: e.MessageID}
}

func (StartCommand) event() {}

// ButtonPress is a callback from an inline button on one of the bot's messages.
type ButtonPress struct {
	CallbackID string
	Action     string
	ChatID     int64
	MessageID  int
	UserID     int64
}

func (e ButtonPress) Target() gateway.MessageRef {
	return gateway.MessageRef{ChatID: e.ChatID, MessageID: e.MessageID}
}

func (ButtonPress) event() {}

// EventFrom maps a telebot update onto an Event. Updates that carry neither a
// message nor a callback are reported as not ok.
func EventFrom(c tele.Context) (Event, bool) {
	if c == nil {
		return nil, false
	}
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}

	if cb := c.Callback(); cb != nil {
		action, _ := keyboard.ParseCallbackData(cb)
		ev := ButtonPress{CallbackID: cb.ID, Action: action, UserID: userID}
		if cb.Message != nil {
			ev.MessageID = cb.Message.ID
			if cb.Message.Chat != nil {
				ev.ChatID = cb.Message.Chat.ID
			}
		}
		return ev, true
	}

	if msg := c.Message(); msg != nil {
		ev := StartCommand{MessageID: msg.ID, UserID: userID}
		if msg.Chat != nil {
			ev.ChatID = msg.Chat.ID
		}
		return ev, true
	}
	return nil, false
}
