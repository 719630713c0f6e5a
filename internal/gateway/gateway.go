// Package gateway is the bot's only path to the Telegram Bot API: membership
// lookups, invite links, message sends and edits, callback acknowledgements.
// Every failure comes back as *Error with a narrow Kind.
package gateway

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Operation names reported in Error.Op and in wire logs.
const (
	OpMemberStatus     = "get_chat_member"
	OpCreateInviteLink = "create_chat_invite_link"
	OpSend             = "send_message"
	OpEdit             = "edit_message_text"
	OpAcknowledge      = "answer_callback_query"
)

// MessageRef identifies a chat message that is edited in place.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Message is a rendered message body. An empty Buttons slice removes any
// inline keyboard when editing.
type Message struct {
	Text    string
	HTML    bool
	Buttons []keyboard.InlineBtn
}

// Gateway is the subset of the Bot API the bot depends on.
type Gateway interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (tele.MemberStatus, error)
	CreateInviteLink(ctx context.Context, channel string, expireAt time.Time, memberLimit int) (string, error)
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, msg Message) error
	Acknowledge(ctx context.Context, callbackID, text string) error
}

type botAPI interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
	CreateInviteLink(chat tele.Recipient, link *tele.ChatInviteLink) (*tele.ChatInviteLink, error)
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// chatRecipient addresses a chat by numeric id or public @username.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

type userRecipient int64

func (u userRecipient) Recipient() string { return strconv.FormatInt(int64(u), 10) }

// Telebot implements Gateway on top of a shared *tele.Bot and its HTTP client.
type Telebot struct {
	api botAPI
}

var _ Gateway = (*Telebot)(nil)

// New wraps bot. The bot and its connection pool are owned by the caller.
func New(bot *tele.Bot) *Telebot {
	return &Telebot{api: bot}
}

func (t *Telebot) MemberStatus(ctx context.Context, channel string, userID int64) (tele.MemberStatus, error) {
	start := time.Now()
	member, err := t.api.ChatMemberOf(chatRecipient(channel), userRecipient(userID))
	err = Classify(OpMemberStatus, err)
	logWire(ctx, OpMemberStatus, start, err, slog.Int64("user_id", userID))
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", nil
	}
	return member.Role, nil
}

func (t *Telebot) CreateInviteLink(ctx context.Context, channel string, expireAt time.Time, memberLimit int) (string, error) {
	start := time.Now()
	link, err := t.api.CreateInviteLink(chatRecipient(channel), &tele.ChatInviteLink{
		ExpireUnixtime: expireAt.Unix(),
		MemberLimit:    memberLimit,
	})
	err = Classify(OpCreateInviteLink, err)
	logWire(ctx, OpCreateInviteLink, start, err, slog.Int("member_limit", memberLimit))
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", nil
	}
	return link.InviteLink, nil
}

func (t *Telebot) Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error) {
	start := time.Now()
	sent, err := t.api.Send(&tele.Chat{ID: chatID}, msg.Text, sendOptions(msg))
	err = Classify(OpSend, err)
	logWire(ctx, OpSend, start, err, slog.Int64("chat_id", chatID))
	if err != nil {
		return MessageRef{}, err
	}
	ref := MessageRef{ChatID: chatID}
	if sent != nil {
		ref.MessageID = sent.ID
	}
	return ref, nil
}

func (t *Telebot) Edit(ctx context.Context, ref MessageRef, msg Message) error {
	start := time.Now()
	_, err := t.api.Edit(&tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}, msg.Text, sendOptions(msg))
	err = Classify(OpEdit, err)
	logWire(ctx, OpEdit, start, err,
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
	)
	return err
}

func (t *Telebot) Acknowledge(ctx context.Context, callbackID, text string) error {
	start := time.Now()
	var resp []*tele.CallbackResponse
	if text != "" {
		resp = append(resp, &tele.CallbackResponse{Text: text})
	}
	err := Classify(OpAcknowledge, t.api.Respond(&tele.Callback{ID: callbackID}, resp...))
	logWire(ctx, OpAcknowledge, start, err)
	return err
}

func sendOptions(msg Message) *tele.SendOptions {
	opts := &tele.SendOptions{
		ReplyMarkup:           keyboard.InlineButtons(msg.Buttons),
		DisableWebPagePreview: true,
	}
	if msg.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	return opts
}

func logWire(ctx context.Context, op string, start time.Time, err error, extras ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("op", op),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err_kind", string(KindOf(err))),
			slog.String("err", logger.RedactToken(err.Error())),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.TWire, slog.LevelDebug, "api.call", attrs...)
}
