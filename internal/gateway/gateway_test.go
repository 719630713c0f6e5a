package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/invitebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

type fakeAPI struct {
	member    *tele.ChatMember
	memberErr error
	link      *tele.ChatInviteLink
	linkErr   error
	editErr   error

	chat     tele.Recipient
	user     tele.Recipient
	linkReq  *tele.ChatInviteLink
	edited   *tele.StoredMessage
	text     any
	opts     []any
	answered *tele.Callback
	resp     []*tele.CallbackResponse
}

func (f *fakeAPI) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.chat, f.user = chat, user
	return f.member, f.memberErr
}

func (f *fakeAPI) CreateInviteLink(chat tele.Recipient, link *tele.ChatInviteLink) (*tele.ChatInviteLink, error) {
	f.chat, f.linkReq = chat, link
	return f.link, f.linkErr
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.chat, f.text, f.opts = to, what, opts
	return &tele.Message{ID: 77}, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.edited, _ = msg.(*tele.StoredMessage)
	f.text, f.opts = what, opts
	return nil, f.editErr
}

func (f *fakeAPI) Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error {
	f.answered, f.resp = c, resp
	return nil
}

func TestMemberStatus(t *testing.T) {
	api := &fakeAPI{member: &tele.ChatMember{Role: tele.Administrator}}
	gw := &Telebot{api: api}

	status, err := gw.MemberStatus(context.Background(), "-100123", 42)
	require.NoError(t, err)
	assert.Equal(t, tele.Administrator, status)
	assert.Equal(t, "-100123", api.chat.Recipient())
	assert.Equal(t, "42", api.user.Recipient())
}

func TestMemberStatusClassifiesError(t *testing.T) {
	api := &fakeAPI{memberErr: &tele.Error{Code: 400, Description: "Bad Request: user not found"}}
	gw := &Telebot{api: api}

	_, err := gw.MemberStatus(context.Background(), "@gated", 42)
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, OpMemberStatus, gwErr.Op)
	assert.Equal(t, KindNotFound, gwErr.Kind)
	assert.Equal(t, 400, gwErr.Status)
}

func TestCreateInviteLink(t *testing.T) {
	api := &fakeAPI{link: &tele.ChatInviteLink{InviteLink: "https://t.me/+abc"}}
	gw := &Telebot{api: api}
	expireAt := time.Unix(1_700_000_060, 0)

	link, err := gw.CreateInviteLink(context.Background(), "@gated", expireAt, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", link)
	require.NotNil(t, api.linkReq)
	assert.Equal(t, int64(1_700_000_060), api.linkReq.ExpireUnixtime)
	assert.Equal(t, 1, api.linkReq.MemberLimit)
}

func TestEditWithoutButtonsDropsKeyboard(t *testing.T) {
	api := &fakeAPI{}
	gw := &Telebot{api: api}

	err := gw.Edit(context.Background(), MessageRef{ChatID: 5, MessageID: 9}, Message{Text: "link"})
	require.NoError(t, err)
	require.NotNil(t, api.edited)
	assert.Equal(t, "9", api.edited.MessageID)
	assert.Equal(t, int64(5), api.edited.ChatID)
	assert.Equal(t, "link", api.text)

	require.Len(t, api.opts, 1)
	opts := api.opts[0].(*tele.SendOptions)
	assert.Nil(t, opts.ReplyMarkup)
	assert.Empty(t, opts.ParseMode)
}

func TestSendHTMLWithButtons(t *testing.T) {
	api := &fakeAPI{}
	gw := &Telebot{api: api}

	ref, err := gw.Send(context.Background(), 5, Message{
		Text:    "<b>hi</b>",
		HTML:    true,
		Buttons: []keyboard.InlineBtn{{Text: "go", URL: "https://t.me/gated"}},
	})
	require.NoError(t, err)
	assert.Equal(t, MessageRef{ChatID: 5, MessageID: 77}, ref)

	opts := api.opts[0].(*tele.SendOptions)
	assert.Equal(t, tele.ModeHTML, opts.ParseMode)
	require.NotNil(t, opts.ReplyMarkup)
	require.Len(t, opts.ReplyMarkup.InlineKeyboard, 1)
	assert.Equal(t, "https://t.me/gated", opts.ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestEditNotModified(t *testing.T) {
	api := &fakeAPI{editErr: &tele.Error{Code: 400, Description: "Bad Request: message is not modified"}}
	gw := &Telebot{api: api}

	err := gw.Edit(context.Background(), MessageRef{ChatID: 1, MessageID: 2}, Message{Text: "x"})
	assert.True(t, IsKind(err, KindNotModified))
}

func TestAcknowledge(t *testing.T) {
	api := &fakeAPI{}
	gw := &Telebot{api: api}

	require.NoError(t, gw.Acknowledge(context.Background(), "cb-1", ""))
	assert.Equal(t, "cb-1", api.answered.ID)
	assert.Empty(t, api.resp)

	require.NoError(t, gw.Acknowledge(context.Background(), "cb-2", "nope"))
	require.Len(t, api.resp, 1)
	assert.Equal(t, "nope", api.resp[0].Text)
}

func TestClassify(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "api.telegram.org"}
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"network dns", fmt.Errorf("telebot: %w", dnsErr), KindNetwork},
		{"network deadline", context.DeadlineExceeded, KindNetwork},
		{"forbidden", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, KindPermission},
		{"rights", &tele.Error{Code: 400, Description: "Bad Request: not enough rights to manage chat invite link"}, KindPermission},
		{"member list", &tele.Error{Code: 400, Description: "Bad Request: member list is inaccessible"}, KindPermission},
		{"chat not found", &tele.Error{Code: 400, Description: "Bad Request: chat not found"}, KindNotFound},
		{"participant", &tele.Error{Code: 400, Description: "Bad Request: PARTICIPANT_ID_INVALID"}, KindNotFound},
		{"too many", &tele.Error{Code: 429, Description: "Too Many Requests"}, KindRateLimited},
		{"not modified", &tele.Error{Code: 400, Description: "Bad Request: message is not modified"}, KindNotModified},
		{"server", &tele.Error{Code: 502, Description: "Bad Gateway"}, KindNetwork},
		{"parsed code", errors.New("telegram: something odd (403)"), KindPermission},
		{"unknown", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify("op", tc.err)
			assert.Equal(t, tc.want, KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestClassifyKeepsExisting(t *testing.T) {
	assert.NoError(t, Classify("op", nil))
	assert.Equal(t, Kind(""), KindOf(nil))

	first := Classify("first", &tele.Error{Code: 403, Description: "Forbidden"})
	second := Classify("second", fmt.Errorf("wrapped: %w", first))

	var gwErr *Error
	require.ErrorAs(t, second, &gwErr)
	assert.Equal(t, "first", gwErr.Op)
	assert.Equal(t, "permission", gwErr.Code())
}
