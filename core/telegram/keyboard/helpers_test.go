package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestInlineButtons(t *testing.T) {
	assert.Nil(t, InlineButtons(nil))

	markup := InlineButtons([]InlineBtn{
		{Text: "Channel", URL: "https://t.me/gated"},
		{Text: "Invite", Unique: "get_invite_link"},
	})
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 1)

	link := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Channel", link.Text)
	assert.Equal(t, "https://t.me/gated", link.URL)
	assert.Empty(t, link.Unique)

	action := markup.InlineKeyboard[1][0]
	assert.Equal(t, "Invite", action.Text)
	assert.Equal(t, "get_invite_link", action.Unique)
	assert.Empty(t, action.URL)
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name        string
		cb          *tele.Callback
		wantKey     string
		wantPayload string
	}{
		{name: "nil", cb: nil},
		{name: "unique set", cb: &tele.Callback{Unique: "new_invite_link", Data: "p"}, wantKey: "new_invite_link", wantPayload: "p"},
		{name: "encoded", cb: &tele.Callback{Data: "\fget_invite_link"}, wantKey: "get_invite_link"},
		{name: "encoded with payload", cb: &tele.Callback{Data: "\fget_invite_link|42"}, wantKey: "get_invite_link", wantPayload: "42"},
		{name: "plain", cb: &tele.Callback{Data: "new_invite_link"}, wantKey: "new_invite_link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tt.cb)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantPayload, payload)
		})
	}
}
