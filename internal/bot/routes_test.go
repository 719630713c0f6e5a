package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/internal/gateway"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Callback != nil && f.update.Callback.Message != nil {
		return f.update.Callback.Message.Chat
	}
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}

func startContext() *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 3, Message: &tele.Message{
			ID:     11,
			Text:   "/start",
			Sender: &tele.User{ID: 42},
			Chat:   &tele.Chat{ID: 7, Type: tele.ChatPrivate},
		}},
		store: map[string]any{},
	}
}

func callbackContext(data string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 4, Callback: &tele.Callback{
			ID:     "cb-9",
			Data:   data,
			Sender: &tele.User{ID: 42},
			Message: &tele.Message{
				ID:   70,
				Chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate},
			},
		}},
		store: map[string]any{},
	}
}

func TestEventFromStart(t *testing.T) {
	ev, ok := EventFrom(startContext())
	require.True(t, ok)

	start, isStart := ev.(StartCommand)
	require.True(t, isStart)
	assert.Equal(t, int64(42), start.UserID)
	assert.Equal(t, gateway.MessageRef{ChatID: 7, MessageID: 11}, ev.Target())
}

func TestEventFromCallback(t *testing.T) {
	ev, ok := EventFrom(callbackContext("\f" + ActionNewInvite + "|"))
	require.True(t, ok)

	btn, isButton := ev.(ButtonPress)
	require.True(t, isButton)
	assert.Equal(t, "cb-9", btn.CallbackID)
	assert.Equal(t, ActionNewInvite, btn.Action)
	assert.Equal(t, gateway.MessageRef{ChatID: 7, MessageID: 70}, ev.Target())
}

func TestEventFromEmptyUpdate(t *testing.T) {
	_, ok := EventFrom(&fakeContext{store: map[string]any{}})
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	h := newHandler(&fakeGateway{}, &fakeDeferrer{})
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))

	_, _, ok := reg.LookupCommand("/start")
	assert.True(t, ok)
	assert.Equal(t, []string{ActionGetInvite, ActionNewInvite}, reg.ListCallbacks())

	assert.Error(t, h.Register(reg))
}

func TestOnUpdateStart(t *testing.T) {
	gw := &fakeGateway{status: tele.Member}
	h := newHandler(gw, &fakeDeferrer{})

	require.NoError(t, h.onUpdate(startContext()))
	assert.Equal(t, []string{"member", "send"}, gw.ops())
}

func TestOnUpdateCallback(t *testing.T) {
	gw := &fakeGateway{links: []string{"https://t.me/+a"}}
	def := &fakeDeferrer{}
	h := newHandler(gw, def)

	require.NoError(t, h.onUpdate(callbackContext("\f"+ActionGetInvite)))
	ack, ok := gw.last("ack")
	require.True(t, ok)
	assert.Equal(t, "cb-9", ack.arg)
	assert.Len(t, def.tasks, 1)
}

func TestOnUpdateFailureApologizes(t *testing.T) {
	gw := &fakeGateway{
		links:   []string{"https://t.me/+a"},
		editErr: &gateway.Error{Op: gateway.OpEdit, Kind: gateway.KindNetwork, Err: errors.New("connection reset")},
	}
	h := newHandler(gw, &fakeDeferrer{})

	err := h.onUpdate(callbackContext("\f" + ActionGetInvite))
	require.Error(t, err)

	sent, ok := gw.last("send")
	require.True(t, ok)
	assert.Equal(t, int64(7), sent.ref.ChatID)
	assert.Equal(t, ApologyText, sent.msg.Text)
}

type panicGateway struct{ *fakeGateway }

func (panicGateway) MemberStatus(context.Context, string, int64) (tele.MemberStatus, error) {
	panic("boom")
}

func TestOnUpdatePanicApologizes(t *testing.T) {
	inner := &fakeGateway{}
	h := New(Options{Gateway: panicGateway{inner}, Channel: channel, Deferrer: &fakeDeferrer{}})

	err := h.onUpdate(startContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	sent, ok := inner.last("send")
	require.True(t, ok)
	assert.Equal(t, ApologyText, sent.msg.Text)
}
