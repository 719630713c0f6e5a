package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the subset of tele.Context the routes touch.
type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responses []*tele.CallbackResponse
}

func newCallbackContext(data string) *fakeContext {
	msg := &tele.Message{ID: 5, Chat: &tele.Chat{ID: 100, Type: tele.ChatPrivate}}
	return &fakeContext{
		update: tele.Update{ID: 1, Callback: &tele.Callback{
			ID:      "cb-1",
			Data:    data,
			Sender:  &tele.User{ID: 7},
			Message: msg,
		}},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Text() string             { return "" }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Sender() *tele.User       { return f.update.Callback.Sender }
func (f *fakeContext) Chat() *tele.Chat         { return f.update.Callback.Message.Chat }
func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	f.responses = append(f.responses, resp...)
	return nil
}

func TestCallbackRouteDispatchesByTag(t *testing.T) {
	reg := tg.NewRegistry()
	var called int
	require.NoError(t, reg.RegisterCallback("get_invite_link", func(c tele.Context) error {
		called++
		return nil
	}))

	route := CallbackRoute(reg)
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	c := newCallbackContext("\fget_invite_link")
	require.NoError(t, route.Handler(c))
	assert.Equal(t, 1, called)
	assert.Empty(t, c.responses, "registered handlers acknowledge on their own")
	assert.NotEmpty(t, c.Get("rid"))
}

func TestCallbackRouteUnknownTag(t *testing.T) {
	reg := tg.NewRegistry()
	route := CallbackRoute(reg)

	c := newCallbackContext("\fsomething_else")
	require.NoError(t, route.Handler(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, tg.UnsupportedActionText, c.responses[0].Text)
}

func TestCallbackRouteRecoversPanics(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback("boom", func(tele.Context) error {
		panic("kaboom")
	}))

	err := CallbackRoute(reg).Handler(newCallbackContext("boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Start",
		Aliases:     []string{"begin"},
	}))

	routes := CommandRoutes(reg)
	require.Len(t, routes, 2)
	endpoints := []any{routes[0].Endpoint, routes[1].Endpoint}
	assert.ElementsMatch(t, []any{"/start", "/begin"}, endpoints)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "not found" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "NOT_FOUND", deriveErrorCode(codedErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
	assert.Equal(t, "get_invite_link", normalizeHandlerName("get invite link"))
}
