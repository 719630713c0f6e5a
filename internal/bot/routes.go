package bot

import (
	"context"
	"fmt"

	tg "github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/invitebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Register adds /start and both invite actions to reg.
func (h *Handler) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onUpdate,
		Description: "Получить ссылку на канал",
	}); err != nil {
		return err
	}
	for _, action := range []string{ActionGetInvite, ActionNewInvite} {
		if err := reg.RegisterCallback(action, h.onUpdate); err != nil {
			return err
		}
	}
	return nil
}

// onUpdate adapts a telebot update. Any failure, panics included, is returned
// for the summary log after the chat got a generic apology.
func (h *Handler) onUpdate(c tele.Context) (err error) {
	ctx := tghelpers.BuildContext(c)
	ev, ok := EventFrom(c)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			h.apologize(context.WithoutCancel(ctx), ev.Target().ChatID)
		}
	}()

	_, err = h.Handle(ctx, ev)
	return err
}
