package bot

import (
	"fmt"
	"html"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/telegram/keyboard"
	"github.com/m3rciful/invitebot/internal/gateway"
)

// State of a bot message.
type State string

const (
	StateWelcomeMember    State = "WELCOME_MEMBER"
	StateWelcomeNonMember State = "WELCOME_NONMEMBER"
	StateLinkIssued       State = "LINK_ISSUED"
	StateLinkExpired      State = "LINK_EXPIRED"
	StateLinkError        State = "LINK_ERROR"
)

// Callback action tags.
const (
	ActionGetInvite = "get_invite_link"
	ActionNewInvite = "new_invite_link"
)

const (
	memberText = "🤖 Спасибо за сообщение, я бот и не могу на них отвечать.\n\n" +
		"🪪 Я вижу, что ты уже участник нашего канала - <u>там есть вся информация</u>. " +
		"<b>Остались вопросы?</b>\n\n" +
		"<b>Для консультации напишите нам:</b> %s ✅"
	welcomeText = "<b>☑️ Приглашаем Вас в наш канал, где Вы ознакомитесь с гарантиями, " +
		"отзывами и услугами, а так же найдете способы связи с нами для оформления 🪪\n\n" +
		"Нажмите на кнопку ниже для того чтобы получить ссылку для вступления в канал👇👇👇</b>"
	linkText    = "🔐 Ваша инвайт-ссылка:\n%s\n\n❗️ Инвайт одноразовый и действителен 60 сек."
	expiredText = "🚨 Срок действия ссылки истек. Запросите новую!"
	errorText   = "❌ Не удалось создать ссылку. Попробуйте позже."

	// ApologyText answers unexpected handler failures.
	ApologyText = "⚠️ Что-то пошло не так. Попробуйте ещё раз позже."

	channelButtonText = "➡️ Перейти в канал"
	newLinkButtonText = "🚀 Получить новую ссылку"
)

// Texts renders each message state.
type Texts struct {
	ChannelLink  string
	AdminContact string
}

// NewTexts takes the public channel link and admin contact from cfg.
func NewTexts(cfg coreconfig.ChannelConfig) Texts {
	return Texts{ChannelLink: cfg.Link, AdminContact: cfg.AdminContact}
}

// Render builds the message for state. link is only used by StateLinkIssued.
func (t Texts) Render(state State, link string) gateway.Message {
	switch state {
	case StateWelcomeMember:
		return gateway.Message{
			Text:    fmt.Sprintf(memberText, html.EscapeString(t.AdminContact)),
			HTML:    true,
			Buttons: []keyboard.InlineBtn{{Text: channelButtonText, URL: t.ChannelLink}},
		}
	case StateWelcomeNonMember:
		return gateway.Message{
			Text:    welcomeText,
			HTML:    true,
			Buttons: []keyboard.InlineBtn{{Text: channelButtonText, Unique: ActionGetInvite}},
		}
	case StateLinkIssued:
		return gateway.Message{Text: fmt.Sprintf(linkText, link)}
	case StateLinkExpired:
		return gateway.Message{
			Text:    expiredText,
			Buttons: []keyboard.InlineBtn{{Text: newLinkButtonText, Unique: ActionNewInvite}},
		}
	default: // StateLinkError
		return gateway.Message{
			Text:    errorText,
			Buttons: []keyboard.InlineBtn{{Text: newLinkButtonText, Unique: ActionNewInvite}},
		}
	}
}
