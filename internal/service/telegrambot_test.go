package service

import (
	"context"
	"testing"
	"time"

	"bounty_hunter/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func startUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Date: int(time.Now().Unix()),
			From: &tgbotapi.User{ID: 555, FirstName: "Ada", LastName: "L"},
			Chat: &tgbotapi.Chat{ID: 555},
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len("/start")},
			},
		},
	}
}

func TestTelegramBotService_HandleUpdate(t *testing.T) {
	bridge := telegram.NewBridge(time.Second)
	sender := &fakeSender{}
	bot := &TelegramBotService{bot: sender, bridge: bridge, log: zap.NewNop()}

	token, err := bridge.Register("user-1")
	require.NoError(t, err)

	bot.HandleUpdate(startUpdate("/start " + token))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, replyLinked, sender.sent[0].Text)

	owner, user, err := bridge.Await(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)
	assert.Equal(t, int64(555), user.ID)
	assert.Equal(t, "Ada L", user.Username)

	bot.HandleUpdate(startUpdate("/start " + token))
	assert.Equal(t, replyExpired, sender.sent[1].Text)

	bot.HandleUpdate(startUpdate("/start"))
	assert.Equal(t, replyWelcome, sender.sent[2].Text)

	bot.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}, From: &tgbotapi.User{ID: 1}}})
	assert.Len(t, sender.sent, 3)
}
