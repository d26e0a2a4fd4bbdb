package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	replyLinked  = "Your Telegram account is now linked to Bounty Hunter. You can return to the app."
	replyExpired = "This link has expired. Start the connection again from the app."
	replyWelcome = "Open Bounty Hunter and use \"Connect Telegram\" to link this account."
)

type BotConfig struct {
	BotToken string
	Debug    bool
}

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBotService answers /start deep links and hands the sender's
// account to the link bridge.
type TelegramBotService struct {
	bot    botSender
	api    *tgbotapi.BotAPI
	bridge *telegram.Bridge
	log    *zap.Logger
}

func NewTelegramBotService(config BotConfig, bridge *telegram.Bridge, log *zap.Logger) (*TelegramBotService, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug

	return &TelegramBotService{
		bot:    bot,
		api:    bot,
		bridge: bridge,
		log:    log,
	}, nil
}

func (s *TelegramBotService) Username() string {
	if s.api == nil {
		return ""
	}
	return s.api.Self.UserName
}

func (s *TelegramBotService) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() || msg.Command() != "start" {
		return
	}

	reply := replyWelcome
	if token := msg.CommandArguments(); token != "" {
		user := &auth.TelegramUserData{
			ID:       msg.From.ID,
			Username: auth.DisplayName(msg.From.UserName, msg.From.FirstName, msg.From.LastName),
			AuthDate: time.Unix(int64(msg.Date), 0),
		}

		err := s.bridge.Resolve(token, user)
		switch {
		case err == nil:
			reply = replyLinked
			s.log.Info("telegram link resolved", zap.Int64("telegram_id", user.ID))
		case errors.Is(err, telegram.ErrUnknownToken), errors.Is(err, telegram.ErrAlreadyResolved):
			reply = replyExpired
		default:
			s.log.Error("failed to resolve telegram link", zap.Error(err))
			reply = replyExpired
		}
	}

	if _, err := s.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		s.log.Warn("failed to reply to telegram user", zap.Error(err))
	}
}

// StartLinkListener polls the bot updates until ctx is done.
func (s *TelegramBotService) StartLinkListener(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := s.api.GetUpdatesChan(updateConfig)
	defer s.api.StopReceivingUpdates()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)

		case <-ctx.Done():
			return
		}
	}
}
