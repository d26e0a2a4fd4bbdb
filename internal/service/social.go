package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/repository"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/telegram"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TelegramWidgetPayload = auth.LoginWidgetData

// TelegramLink is an open bot link attempt.
type TelegramLink struct {
	Token     string
	DeepLink  string
	ExpiresAt time.Time
}

type SocialService struct {
	repo        SocialRepository
	tgAuth      *auth.TelegramAuth
	bridge      *telegram.Bridge
	botUsername string
	notifier    Notifier
	log         *zap.Logger
}

func NewSocialService(
	repo SocialRepository,
	tgAuth *auth.TelegramAuth,
	bridge *telegram.Bridge,
	botUsername string,
	notifier Notifier,
	log *zap.Logger,
) *SocialService {
	return &SocialService{
		repo:        repo,
		tgAuth:      tgAuth,
		bridge:      bridge,
		botUsername: botUsername,
		notifier:    notifierOrNop(notifier),
		log:         log,
	}
}

// UpsertConnection stores the account for (user, platform), replacing any
// previous one.
func (s *SocialService) UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error) {
	if _, err := model.ParsePlatform(string(in.Platform)); err != nil {
		return nil, err
	}
	if in.PlatformUserID == "" {
		return nil, errors.New("platform user id is required")
	}

	conn, err := s.repo.UpsertConnection(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert social connection: %w", err)
	}

	if in.Platform == model.PlatformX {
		if err := s.repo.SetXConnectedAt(ctx, in.UserID, conn.ConnectedAt); err != nil {
			s.log.Warn("failed to stamp x connection time", zap.String("user_id", in.UserID.String()), zap.Error(err))
		}
	}

	s.notifier.Notify(in.UserID, Event{
		Type: EventSocialConnected,
		Data: map[string]interface{}{
			"platform": conn.Platform,
			"username": conn.PlatformUsername,
		},
	})

	return conn, nil
}

func (s *SocialService) Deactivate(ctx context.Context, userID, connectionID uuid.UUID) error {
	err := s.repo.DeactivateConnection(ctx, userID, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConnectionNotFound
		}
		return fmt.Errorf("failed to deactivate social connection: %w", err)
	}
	return nil
}

func (s *SocialService) GetByPlatform(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error) {
	conn, err := s.repo.GetActiveConnection(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get social connection: %w", err)
	}
	return conn, nil
}

func (s *SocialService) List(ctx context.Context, userID uuid.UUID) ([]*model.SocialConnection, error) {
	conns, err := s.repo.ListActiveConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social connections: %w", err)
	}
	return conns, nil
}

func (s *SocialService) linkTelegram(ctx context.Context, userID uuid.UUID, tgUser *auth.TelegramUserData) (*model.SocialConnection, error) {
	return s.UpsertConnection(ctx, model.ConnectionInput{
		UserID:           userID,
		Platform:         model.PlatformTelegram,
		PlatformUserID:   strconv.FormatInt(tgUser.ID, 10),
		PlatformUsername: tgUser.Username,
	})
}

func (s *SocialService) LinkTelegramWidget(ctx context.Context, userID uuid.UUID, payload TelegramWidgetPayload) (*model.SocialConnection, error) {
	tgUser, err := s.tgAuth.VerifyLoginWidget(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTelegramAuth, err)
	}
	return s.linkTelegram(ctx, userID, tgUser)
}

func (s *SocialService) LinkTelegramInitData(ctx context.Context, userID uuid.UUID, initData string) (*model.SocialConnection, error) {
	tgUser, err := s.tgAuth.ValidateInitData(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTelegramAuth, err)
	}
	return s.linkTelegram(ctx, userID, tgUser)
}

// StartTelegramLink opens a one-shot link attempt that completes when the
// user sends /start <token> to the bot.
func (s *SocialService) StartTelegramLink(ctx context.Context, userID uuid.UUID) (*TelegramLink, error) {
	token, err := s.bridge.Register(userID.String())
	if err != nil {
		return nil, err
	}

	return &TelegramLink{
		Token:     token,
		DeepLink:  fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, token),
		ExpiresAt: time.Now().Add(s.bridge.Timeout()),
	}, nil
}

// AwaitTelegramLink waits for the bot to resolve token and stores the
// Telegram account it reported.
func (s *SocialService) AwaitTelegramLink(ctx context.Context, userID uuid.UUID, token string) (*model.SocialConnection, error) {
	owner, tgUser, err := s.bridge.Await(ctx, token)
	if err != nil {
		return nil, err
	}
	if owner != userID.String() {
		return nil, telegram.ErrUnknownToken
	}
	return s.linkTelegram(ctx, userID, tgUser)
}
