package service

import (
	"context"
	"fmt"
	"net/url"

	"bounty_hunter/internal/model"
	"bounty_hunter/pkg/oauth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// XConnectReward is credited each time an X account is linked.
const XConnectReward = 100

type connectionWriter interface {
	UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error)
}

type XConnectService struct {
	flow     *oauth.Flow
	social   connectionWriter
	ledger   PointsLedger
	notifier Notifier
	log      *zap.Logger
}

func NewXConnectService(flow *oauth.Flow, social connectionWriter, ledger PointsLedger, notifier Notifier, log *zap.Logger) *XConnectService {
	return &XConnectService{
		flow:     flow,
		social:   social,
		ledger:   ledger,
		notifier: notifierOrNop(notifier),
		log:      log,
	}
}

// Initiate starts an X authorization for userID bound to the browser session
// sessionID and returns the URL to redirect to. A flow already pending for
// the session is replaced.
func (s *XConnectService) Initiate(ctx context.Context, sessionID string, userID uuid.UUID) (string, error) {
	authURL, err := s.flow.Begin(sessionID, userID.String())
	if err != nil {
		return "", fmt.Errorf("failed to start x authorization: %w", err)
	}
	return authURL, nil
}

// Callback completes the authorization from the provider redirect and links
// the X account to the user that started it.
func (s *XConnectService) Callback(ctx context.Context, sessionID string, query url.Values) (*model.SocialConnection, error) {
	conn, err := s.callback(ctx, sessionID, query)
	if err != nil {
		xConnections.WithLabelValues("failed").Inc()
		return nil, err
	}
	xConnections.WithLabelValues("connected").Inc()
	return conn, nil
}

func (s *XConnectService) callback(ctx context.Context, sessionID string, query url.Values) (*model.SocialConnection, error) {
	result, err := s.flow.Complete(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(result.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user in oauth session: %w", err)
	}

	xUser, err := s.flow.XUser(ctx, result.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch x user: %w", err)
	}

	tokens := &model.OAuthTokens{
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
	}
	if !result.Token.Expiry.IsZero() {
		expiry := result.Token.Expiry
		tokens.ExpiresAt = &expiry
	}

	conn, err := s.social.UpsertConnection(ctx, model.ConnectionInput{
		UserID:           userID,
		Platform:         model.PlatformX,
		PlatformUserID:   xUser.ID,
		PlatformUsername: xUser.Username,
		Tokens:           tokens,
	})
	if err != nil {
		return nil, err
	}

	log := s.log.With(zap.String("user_id", userID.String()))

	if err := s.ledger.IncrementUserPoints(ctx, userID, XConnectReward); err != nil {
		log.Warn("failed to award x connection points", zap.Error(err))
	} else {
		s.notifier.Notify(userID, Event{
			Type: EventPointsAwarded,
			Data: map[string]interface{}{"points": XConnectReward, "reason": "x_connected"},
		})
	}

	if err := s.ledger.UpdateTaskProgress(ctx, userID); err != nil {
		log.Warn("failed to update task progress", zap.Error(err))
	}

	return conn, nil
}
