package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/repository"
	"bounty_hunter/internal/service/mocks"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/telegram"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(userID uuid.UUID, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []EventType
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestSocialService(repo SocialRepository, debug bool, notifier Notifier) *SocialService {
	return NewSocialService(
		repo,
		auth.NewTelegramAuth("123:bot-token", debug),
		telegram.NewBridge(time.Second),
		"bounty_bot",
		notifier,
		zap.NewNop(),
	)
}

func TestSocialService_UpsertConnection(t *testing.T) {
	userID := uuid.New()
	connectedAt := time.Now()

	t.Run("X connection stamps the user", func(t *testing.T) {
		repo := &mocks.MockSocialRepository{}
		notifier := &recordingNotifier{}
		in := model.ConnectionInput{UserID: userID, Platform: model.PlatformX, PlatformUserID: "42", PlatformUsername: "hunter"}

		repo.On("UpsertConnection", mock.Anything, in).Return(&model.SocialConnection{
			UserID: userID, Platform: model.PlatformX, PlatformUserID: "42", PlatformUsername: "hunter",
			ConnectedAt: connectedAt, IsActive: true,
		}, nil).Once()
		repo.On("SetXConnectedAt", mock.Anything, userID, connectedAt).Return(nil).Once()

		s := newTestSocialService(repo, false, notifier)
		conn, err := s.UpsertConnection(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "hunter", conn.PlatformUsername)
		assert.Equal(t, []EventType{EventSocialConnected}, notifier.types())
		repo.AssertExpectations(t)
	})

	t.Run("Telegram connection does not stamp", func(t *testing.T) {
		repo := &mocks.MockSocialRepository{}
		in := model.ConnectionInput{UserID: userID, Platform: model.PlatformTelegram, PlatformUserID: "7"}
		repo.On("UpsertConnection", mock.Anything, in).Return(&model.SocialConnection{Platform: model.PlatformTelegram}, nil).Once()

		s := newTestSocialService(repo, false, nil)
		_, err := s.UpsertConnection(context.Background(), in)
		require.NoError(t, err)
		repo.AssertNotCalled(t, "SetXConnectedAt", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown platform is rejected", func(t *testing.T) {
		repo := &mocks.MockSocialRepository{}
		s := newTestSocialService(repo, false, nil)
		_, err := s.UpsertConnection(context.Background(), model.ConnectionInput{UserID: userID, Platform: "myspace", PlatformUserID: "1"})
		assert.Error(t, err)
		repo.AssertNotCalled(t, "UpsertConnection", mock.Anything, mock.Anything)
	})
}

func TestSocialService_GetByPlatformAndDeactivate(t *testing.T) {
	userID := uuid.New()
	connID := uuid.New()

	repo := &mocks.MockSocialRepository{}
	repo.On("GetActiveConnection", mock.Anything, userID, model.PlatformX).Return(nil, repository.ErrNotFound).Once()
	repo.On("GetActiveConnection", mock.Anything, userID, model.PlatformTelegram).
		Return(&model.SocialConnection{ID: connID, Platform: model.PlatformTelegram, IsActive: true}, nil).Once()
	repo.On("DeactivateConnection", mock.Anything, userID, connID).Return(nil).Once()
	repo.On("DeactivateConnection", mock.Anything, userID, mock.Anything).Return(repository.ErrNotFound).Once()

	s := newTestSocialService(repo, false, nil)
	ctx := context.Background()

	_, err := s.GetByPlatform(ctx, userID, model.PlatformX)
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	conn, err := s.GetByPlatform(ctx, userID, model.PlatformTelegram)
	require.NoError(t, err)
	assert.Equal(t, connID, conn.ID)

	require.NoError(t, s.Deactivate(ctx, userID, connID))
	assert.ErrorIs(t, s.Deactivate(ctx, userID, uuid.New()), ErrConnectionNotFound)
	repo.AssertExpectations(t)
}

func TestSocialService_LinkTelegramWidget(t *testing.T) {
	userID := uuid.New()
	payload := TelegramWidgetPayload{ID: 777, Username: "tg_hunter", AuthDate: time.Now().Unix(), Hash: "deadbeef"}

	t.Run("Bad hash", func(t *testing.T) {
		repo := &mocks.MockSocialRepository{}
		s := newTestSocialService(repo, false, nil)
		_, err := s.LinkTelegramWidget(context.Background(), userID, payload)
		assert.ErrorIs(t, err, ErrTelegramAuth)
		assert.ErrorIs(t, err, auth.ErrTelegramHashMismatch)
	})

	t.Run("Verified", func(t *testing.T) {
		repo := &mocks.MockSocialRepository{}
		repo.On("UpsertConnection", mock.Anything, model.ConnectionInput{
			UserID:           userID,
			Platform:         model.PlatformTelegram,
			PlatformUserID:   "777",
			PlatformUsername: "tg_hunter",
		}).Return(&model.SocialConnection{Platform: model.PlatformTelegram, PlatformUserID: "777"}, nil).Once()

		s := newTestSocialService(repo, true, nil)
		conn, err := s.LinkTelegramWidget(context.Background(), userID, payload)
		require.NoError(t, err)
		assert.Equal(t, "777", conn.PlatformUserID)
		repo.AssertExpectations(t)
	})
}

func TestSocialService_TelegramBridgeLink(t *testing.T) {
	userID := uuid.New()
	repo := &mocks.MockSocialRepository{}
	repo.On("UpsertConnection", mock.Anything, mock.MatchedBy(func(in model.ConnectionInput) bool {
		return in.UserID == userID && in.Platform == model.PlatformTelegram && in.PlatformUserID == "99"
	})).Return(&model.SocialConnection{Platform: model.PlatformTelegram, PlatformUserID: "99"}, nil).Once()

	s := newTestSocialService(repo, false, nil)
	ctx := context.Background()

	link, err := s.StartTelegramLink(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/bounty_bot?start="+link.Token, link.DeepLink)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = s.bridge.Resolve(link.Token, &auth.TelegramUserData{ID: 99, Username: "bridge_user"})
	}()

	conn, err := s.AwaitTelegramLink(ctx, userID, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "99", conn.PlatformUserID)
	assert.Zero(t, s.bridge.Len())

	_, err = s.AwaitTelegramLink(ctx, userID, link.Token)
	assert.ErrorIs(t, err, telegram.ErrUnknownToken)
}

func TestSocialService_TelegramBridgeWrongOwner(t *testing.T) {
	repo := &mocks.MockSocialRepository{}
	s := newTestSocialService(repo, false, nil)
	ctx := context.Background()

	link, err := s.StartTelegramLink(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, s.bridge.Resolve(link.Token, &auth.TelegramUserData{ID: 1}))

	_, err = s.AwaitTelegramLink(ctx, uuid.New(), link.Token)
	assert.ErrorIs(t, err, telegram.ErrUnknownToken)
	repo.AssertNotCalled(t, "UpsertConnection", mock.Anything, mock.Anything)
}
