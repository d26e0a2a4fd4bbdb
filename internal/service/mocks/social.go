package mocks

import (
	"context"
	"time"

	"bounty_hunter/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSocialRepository struct {
	mock.Mock
}

func connectionOrNil(v interface{}) *model.SocialConnection {
	if v == nil {
		return nil
	}
	return v.(*model.SocialConnection)
}

func (m *MockSocialRepository) UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error) {
	args := m.Called(ctx, in)
	return connectionOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSocialRepository) DeactivateConnection(ctx context.Context, userID, connectionID uuid.UUID) error {
	args := m.Called(ctx, userID, connectionID)
	return args.Error(0)
}

func (m *MockSocialRepository) GetActiveConnection(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error) {
	args := m.Called(ctx, userID, platform)
	return connectionOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSocialRepository) ListActiveConnections(ctx context.Context, userID uuid.UUID) ([]*model.SocialConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialConnection), args.Error(1)
}

func (m *MockSocialRepository) ConnectedPlatforms(ctx context.Context, userID uuid.UUID) ([]model.Platform, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Platform), args.Error(1)
}

func (m *MockSocialRepository) SetXConnectedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
