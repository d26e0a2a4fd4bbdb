package mocks

import (
	"context"

	"bounty_hunter/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLeaderboardRepository struct {
	mock.Mock
}

func entries(v interface{}) []*model.LeaderboardEntry {
	if v == nil {
		return nil
	}
	return v.([]*model.LeaderboardEntry)
}

func (m *MockLeaderboardRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLeaderboardRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockLeaderboardRepository) GetTopReferrers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	return entries(args.Get(0)), args.Error(1)
}

func (m *MockLeaderboardRepository) GetTopUsersWithReferrals(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	return entries(args.Get(0)), args.Error(1)
}

func (m *MockLeaderboardRepository) CountUsersAbove(ctx context.Context, points int) (int, error) {
	args := m.Called(ctx, points)
	return args.Int(0), args.Error(1)
}

func (m *MockLeaderboardRepository) CountActiveReferrals(ctx context.Context, referrerID uuid.UUID) (int, error) {
	args := m.Called(ctx, referrerID)
	return args.Int(0), args.Error(1)
}

func (m *MockLeaderboardRepository) GetReferrerUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
