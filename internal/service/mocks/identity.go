package mocks

import (
	"context"

	"bounty_hunter/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockIdentityRepository struct {
	mock.Mock
}

func userOrNil(v interface{}) *model.User {
	if v == nil {
		return nil
	}
	return v.(*model.User)
}

func (m *MockIdentityRepository) GetUserByWallet(ctx context.Context, wallet string) (*model.User, error) {
	args := m.Called(ctx, wallet)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIdentityRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIdentityRepository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	args := m.Called(ctx, code)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIdentityRepository) GetUserByReferralLink(ctx context.Context, link string) (*model.User, error) {
	args := m.Called(ctx, link)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIdentityRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockIdentityRepository) RenameUser(ctx context.Context, id uuid.UUID, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

type MockAttributionService struct {
	mock.Mock
}

func (m *MockAttributionService) TrackReferralClick(ctx context.Context, click model.ReferralClick) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockAttributionService) ProcessReferralFromLink(ctx context.Context, link string, newUserID uuid.UUID) error {
	args := m.Called(ctx, link, newUserID)
	return args.Error(0)
}

type MockPointsLedger struct {
	mock.Mock
}

func (m *MockPointsLedger) IncrementUserPoints(ctx context.Context, userID uuid.UUID, points int) error {
	args := m.Called(ctx, userID, points)
	return args.Error(0)
}

func (m *MockPointsLedger) UpdateTaskProgress(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
