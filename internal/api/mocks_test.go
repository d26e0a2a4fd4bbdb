package api

import (
	"context"
	"net/url"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockIdentityService struct {
	mock.Mock
}

func userOrNil(v interface{}) *model.User {
	if v == nil {
		return nil
	}
	return v.(*model.User)
}

func (m *mockIdentityService) Resolve(ctx context.Context, req service.ConnectRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *mockIdentityService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *mockIdentityService) Rename(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	args := m.Called(ctx, id, username)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *mockIdentityService) LookupReferrer(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	return userOrNil(args.Get(0)), args.Error(1)
}

type mockXConnectService struct {
	mock.Mock
}

func (m *mockXConnectService) Initiate(ctx context.Context, sessionID string, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.String(0), args.Error(1)
}

func (m *mockXConnectService) Callback(ctx context.Context, sessionID string, query url.Values) (*model.SocialConnection, error) {
	args := m.Called(ctx, sessionID, query)
	if v := args.Get(0); v != nil {
		return v.(*model.SocialConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTaskService struct {
	mock.Mock
	service.TaskServiceI
}

func (m *mockTaskService) Begin(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error) {
	args := m.Called(ctx, userID, taskID)
	return args.Get(0).(model.TaskStatus), args.Error(1)
}

func (m *mockTaskService) Verify(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error) {
	args := m.Called(ctx, userID, taskID)
	return args.Get(0).(model.TaskStatus), args.Error(1)
}

func (m *mockTaskService) CreateTask(ctx context.Context, task *model.AdminTask) (*model.AdminTask, error) {
	args := m.Called(ctx, task)
	if v := args.Get(0); v != nil {
		return v.(*model.AdminTask), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeWallets struct {
	address string
	err     error
}

func (f fakeWallets) Verify(address string, issuedAt int64, signature string) (string, error) {
	return f.address, f.err
}

type mockSocialService struct {
	mock.Mock
	service.SocialServiceI
}

func (m *mockSocialService) GetByPlatform(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error) {
	args := m.Called(ctx, userID, platform)
	if v := args.Get(0); v != nil {
		return v.(*model.SocialConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSocialService) Deactivate(ctx context.Context, userID, connectionID uuid.UUID) error {
	return m.Called(ctx, userID, connectionID).Error(0)
}

func (m *mockSocialService) AwaitTelegramLink(ctx context.Context, userID uuid.UUID, token string) (*model.SocialConnection, error) {
	args := m.Called(ctx, userID, token)
	if v := args.Get(0); v != nil {
		return v.(*model.SocialConnection), args.Error(1)
	}
	return nil, args.Error(1)
}
