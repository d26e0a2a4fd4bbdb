package mocks

import (
	"context"

	"bounty_hunter/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskRepository struct {
	mock.Mock
}

func adminTasks(v interface{}) []*model.AdminTask {
	if v == nil {
		return nil
	}
	return v.([]*model.AdminTask)
}

func userTasks(v interface{}) []*model.UserTask {
	if v == nil {
		return nil
	}
	return v.([]*model.UserTask)
}

func (m *MockTaskRepository) ListAdminTasks(ctx context.Context) ([]*model.AdminTask, error) {
	args := m.Called(ctx)
	return adminTasks(args.Get(0)), args.Error(1)
}

func (m *MockTaskRepository) ListActiveTasks(ctx context.Context, platform model.TaskPlatform) ([]*model.AdminTask, error) {
	args := m.Called(ctx, platform)
	return adminTasks(args.Get(0)), args.Error(1)
}

func (m *MockTaskRepository) GetAdminTask(ctx context.Context, id uuid.UUID) (*model.AdminTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminTask), args.Error(1)
}

func (m *MockTaskRepository) CreateAdminTask(ctx context.Context, task *model.AdminTask) (uuid.UUID, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTaskRepository) UpdateAdminTask(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteAdminTask(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) PermanentlyDeleteAdminTask(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) ListUserTasks(ctx context.Context, userID uuid.UUID) ([]*model.UserTask, error) {
	args := m.Called(ctx, userID)
	return userTasks(args.Get(0)), args.Error(1)
}

func (m *MockTaskRepository) ListUserTasksByStatus(ctx context.Context, status model.TaskStatus) ([]*model.UserTask, error) {
	args := m.Called(ctx, status)
	return userTasks(args.Get(0)), args.Error(1)
}

func (m *MockTaskRepository) GetUserTask(ctx context.Context, userID, taskID uuid.UUID) (*model.UserTask, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserTask), args.Error(1)
}

func (m *MockTaskRepository) TransitionUserTask(ctx context.Context, userID, taskID uuid.UUID, from, to model.TaskStatus) error {
	args := m.Called(ctx, userID, taskID, from, to)
	return args.Error(0)
}

func (m *MockTaskRepository) AddUserPoints(ctx context.Context, id uuid.UUID, points int) error {
	args := m.Called(ctx, id, points)
	return args.Error(0)
}
