package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTaskAuthor = "admin"

type connectionLookup interface {
	GetByPlatform(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error)
}

type TaskService struct {
	repo        TaskRepository
	ledger      PointsLedger
	connections connectionLookup
	notifier    Notifier
	log         *zap.Logger
}

func NewTaskService(repo TaskRepository, ledger PointsLedger, connections connectionLookup, notifier Notifier, log *zap.Logger) *TaskService {
	return &TaskService{
		repo:        repo,
		ledger:      ledger,
		connections: connections,
		notifier:    notifierOrNop(notifier),
		log:         log,
	}
}

// ListBountyTasks pairs the active tasks with the user's progress. Tasks the
// user never touched are not_started.
func (s *TaskService) ListBountyTasks(ctx context.Context, userID uuid.UUID, platform model.TaskPlatform) ([]*model.BountyTask, error) {
	tasks, err := s.repo.ListActiveTasks(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}

	progress, err := s.repo.ListUserTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tasks: %w", err)
	}

	status := make(map[uuid.UUID]model.TaskStatus, len(progress))
	for _, p := range progress {
		status[p.TaskID] = p.Status
	}

	out := make([]*model.BountyTask, len(tasks))
	for i, t := range tasks {
		st, ok := status[t.ID]
		if !ok {
			st = model.TaskNotStarted
		}
		out[i] = &model.BountyTask{Task: t, Status: st}
	}
	return out, nil
}

func (s *TaskService) activeTask(ctx context.Context, id uuid.UUID) (*model.AdminTask, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}
	return task, nil
}

func (s *TaskService) getTask(ctx context.Context, id uuid.UUID) (*model.AdminTask, error) {
	task, err := s.repo.GetAdminTask(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) currentStatus(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error) {
	progress, err := s.repo.GetUserTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TaskNotStarted, nil
		}
		return "", fmt.Errorf("failed to get task progress: %w", err)
	}
	return progress.Status, nil
}

// advance applies event to the stored status and persists the result.
func (s *TaskService) advance(ctx context.Context, userID uuid.UUID, task *model.AdminTask, from model.TaskStatus, event model.TaskEvent) (model.TaskStatus, error) {
	to, err := from.Next(event)
	if err != nil {
		return from, err
	}

	err = s.repo.TransitionUserTask(ctx, userID, task.ID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return from, ErrTaskBusy
		}
		return from, fmt.Errorf("failed to update task status: %w", err)
	}

	s.notifier.Notify(userID, Event{
		Type: EventTaskUpdated,
		Data: map[string]interface{}{"task_id": task.ID, "status": to},
	})
	return to, nil
}

func (s *TaskService) Begin(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error) {
	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	current, err := s.currentStatus(ctx, userID, taskID)
	if err != nil {
		return "", err
	}

	return s.advance(ctx, userID, task, current, model.EventBegin)
}

func (s *TaskService) linked(ctx context.Context, userID uuid.UUID, platform model.Platform) (bool, error) {
	_, err := s.connections.GetByPlatform(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, ErrConnectionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verify submits the task for verification. Tasks tied to a social platform
// are checked against the user's linked account right away; everything else
// waits in verifying for an admin.
func (s *TaskService) Verify(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error) {
	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	current, err := s.currentStatus(ctx, userID, taskID)
	if err != nil {
		return "", err
	}
	if _, err := current.Next(model.EventVerify); err != nil {
		return current, err
	}

	platform, social := task.Platform.SocialPlatform()
	isLinked := false
	if social {
		if isLinked, err = s.linked(ctx, userID, platform); err != nil {
			return current, fmt.Errorf("failed to check social connection: %w", err)
		}
	}
	if task.RequiresConnection && !isLinked {
		return current, ErrConnectionRequired
	}

	status, err := s.advance(ctx, userID, task, current, model.EventVerify)
	if err != nil {
		return status, err
	}

	if task.VerificationType == model.VerificationManual || !social {
		return status, nil
	}

	if !isLinked {
		return s.advance(ctx, userID, task, status, model.EventFail)
	}
	return s.complete(ctx, userID, task, status)
}

// Approve settles a task waiting for manual verification.
func (s *TaskService) Approve(ctx context.Context, userID, taskID uuid.UUID, pass bool) (model.TaskStatus, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	current, err := s.currentStatus(ctx, userID, taskID)
	if err != nil {
		return "", err
	}

	if pass {
		return s.complete(ctx, userID, task, current)
	}
	return s.advance(ctx, userID, task, current, model.EventFail)
}

func (s *TaskService) ReviewQueue(ctx context.Context) ([]*model.UserTask, error) {
	tasks, err := s.repo.ListUserTasksByStatus(ctx, model.TaskVerifying)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks awaiting review: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) complete(ctx context.Context, userID uuid.UUID, task *model.AdminTask, from model.TaskStatus) (model.TaskStatus, error) {
	status, err := s.advance(ctx, userID, task, from, model.EventPass)
	if err != nil {
		return status, err
	}

	s.award(ctx, userID, task)
	return status, nil
}

// award credits the task points. When the ledger procedure fails the balance
// is updated directly.
func (s *TaskService) award(ctx context.Context, userID uuid.UUID, task *model.AdminTask) {
	log := s.log.With(zap.String("user_id", userID.String()), zap.String("task_id", task.ID.String()))

	if err := s.ledger.IncrementUserPoints(ctx, userID, task.Points); err != nil {
		log.Warn("increment_user_points failed, updating balance directly", zap.Error(err))
		if err := s.repo.AddUserPoints(ctx, userID, task.Points); err != nil {
			log.Error("failed to award task points", zap.Error(err))
			return
		}
	}

	s.notifier.Notify(userID, Event{
		Type: EventPointsAwarded,
		Data: map[string]interface{}{"points": task.Points, "task_id": task.ID},
	})

	if err := s.ledger.UpdateTaskProgress(ctx, userID); err != nil {
		log.Warn("failed to update task progress", zap.Error(err))
	}
}

func (s *TaskService) ListTasks(ctx context.Context) ([]*model.AdminTask, error) {
	tasks, err := s.repo.ListAdminTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListActiveTasks(ctx context.Context, platform model.TaskPlatform) ([]*model.AdminTask, error) {
	if platform != "" && !platform.Valid() {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidTask, platform)
	}
	tasks, err := s.repo.ListActiveTasks(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}
	return tasks, nil
}

func validateTask(task *model.AdminTask) error {
	switch {
	case strings.TrimSpace(task.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	case !task.Platform.Valid():
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidTask, task.Platform)
	case task.Points <= 0:
		return fmt.Errorf("%w: points must be positive", ErrInvalidTask)
	case !task.VerificationType.Valid():
		return fmt.Errorf("%w: unknown verification type %q", ErrInvalidTask, task.VerificationType)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, task *model.AdminTask) (*model.AdminTask, error) {
	if task.VerificationType == "" {
		task.VerificationType = model.VerificationManual
	}
	if task.CreatedBy == "" {
		task.CreatedBy = defaultTaskAuthor
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateAdminTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.log.Info("task created", zap.String("task_id", id.String()), zap.String("title", task.Title))
	return s.getTask(ctx, id)
}

func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) (*model.AdminTask, error) {
	switch {
	case upd.Title != nil && strings.TrimSpace(*upd.Title) == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	case upd.Platform != nil && !upd.Platform.Valid():
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidTask, *upd.Platform)
	case upd.Points != nil && *upd.Points <= 0:
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalidTask)
	case upd.VerificationType != nil && !upd.VerificationType.Valid():
		return nil, fmt.Errorf("%w: unknown verification type %q", ErrInvalidTask, *upd.VerificationType)
	}

	if err := s.repo.UpdateAdminTask(ctx, id, upd); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.getTask(ctx, id)
}

func (s *TaskService) ToggleTask(ctx context.Context, id uuid.UUID, active bool) (*model.AdminTask, error) {
	return s.UpdateTask(ctx, id, model.TaskUpdate{IsActive: &active})
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAdminTask(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *TaskService) PermanentlyDeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.PermanentlyDeleteAdminTask(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to permanently delete task: %w", err)
	}
	s.log.Info("task permanently deleted", zap.String("task_id", id.String()))
	return nil
}
