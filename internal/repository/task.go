package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bounty_hunter/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var adminTaskColumns = []string{
	"id",
	"title",
	"description",
	"platform",
	"points",
	"action_url",
	"verification_type",
	"requires_connection",
	"is_active",
	"created_by",
	"created_at",
	"updated_at",
}

type adminTask struct {
	ID                 uuid.UUID      `db:"id"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	Platform           string         `db:"platform"`
	Points             int            `db:"points"`
	ActionURL          sql.NullString `db:"action_url"`
	VerificationType   string         `db:"verification_type"`
	RequiresConnection bool           `db:"requires_connection"`
	IsActive           bool           `db:"is_active"`
	CreatedBy          sql.NullString `db:"created_by"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (t *adminTask) toModel() *model.AdminTask {
	return &model.AdminTask{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Platform:           model.TaskPlatform(t.Platform),
		Points:             t.Points,
		ActionURL:          t.ActionURL.String,
		VerificationType:   model.VerificationType(t.VerificationType),
		RequiresConnection: t.RequiresConnection,
		IsActive:           t.IsActive,
		CreatedBy:          t.CreatedBy.String,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

type userTask struct {
	UserID      uuid.UUID  `db:"user_id"`
	TaskID      uuid.UUID  `db:"task_id"`
	Status      string     `db:"status"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (t *userTask) toModel() *model.UserTask {
	return &model.UserTask{
		UserID:      t.UserID,
		TaskID:      t.TaskID,
		Status:      model.TaskStatus(t.Status),
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

func toAdminTasks(rows []adminTask) []*model.AdminTask {
	out := make([]*model.AdminTask, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

func (r *Repository) ListAdminTasks(ctx context.Context) ([]*model.AdminTask, error) {
	query, args, err := squirrel.
		Select(adminTaskColumns...).
		From("admin_tasks").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []adminTask
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list admin tasks: %w", err)
	}
	return toAdminTasks(rows), nil
}

// ListActiveTasks returns active tasks, all of them when platform is empty.
func (r *Repository) ListActiveTasks(ctx context.Context, platform model.TaskPlatform) ([]*model.AdminTask, error) {
	query := "SELECT " + joinColumns(adminTaskColumns) +
		" FROM get_active_tasks_by_platform(platform_filter => $1)"

	var rows []adminTask
	if err := r.db.SelectContext(ctx, &rows, query, nullable(string(platform))); err != nil {
		return nil, fmt.Errorf("get_active_tasks_by_platform: %w", err)
	}
	return toAdminTasks(rows), nil
}

func (r *Repository) GetAdminTask(ctx context.Context, id uuid.UUID) (*model.AdminTask, error) {
	query, args, err := squirrel.
		Select(adminTaskColumns...).
		From("admin_tasks").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row adminTask
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *Repository) CreateAdminTask(ctx context.Context, task *model.AdminTask) (uuid.UUID, error) {
	query, args, err := squirrel.
		Select().
		Column(squirrel.Expr(
			`create_admin_task(
				task_title => ?,
				task_description => ?,
				task_platform => ?,
				task_points => ?,
				task_action_url => ?,
				task_verification_type => ?,
				task_requires_connection => ?,
				task_created_by => ?)`,
			task.Title,
			task.Description,
			string(task.Platform),
			task.Points,
			nullable(task.ActionURL),
			string(task.VerificationType),
			task.RequiresConnection,
			task.CreatedBy,
		)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build rpc query: %w", err)
	}

	var id uuid.UUID
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return uuid.Nil, fmt.Errorf("create_admin_task: %w", err)
	}
	return id, nil
}

func optional[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// UpdateAdminTask applies the non-nil fields of upd.
func (r *Repository) UpdateAdminTask(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) error {
	var platform, verification interface{}
	if upd.Platform != nil {
		platform = string(*upd.Platform)
	}
	if upd.VerificationType != nil {
		verification = string(*upd.VerificationType)
	}

	query, args, err := squirrel.
		Select().
		Column(squirrel.Expr(
			`update_admin_task(
				task_id => ?,
				task_title => ?,
				task_description => ?,
				task_platform => ?,
				task_points => ?,
				task_action_url => ?,
				task_verification_type => ?,
				task_requires_connection => ?,
				task_is_active => ?)`,
			id,
			optional(upd.Title),
			optional(upd.Description),
			platform,
			optional(upd.Points),
			optional(upd.ActionURL),
			verification,
			optional(upd.RequiresConnection),
			optional(upd.IsActive),
		)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rpc query: %w", err)
	}

	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, args...); err != nil {
		return fmt.Errorf("update_admin_task: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) deleteTask(ctx context.Context, fn string, id uuid.UUID) error {
	query, args, err := squirrel.
		Select().
		Column(squirrel.Expr(fn+"(task_id => ?)", id)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rpc query: %w", err)
	}

	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, args...); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteAdminTask deactivates the task. Progress rows are kept.
func (r *Repository) DeleteAdminTask(ctx context.Context, id uuid.UUID) error {
	return r.deleteTask(ctx, "delete_admin_task", id)
}

func (r *Repository) PermanentlyDeleteAdminTask(ctx context.Context, id uuid.UUID) error {
	return r.deleteTask(ctx, "permanently_delete_admin_task", id)
}

func (r *Repository) listUserTasks(ctx context.Context, where squirrel.Sqlizer) ([]*model.UserTask, error) {
	query, args, err := squirrel.
		Select("user_id", "task_id", "status", "started_at", "completed_at").
		From("user_tasks").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []userTask
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list user tasks: %w", err)
	}

	out := make([]*model.UserTask, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (r *Repository) ListUserTasks(ctx context.Context, userID uuid.UUID) ([]*model.UserTask, error) {
	return r.listUserTasks(ctx, squirrel.Eq{"user_id": userID})
}

// ListUserTasksByStatus is the admin review queue when status is verifying.
func (r *Repository) ListUserTasksByStatus(ctx context.Context, status model.TaskStatus) ([]*model.UserTask, error) {
	return r.listUserTasks(ctx, squirrel.Eq{"status": string(status)})
}

func (r *Repository) GetUserTask(ctx context.Context, userID, taskID uuid.UUID) (*model.UserTask, error) {
	tasks, err := r.listUserTasks(ctx, squirrel.Eq{
		"user_id": userID,
		"task_id": taskID,
	})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

// TransitionUserTask moves the progress row from one status to another. The
// write only applies while the stored status still equals from, otherwise
// ErrStaleStatus is returned.
func (r *Repository) TransitionUserTask(ctx context.Context, userID, taskID uuid.UUID, from, to model.TaskStatus) error {
	now := time.Now()

	var (
		query string
		args  []interface{}
		err   error
	)
	if from == model.TaskNotStarted {
		query, args, err = squirrel.
			Insert("user_tasks").
			Columns("user_id", "task_id", "status", "started_at").
			Values(userID, taskID, string(to), now).
			Suffix("ON CONFLICT (user_id, task_id) DO UPDATE SET status = EXCLUDED.status, started_at = EXCLUDED.started_at WHERE user_tasks.status = ?", string(from)).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
	} else {
		update := squirrel.
			Update("user_tasks").
			Set("status", string(to)).
			Where(squirrel.Eq{
				"user_id": userID,
				"task_id": taskID,
				"status":  string(from),
			})
		if to == model.TaskCompleted {
			update = update.Set("completed_at", now)
		}
		query, args, err = update.PlaceholderFormat(squirrel.Dollar).ToSql()
	}
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleStatus
	}
	return nil
}
