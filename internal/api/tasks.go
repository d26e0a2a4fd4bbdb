package api

import (
	"context"
	"errors"
	"net/http"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type taskRoutes struct {
	ts service.TaskServiceI
}

func NewTaskRoutes(handler *gin.RouterGroup, ts service.TaskServiceI, sessions *auth.SessionIssuer) {
	r := &taskRoutes{ts: ts}
	h := handler.Group("/tasks")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.ListBountyTasks)
		h.POST("/:task_id/begin", r.Begin)
		h.POST("/:task_id/verify", r.Verify)
	}
}

type taskResponse struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Platform           string `json:"platform"`
	Points             int    `json:"points"`
	ActionURL          string `json:"action_url"`
	VerificationType   string `json:"verification_type"`
	RequiresConnection bool   `json:"requires_connection"`
	IsActive           bool   `json:"is_active"`
	CreatedBy          string `json:"created_by,omitempty"`
	CreatedAt          int64  `json:"created_at"`
	UpdatedAt          int64  `json:"updated_at"`
}

func toTaskResponse(t *model.AdminTask) taskResponse {
	return taskResponse{
		ID:                 t.ID.String(),
		Title:              t.Title,
		Description:        t.Description,
		Platform:           string(t.Platform),
		Points:             t.Points,
		ActionURL:          t.ActionURL,
		VerificationType:   string(t.VerificationType),
		RequiresConnection: t.RequiresConnection,
		IsActive:           t.IsActive,
		CreatedBy:          t.CreatedBy,
		CreatedAt:          t.CreatedAt.Unix(),
		UpdatedAt:          t.UpdatedAt.Unix(),
	}
}

type bountyTaskResponse struct {
	taskResponse
	Status string `json:"status"`
}

func parseTaskPlatform(raw string) (model.TaskPlatform, bool) {
	p := model.TaskPlatform(raw)
	return p, raw == "" || p.Valid()
}

func (r *taskRoutes) ListBountyTasks(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	platform, ok := parseTaskPlatform(c.Query("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid platform"})
		return
	}

	tasks, err := r.ts.ListBountyTasks(c.Request.Context(), session.UserID, platform)
	if err != nil {
		log.Error("failed to list bounty tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get tasks"})
		return
	}

	out := make([]bountyTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, bountyTaskResponse{taskResponse: toTaskResponse(t.Task), Status: string(t.Status)})
	}

	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (r *taskRoutes) Begin(c *gin.Context) {
	r.transition(c, r.ts.Begin)
}

func (r *taskRoutes) Verify(c *gin.Context) {
	r.transition(c, r.ts.Verify)
}

type transitionFunc func(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error)

func (r *taskRoutes) transition(c *gin.Context, fn transitionFunc) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return
	}

	status, err := fn(c.Request.Context(), session.UserID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_id": taskID.String(), "status": status})
}

func respondTaskError(c *gin.Context, err error) {
	log := logger.Logger()

	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, service.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTaskInactive),
		errors.Is(err, service.ErrConnectionRequired),
		errors.Is(err, service.ErrTaskBusy),
		errors.Is(err, model.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("task operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
