package api

import (
	"net/http"

	"bounty_hunter/internal/middleware"
	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminRoutes struct {
	ts service.TaskServiceI
}

func NewAdminRoutes(handler *gin.RouterGroup, ts service.TaskServiceI, sessions *auth.SessionIssuer, authz *middleware.Authorization) {
	r := &adminRoutes{ts: ts}
	h := handler.Group("/admin")
	h.Use(sessions.SessionMiddleware(), authz.AdminOnly())
	{
		h.GET("/tasks", r.ListTasks)
		h.GET("/tasks/active", r.ListActiveTasks)
		h.POST("/tasks", r.CreateTask)
		h.PATCH("/tasks/:task_id", r.UpdateTask)
		h.POST("/tasks/:task_id/toggle", r.ToggleTask)
		h.DELETE("/tasks/:task_id", r.DeleteTask)
		h.DELETE("/tasks/:task_id/permanent", r.PermanentlyDeleteTask)

		h.GET("/reviews", r.ReviewQueue)
		h.POST("/reviews/:user_id/:task_id", r.Review)
	}
}

type CreateTaskRequest struct {
	Title              string `json:"title" binding:"required"`
	Description        string `json:"description"`
	Platform           string `json:"platform" binding:"required"`
	Points             int    `json:"points" binding:"required"`
	ActionURL          string `json:"action_url"`
	VerificationType   string `json:"verification_type"`
	RequiresConnection bool   `json:"requires_connection"`
}

type UpdateTaskRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Platform           *string `json:"platform"`
	Points             *int    `json:"points"`
	ActionURL          *string `json:"action_url"`
	VerificationType   *string `json:"verification_type"`
	RequiresConnection *bool   `json:"requires_connection"`
	IsActive           *bool   `json:"is_active"`
}

func (req UpdateTaskRequest) toModel() model.TaskUpdate {
	upd := model.TaskUpdate{
		Title:              req.Title,
		Description:        req.Description,
		Points:             req.Points,
		ActionURL:          req.ActionURL,
		RequiresConnection: req.RequiresConnection,
		IsActive:           req.IsActive,
	}
	if req.Platform != nil {
		p := model.TaskPlatform(*req.Platform)
		upd.Platform = &p
	}
	if req.VerificationType != nil {
		v := model.VerificationType(*req.VerificationType)
		upd.VerificationType = &v
	}
	return upd
}

func taskIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return uuid.Nil, false
	}
	return id, true
}

func (r *adminRoutes) ListTasks(c *gin.Context) {
	tasks, err := r.ts.ListTasks(c.Request.Context())
	if err != nil {
		respondTaskError(c, err)
		return
	}
	r.respondTasks(c, tasks)
}

func (r *adminRoutes) ListActiveTasks(c *gin.Context) {
	tasks, err := r.ts.ListActiveTasks(c.Request.Context(), model.TaskPlatform(c.Query("platform")))
	if err != nil {
		respondTaskError(c, err)
		return
	}
	r.respondTasks(c, tasks)
}

func (r *adminRoutes) respondTasks(c *gin.Context, tasks []*model.AdminTask) {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (r *adminRoutes) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task := &model.AdminTask{
		Title:              req.Title,
		Description:        req.Description,
		Platform:           model.TaskPlatform(req.Platform),
		Points:             req.Points,
		ActionURL:          req.ActionURL,
		VerificationType:   model.VerificationType(req.VerificationType),
		RequiresConnection: req.RequiresConnection,
	}
	if session, ok := auth.SessionFromContext(c); ok {
		task.CreatedBy = session.Wallet
	}

	created, err := r.ts.CreateTask(c.Request.Context(), task)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(created))
}

func (r *adminRoutes) UpdateTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := r.ts.UpdateTask(c.Request.Context(), id, req.toModel())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

type toggleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (r *adminRoutes) ToggleTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := r.ts.ToggleTask(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (r *adminRoutes) DeleteTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := r.ts.DeleteTask(c.Request.Context(), id); err != nil {
		respondTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *adminRoutes) PermanentlyDeleteTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := r.ts.PermanentlyDeleteTask(c.Request.Context(), id); err != nil {
		respondTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reviewResponse struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	StartedAt *int64 `json:"started_at"`
}

func (r *adminRoutes) ReviewQueue(c *gin.Context) {
	queue, err := r.ts.ReviewQueue(c.Request.Context())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	out := make([]reviewResponse, 0, len(queue))
	for _, ut := range queue {
		out = append(out, reviewResponse{
			UserID:    ut.UserID.String(),
			TaskID:    ut.TaskID.String(),
			Status:    string(ut.Status),
			StartedAt: unixPtr(ut.StartedAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out})
}

type reviewRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

func (r *adminRoutes) Review(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	status, err := r.ts.Approve(c.Request.Context(), userID, taskID, *req.Approve)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID.String(), "task_id": taskID.String(), "status": status})
}
