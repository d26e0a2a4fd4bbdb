package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"bounty_hunter/internal/middleware"
	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTaskTransitions(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		method   string
		status   model.TaskStatus
		err      error
		expected int
	}{
		{name: "Begin", path: "begin", method: "Begin", status: model.TaskInProgress, expected: http.StatusOK},
		{name: "Verify completes", path: "verify", method: "Verify", status: model.TaskCompleted, expected: http.StatusOK},
		{name: "Needs connection", path: "verify", method: "Verify", status: model.TaskInProgress, err: service.ErrConnectionRequired, expected: http.StatusConflict},
		{name: "Invalid transition", path: "begin", method: "Begin", status: model.TaskCompleted, err: model.ErrInvalidTransition, expected: http.StatusConflict},
		{name: "Unknown task", path: "begin", method: "Begin", status: "", err: service.ErrTaskNotFound, expected: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			sessions := newTestSessions(t)
			ts := new(mockTaskService)
			userID, taskID := uuid.New(), uuid.New()
			ts.On(tt.method, mock.Anything, userID, taskID).Return(tt.status, tt.err)

			r := gin.New()
			NewTaskRoutes(r.Group("/api/v1"), ts, sessions)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+taskID.String()+"/"+tt.path, nil)
			req.Header.Set("Authorization", bearer(t, sessions, userID))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.err == nil {
				assert.Contains(t, w.Body.String(), string(tt.status))
			}
		})
	}
}

func TestTaskTransitions_BadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessions(t)
	r := gin.New()
	NewTaskRoutes(r.Group("/api/v1"), new(mockTaskService), sessions)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/not-a-uuid/begin", nil)
	req.Header.Set("Authorization", bearer(t, sessions, uuid.New()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCreateTask(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessions(t)

	admin := &model.User{ID: uuid.New(), IsAdmin: true}
	member := &model.User{ID: uuid.New()}
	us := new(mockIdentityService)
	us.On("GetUser", mock.Anything, admin.ID).Return(admin, nil)
	us.On("GetUser", mock.Anything, member.ID).Return(member, nil)

	ts := new(mockTaskService)
	ts.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *model.AdminTask) bool {
		return task.Title == "Follow us" && task.Platform == model.TaskPlatformX && task.CreatedBy == testWallet
	})).Return(&model.AdminTask{ID: uuid.New(), Title: "Follow us", Platform: model.TaskPlatformX, Points: 50}, nil)

	r := gin.New()
	NewAdminRoutes(r.Group("/api/v1"), ts, sessions, middleware.NewAuthorization(us))

	body := `{"title":"Follow us","platform":"x","points":50,"verification_type":"social"}`

	for _, tc := range []struct {
		user     *model.User
		expected int
	}{
		{user: member, expected: http.StatusForbidden},
		{user: admin, expected: http.StatusCreated},
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tasks", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t, sessions, tc.user.ID))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, tc.expected, w.Code)
	}
	ts.AssertNumberOfCalls(t, "CreateTask", 1)
}
