package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bounty_hunter/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebSocket_DeliversUserEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessions(t)
	hub := service.NewHub(zap.NewNop())
	defer hub.Close()

	r := gin.New()
	NewWSRoutes(r.Group("/api/v1"), hub, sessions)
	srv := httptest.NewServer(r)
	defer srv.Close()

	userID := uuid.New()
	token, _, err := sessions.Issue(userID, testWallet)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(userID) == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(uuid.New(), service.Event{Type: service.EventTaskUpdated})
	hub.Notify(userID, service.Event{Type: service.EventPointsAwarded, Data: map[string]interface{}{"points": 100}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "points_awarded", msg.Type)
	assert.EqualValues(t, 100, msg.Payload["points"])
}

func TestWebSocket_RejectsMissingSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWSRoutes(r.Group("/api/v1"), service.NewHub(zap.NewNop()), newTestSessions(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
