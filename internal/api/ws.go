package api

import (
	"net/http"
	"strings"
	"time"

	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type subscriber interface {
	Subscribe(userID uuid.UUID) *service.Subscription
}

type wsRoutes struct {
	hub      subscriber
	sessions *auth.SessionIssuer
}

// NewWSRoutes serves live notifications. Browsers cannot set headers on a
// websocket handshake, so the session token may also come as ?token=.
func NewWSRoutes(handler *gin.RouterGroup, hub subscriber, sessions *auth.SessionIssuer) {
	r := &wsRoutes{hub: hub, sessions: sessions}
	handler.GET("/ws", r.handleWebSocket)
}

type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (r *wsRoutes) sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func (r *wsRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	session, err := r.sessions.Validate(r.sessionToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Info("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := r.hub.Subscribe(session.UserID)
	done := make(chan struct{})

	go r.readLoop(conn, done)
	r.writeLoop(conn, sub, done, session.UserID)
}

// readLoop only consumes control frames; clients have nothing to send.
func (r *wsRoutes) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger().Info("websocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (r *wsRoutes) writeLoop(conn *websocket.Conn, sub *service.Subscription, done chan struct{}, userID uuid.UUID) {
	log := logger.Logger().With(zap.String("user_id", userID.String()))
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteWait))
				return
			}
			data, err := json.Marshal(Message{Type: string(event.Type), Payload: event.Data})
			if err != nil {
				log.Error("failed to marshal event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Info("failed to write event", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
