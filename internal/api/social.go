package api

import (
	"errors"
	"net/http"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"bounty_hunter/pkg/telegram"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type socialRoutes struct {
	ss service.SocialServiceI
}

func NewSocialRoutes(handler *gin.RouterGroup, ss service.SocialServiceI, sessions *auth.SessionIssuer) {
	r := &socialRoutes{ss: ss}
	h := handler.Group("/social")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", r.List)
		h.GET("/:platform", r.GetByPlatform)
		h.DELETE("/:id", r.Deactivate)

		tg := h.Group("/telegram")
		tg.POST("/widget", r.LinkTelegramWidget)
		tg.POST("/initdata", r.LinkTelegramInitData)
		tg.POST("/link", r.StartTelegramLink)
		tg.GET("/link/:token", r.AwaitTelegramLink)
	}
}

type connectionResponse struct {
	ID               string `json:"id"`
	Platform         string `json:"platform"`
	PlatformUserID   string `json:"platform_user_id"`
	PlatformUsername string `json:"platform_username"`
	ConnectedAt      int64  `json:"connected_at"`
	IsActive         bool   `json:"is_active"`
}

// Tokens never leave the server.
func toConnectionResponse(conn *model.SocialConnection) connectionResponse {
	return connectionResponse{
		ID:               conn.ID.String(),
		Platform:         string(conn.Platform),
		PlatformUserID:   conn.PlatformUserID,
		PlatformUsername: conn.PlatformUsername,
		ConnectedAt:      conn.ConnectedAt.Unix(),
		IsActive:         conn.IsActive,
	}
}

func (r *socialRoutes) List(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conns, err := r.ss.List(c.Request.Context(), session.UserID)
	if err != nil {
		log.Error("failed to list social connections", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get connections"})
		return
	}

	out := make([]connectionResponse, 0, len(conns))
	for _, conn := range conns {
		out = append(out, toConnectionResponse(conn))
	}

	c.JSON(http.StatusOK, gin.H{"connections": out})
}

func (r *socialRoutes) GetByPlatform(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	platform, err := model.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := r.ss.GetByPlatform(c.Request.Context(), session.UserID, platform)
	if err != nil {
		if errors.Is(err, service.ErrConnectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not connected"})
			return
		}
		log.Error("failed to get social connection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get connection"})
		return
	}

	c.JSON(http.StatusOK, toConnectionResponse(conn))
}

func (r *socialRoutes) Deactivate(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}

	err = r.ss.Deactivate(c.Request.Context(), session.UserID, connectionID)
	if err != nil {
		if errors.Is(err, service.ErrConnectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		}
		log.Error("failed to deactivate social connection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *socialRoutes) LinkTelegramWidget(c *gin.Context) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var payload service.TelegramWidgetPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conn, err := r.ss.LinkTelegramWidget(c.Request.Context(), session.UserID, payload)
	r.respondLinked(c, conn, err)
}

type initDataRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func (r *socialRoutes) LinkTelegramInitData(c *gin.Context) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req initDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conn, err := r.ss.LinkTelegramInitData(c.Request.Context(), session.UserID, req.InitData)
	r.respondLinked(c, conn, err)
}

func (r *socialRoutes) StartTelegramLink(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	link, err := r.ss.StartTelegramLink(c.Request.Context(), session.UserID)
	if err != nil {
		log.Error("failed to start telegram link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start telegram link"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      link.Token,
		"deep_link":  link.DeepLink,
		"expires_at": link.ExpiresAt.Unix(),
	})
}

// AwaitTelegramLink blocks until the bot reports the /start for token or the
// link times out.
func (r *socialRoutes) AwaitTelegramLink(c *gin.Context) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := r.ss.AwaitTelegramLink(c.Request.Context(), session.UserID, c.Param("token"))
	r.respondLinked(c, conn, err)
}

func (r *socialRoutes) respondLinked(c *gin.Context, conn *model.SocialConnection, err error) {
	log := logger.Logger()

	switch {
	case err == nil:
		c.JSON(http.StatusOK, toConnectionResponse(conn))
	case errors.Is(err, service.ErrTelegramAuth):
		log.Info("telegram authentication rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "telegram authentication failed"})
	case errors.Is(err, telegram.ErrUnknownToken), errors.Is(err, telegram.ErrAlreadyResolved):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, telegram.ErrLinkTimeout):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
	default:
		log.Error("failed to link telegram account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link telegram"})
	}
}
