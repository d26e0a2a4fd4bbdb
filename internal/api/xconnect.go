package api

import (
	"net/http"
	"net/url"

	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"bounty_hunter/pkg/oauth"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// oauthSessionCookie has no Max-Age so the pending authorization dies with
// the browser session.
const oauthSessionCookie = "x_oauth_sid"

type xConnectRoutes struct {
	xs          service.XConnectServiceI
	frontendURL string
	secure      bool
}

func NewXConnectRoutes(
	handler *gin.RouterGroup,
	xs service.XConnectServiceI,
	sessions *auth.SessionIssuer,
	frontendURL string,
	secureCookies bool,
) {
	r := &xConnectRoutes{xs: xs, frontendURL: frontendURL, secure: secureCookies}
	h := handler.Group("/social/x")
	h.GET("/connect", sessions.SessionMiddleware(), r.Connect)
	h.GET("/callback", r.Callback)
}

func (r *xConnectRoutes) browserSession(c *gin.Context) (string, error) {
	if sid, err := c.Cookie(oauthSessionCookie); err == nil && sid != "" {
		return sid, nil
	}

	sid, err := oauth.GenerateState()
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthSessionCookie, sid, 0, "/", "", r.secure, true)
	return sid, nil
}

// Connect starts the X authorization. With ?redirect=false the URL is
// returned as JSON for clients that navigate themselves.
func (r *xConnectRoutes) Connect(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sid, err := r.browserSession(c)
	if err != nil {
		log.Error("failed to create oauth browser session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	authURL, err := r.xs.Initiate(c.Request.Context(), sid, session.UserID)
	if err != nil {
		log.Error("failed to initiate x connection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start x connection"})
		return
	}

	if c.Query("redirect") == "false" {
		c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

func (r *xConnectRoutes) Callback(c *gin.Context) {
	log := logger.Logger()

	sid, _ := c.Cookie(oauthSessionCookie)

	conn, err := r.xs.Callback(c.Request.Context(), sid, c.Request.URL.Query())
	if err != nil {
		log.Warn("x oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, r.frontendRedirect("x_connect_error", err.Error()))
		return
	}

	log.Info("x account connected",
		zap.String("user_id", conn.UserID.String()),
		zap.String("x_username", conn.PlatformUsername))
	c.Redirect(http.StatusFound, r.frontendRedirect("x_connect_success", "true"))
}

func (r *xConnectRoutes) frontendRedirect(key, value string) string {
	u, err := url.Parse(r.frontendURL)
	if err != nil {
		return "/?" + url.Values{key: {value}}.Encode()
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
