package api

import (
	"net/http"
	"strings"
	"time"

	"bounty_hunter/internal/middleware"
	"bounty_hunter/internal/referral"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	PublicURL      string
	FrontendURL    string
	AllowedOrigins []string
	SecureCookies  bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type Dependencies struct {
	Service  *service.Service
	Hub      *service.Hub
	Wallets  *auth.WalletVerifier
	Sessions *auth.SessionIssuer
}

func NewRouter(cfg RouterConfig, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Metrics())

	config := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.AllowedOrigins
	}
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	svc := deps.Service
	capture := referral.CaptureMiddleware(cfg.SecureCookies)

	landing := router.Group("/", capture)
	NewReferralLandingRoutes(landing, svc.IdentityService, cfg.PublicURL, cfg.SecureCookies)

	// Shared links point at arbitrary frontend paths, so ?ref= is captured
	// on unrouted requests too.
	router.NoRoute(capture, func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	a := router.Group("/api/v1", capture)
	if cfg.RateLimitRPS > 0 {
		a.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, sessionKey(deps.Sessions)).Handler())
	}

	authz := middleware.NewAuthorization(svc.IdentityService)

	NewUserRoutes(a, svc.IdentityService, svc.LeaderboardService, deps.Wallets, deps.Sessions, cfg.SecureCookies)
	NewReferralRoutes(a, svc.IdentityService, cfg.PublicURL, cfg.SecureCookies)
	NewLeaderboardRoutes(a, svc.LeaderboardService)
	NewSocialRoutes(a, svc.SocialService, deps.Sessions)
	NewXConnectRoutes(a, svc.XConnectService, deps.Sessions, cfg.FrontendURL, cfg.SecureCookies)
	NewTaskRoutes(a, svc.TaskService, deps.Sessions)
	NewAdminRoutes(a, svc.TaskService, deps.Sessions, authz)
	NewWSRoutes(a, deps.Hub, deps.Sessions)

	return router
}

// sessionKey buckets by wallet session when the request carries a valid one.
// The limiter runs before the per-route session middleware.
func sessionKey(sessions *auth.SessionIssuer) middleware.KeyFunc {
	fallback := middleware.KeyByUserOrIP()
	return func(c *gin.Context) string {
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if s, err := sessions.Validate(strings.TrimPrefix(h, "Bearer ")); err == nil {
				return "user:" + s.UserID.String()
			}
		}
		return fallback(c)
	}
}
