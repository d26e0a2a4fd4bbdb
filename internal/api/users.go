package api

import (
	"errors"
	"net/http"
	"time"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/referral"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type walletVerifier interface {
	Verify(address string, issuedAt int64, signature string) (string, error)
}

type userRoutes struct {
	us       service.IdentityServiceI
	ls       service.LeaderboardServiceI
	wallets  walletVerifier
	sessions *auth.SessionIssuer
	secure   bool
}

func NewUserRoutes(
	handler *gin.RouterGroup,
	us service.IdentityServiceI,
	ls service.LeaderboardServiceI,
	wallets walletVerifier,
	sessions *auth.SessionIssuer,
	secureCookies bool,
) {
	r := &userRoutes{us: us, ls: ls, wallets: wallets, sessions: sessions, secure: secureCookies}
	h := handler.Group("/users")
	h.POST("/connect", r.Connect)

	me := h.Group("/me")
	me.Use(sessions.SessionMiddleware())
	{
		me.GET("", r.GetMe)
		me.PATCH("/username", r.Rename)
		me.GET("/stats", r.GetStats)
	}
}

type ConnectRequest struct {
	Address   string `json:"address" binding:"required"`
	IssuedAt  int64  `json:"issued_at" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type ConnectResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	CanRename     bool   `json:"can_rename"`
	Points        int    `json:"current_points"`
	Rank          int    `json:"current_rank"`
	ReferralCode  string `json:"referral_code"`
	ReferralLink  string `json:"referral_link"`
	IsAdmin       bool   `json:"is_admin"`
	XConnectedAt  *int64 `json:"x_connected_at"`
	ConnectedAt   int64  `json:"connection_timestamp"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		WalletAddress: u.WalletAddress,
		Username:      u.Username,
		CanRename:     u.CanRename(),
		Points:        u.Points,
		Rank:          u.Rank,
		ReferralCode:  u.ReferralCode,
		ReferralLink:  u.ReferralLink,
		IsAdmin:       u.IsAdmin,
		XConnectedAt:  unixPtr(u.XConnectedAt),
		ConnectedAt:   u.ConnectionTimestamp.Unix(),
	}
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

// Connect signs the wallet in, creating the user on first sight. A pending
// referral in the browser is attributed to a newly created user.
func (r *userRoutes) Connect(c *gin.Context) {
	log := logger.Logger()

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	address, err := r.wallets.Verify(req.Address, req.IssuedAt, req.Signature)
	if err != nil {
		log.Info("wallet signature rejected", zap.String("address", req.Address), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := r.us.Resolve(c.Request.Context(), service.ConnectRequest{
		Address:   address,
		Referrals: referral.NewCookieSlot(c, r.secure),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		log.Error("failed to resolve identity", zap.String("address", address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to connect wallet"})
		return
	}

	token, expiresAt, err := r.sessions.Issue(user.ID, user.WalletAddress)
	if err != nil {
		log.Error("failed to issue session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ConnectResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      toUserResponse(user),
	})
}

func (r *userRoutes) GetMe(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type RenameRequest struct {
	Username string `json:"username" binding:"required"`
}

func (r *userRoutes) Rename(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Rename(c.Request.Context(), session.UserID, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrUsernameLocked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			log.Error("failed to rename user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update username"})
		}
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (r *userRoutes) GetStats(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := r.ls.UserStats(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to get user stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_referrals": stats.TotalReferrals,
		"total_points":    stats.TotalPoints,
		"global_rank":     stats.GlobalRank,
		"referred_by":     stats.ReferredBy,
	})
}
