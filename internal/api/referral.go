package api

import (
	"errors"
	"net/http"

	"bounty_hunter/internal/referral"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type referralRoutes struct {
	us        service.IdentityServiceI
	publicURL string
	secure    bool
}

// NewReferralLandingRoutes serves /ref/:code. The capture middleware has
// already stored the code by the time the handler runs.
func NewReferralLandingRoutes(handler gin.IRoutes, us service.IdentityServiceI, publicURL string, secureCookies bool) {
	r := &referralRoutes{us: us, publicURL: publicURL, secure: secureCookies}
	handler.GET("/ref/:code", r.Landing)
}

func NewReferralRoutes(handler *gin.RouterGroup, us service.IdentityServiceI, publicURL string, secureCookies bool) {
	r := &referralRoutes{us: us, publicURL: publicURL, secure: secureCookies}
	h := handler.Group("/referrals")
	{
		h.GET("/pending", r.GetPending)
		h.DELETE("/pending", r.ClearPending)
	}
}

func (r *referralRoutes) Landing(c *gin.Context) {
	log := logger.Logger()

	code := c.Param("code")
	referrer, err := r.us.LookupReferrer(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidReferral) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid referral link"})
			return
		}
		log.Error("failed to look up referrer", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referral_code": code,
		"referrer": gin.H{
			"username":      referrer.Username,
			"referral_code": referrer.ReferralCode,
		},
	})
}

func (r *referralRoutes) GetPending(c *gin.Context) {
	token, ok := referral.NewCookieSlot(c, r.secure).Peek()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"pending": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending": true,
		"token":   token,
		"link":    referral.LinkFor(token, r.publicURL),
	})
}

func (r *referralRoutes) ClearPending(c *gin.Context) {
	referral.NewCookieSlot(c, r.secure).Clear()
	c.Status(http.StatusNoContent)
}
