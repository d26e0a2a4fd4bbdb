package middleware

import (
	"context"
	"net/http"

	"bounty_hunter/internal/model"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type userGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type Authorization struct {
	users userGetter
}

func NewAuthorization(users userGetter) *Authorization {
	return &Authorization{
		users: users,
	}
}

// AdminOnly must run after the session middleware.
func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		session, ok := auth.SessionFromContext(c)
		if !ok {
			log.Error("wallet session not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := a.users.GetUser(c.Request.Context(), session.UserID)
		if err != nil {
			log.Error("failed to get user data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		if !user.IsAdmin {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.String("user_id", session.UserID.String()),
				zap.String("wallet", session.Wallet))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("is_admin", true)
		c.Next()
	}
}
