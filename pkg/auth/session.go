package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bounty_hunter/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSessionTTL = 24 * time.Hour
	sessionContextKey = "wallet_session"
)

var (
	ErrMissingSigningSecret = errors.New("session signing secret must be provided")
	ErrInvalidSession       = errors.New("invalid session token")
)

type SessionClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// Session is what an authenticated request knows about its caller.
type Session struct {
	UserID uuid.UUID
	Wallet string
}

type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret, issuer string, ttl time.Duration) (*SessionIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSigningSecret
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (i *SessionIssuer) Issue(userID uuid.UUID, wallet string) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := SessionClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *SessionIssuer) Validate(tokenString string) (*Session, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return i.secret, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}

	return &Session{UserID: userID, Wallet: claims.Wallet}, nil
}

// SessionMiddleware requires "Authorization: Bearer <session token>".
func (i *SessionIssuer) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		session, err := i.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Info("invalid session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Set("userID", session.UserID.String())
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}

// SetSession is used by handlers and tests that authenticate outside the middleware.
func SetSession(c *gin.Context, s *Session) {
	c.Set(sessionContextKey, s)
	c.Set("userID", s.UserID.String())
}
