package referral

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CookieName   = "pending_referral"
	cookieMaxAge = 30 * 24 * time.Hour
)

// CookieSlot stores the pending token in a durable cookie of the current
// request. Writes are visible to later reads within the same request.
type CookieSlot struct {
	c      *gin.Context
	secure bool
	token  string
	set    bool
}

func NewCookieSlot(c *gin.Context, secure bool) *CookieSlot {
	s := &CookieSlot{c: c, secure: secure}
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		s.token, s.set = token, true
	}
	return s
}

func (s *CookieSlot) Peek() (string, bool) {
	return s.token, s.set
}

func (s *CookieSlot) Put(token string) {
	s.token, s.set = token, true
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(CookieName, token, int(cookieMaxAge.Seconds()), "/", "", s.secure, true)
}

func (s *CookieSlot) Clear() {
	s.token, s.set = "", false
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(CookieName, "", -1, "/", "", s.secure, true)
}
