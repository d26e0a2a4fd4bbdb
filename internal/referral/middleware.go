package referral

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CaptureMiddleware stores referral signals of GET requests in the
// pending_referral cookie. A ?ref= request is redirected to the same URL
// without the parameter so the signal is not captured again on reload.
func CaptureMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		capture, ok := CaptureURL(c.Request.URL, NewCookieSlot(c, secure))
		if ok && capture.Source == SourceQuery {
			c.Redirect(http.StatusFound, capture.CleanURL.RequestURI())
			c.Abort()
			return
		}

		c.Next()
	}
}
