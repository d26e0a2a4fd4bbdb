package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/referral"
	"bounty_hunter/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPublicURL = "https://bounty.example"

func newReferralRouter(us *mockIdentityService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	capture := referral.CaptureMiddleware(false)
	NewReferralLandingRoutes(r.Group("/", capture), us, testPublicURL, false)
	NewReferralRoutes(r.Group("/api/v1", capture), us, testPublicURL, false)
	return r
}

func pendingCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == referral.CookieName {
			return c
		}
	}
	return nil
}

func TestReferralLanding(t *testing.T) {
	us := new(mockIdentityService)
	us.On("LookupReferrer", mock.Anything, "ABC123").
		Return(&model.User{ID: uuid.New(), Username: "BoldFalcon7", ReferralCode: "ABC123"}, nil)
	us.On("LookupReferrer", mock.Anything, "NOPE").Return(nil, service.ErrInvalidReferral)
	r := newReferralRouter(us)

	t.Run("known code is stored", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ref/ABC123", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "BoldFalcon7")
		c := pendingCookie(w)
		require.NotNil(t, c)
		assert.Equal(t, "ABC123", c.Value)
	})

	t.Run("unknown code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ref/NOPE", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "invalid referral link")
	})
}

func TestQueryCaptureRedirects(t *testing.T) {
	r := newReferralRouter(new(mockIdentityService))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/referrals/pending?ref=XYZ&utm=1", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/v1/referrals/pending?utm=1", w.Header().Get("Location"))
	c := pendingCookie(w)
	require.NotNil(t, c)
	assert.Equal(t, "XYZ", c.Value)
}

func TestPendingReferral(t *testing.T) {
	r := newReferralRouter(new(mockIdentityService))

	t.Run("empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/referrals/pending", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"pending":false}`, w.Body.String())
	})

	t.Run("stored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals/pending", nil)
		req.AddCookie(&http.Cookie{Name: referral.CookieName, Value: "ABC123"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"pending":true,"token":"ABC123","link":"https://bounty.example/ref/ABC123"}`, w.Body.String())
	})

	t.Run("abandoned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/referrals/pending", nil)
		req.AddCookie(&http.Cookie{Name: referral.CookieName, Value: "ABC123"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		c := pendingCookie(w)
		require.NotNil(t, c)
		assert.Less(t, c.MaxAge, 0)
	})
}
