package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"bounty_hunter/internal/model"
	"bounty_hunter/pkg/oauth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testFrontendURL = "https://app.bounty.example/profile"

func newXConnectRouter(t *testing.T, xs *mockXConnectService) (*gin.Engine, func(uuid.UUID) string) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessions(t)
	r := gin.New()
	NewXConnectRoutes(r.Group("/api/v1"), xs, sessions, testFrontendURL, false)
	return r, func(id uuid.UUID) string { return bearer(t, sessions, id) }
}

func TestXConnect_StartsFlowForBrowserSession(t *testing.T) {
	xs := new(mockXConnectService)
	userID := uuid.New()
	xs.On("Initiate", mock.Anything, "sid-1", userID).Return("https://twitter.com/i/oauth2/authorize?state=s", nil)
	r, auth := newXConnectRouter(t, xs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/social/x/connect", nil)
	req.Header.Set("Authorization", auth(userID))
	req.AddCookie(&http.Cookie{Name: oauthSessionCookie, Value: "sid-1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://twitter.com/i/oauth2/authorize?state=s", w.Header().Get("Location"))
	xs.AssertExpectations(t)
}

func TestXConnect_IssuesSessionCookie(t *testing.T) {
	xs := new(mockXConnectService)
	userID := uuid.New()
	xs.On("Initiate", mock.Anything, mock.AnythingOfType("string"), userID).Return("https://x.example/authorize", nil)
	r, auth := newXConnectRouter(t, xs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/social/x/connect?redirect=false", nil)
	req.Header.Set("Authorization", auth(userID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"auth_url":"https://x.example/authorize"}`, w.Body.String())

	var sid *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == oauthSessionCookie {
			sid = c
		}
	}
	require.NotNil(t, sid)
	assert.NotEmpty(t, sid.Value)
	assert.Zero(t, sid.MaxAge)
	assert.True(t, sid.HttpOnly)
}

func TestXCallback_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		conn     *model.SocialConnection
		err      error
		expected url.Values
	}{
		{
			name:     "Success",
			conn:     &model.SocialConnection{UserID: uuid.New(), Platform: model.PlatformX, PlatformUsername: "hunter"},
			expected: url.Values{"x_connect_success": {"true"}},
		},
		{
			name:     "State mismatch",
			err:      oauth.ErrStateMismatch,
			expected: url.Values{"x_connect_error": {oauth.ErrStateMismatch.Error()}},
		},
		{
			name:     "Provider error",
			err:      &oauth.ProviderError{Code: "access_denied"},
			expected: url.Values{"x_connect_error": {"provider returned error: access_denied"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xs := new(mockXConnectService)
			xs.On("Callback", mock.Anything, "sid-1", mock.Anything).Return(tt.conn, tt.err)
			r, _ := newXConnectRouter(t, xs)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/social/x/callback?code=c&state=s", nil)
			req.AddCookie(&http.Cookie{Name: oauthSessionCookie, Value: "sid-1"})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusFound, w.Code)
			loc, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "app.bounty.example", loc.Host)
			assert.Equal(t, "/profile", loc.Path)
			assert.Equal(t, tt.expected, loc.Query())
		})
	}
}
