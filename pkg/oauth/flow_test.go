package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	server     *httptest.Server
	tokenCalls atomic.Int32
	verifier   atomic.Value
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "good-code", r.PostForm.Get("code"))
		if want, _ := p.verifier.Load().(string); want != r.PostForm.Get("code_verifier") {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "bearer",
			"expires_in":    7200,
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"42","username":"hunter","name":"Hunter"}}`))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestFlow(p *fakeProvider) (*Flow, *MemorySessionStore) {
	store := NewMemorySessionStore(0)
	flow := NewFlow(XConfig(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://api.example/callback",
		AuthURL:      p.server.URL + "/authorize",
		TokenURL:     p.server.URL + "/token",
		UserInfoURL:  p.server.URL + "/me",
	}), store)
	return flow, store
}

func beginAndCapture(t *testing.T, flow *Flow, store *MemorySessionStore, p *fakeProvider) (url.Values, Session) {
	authURL, err := flow.Begin("sid", "user-1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	store.mu.Lock()
	session := store.sessions["sid"]
	store.mu.Unlock()
	p.verifier.Store(session.Verifier)

	return u.Query(), session
}

func TestFlow_Begin(t *testing.T) {
	p := newFakeProvider(t)
	flow, store := newTestFlow(p)

	params, session := beginAndCapture(t, flow, store, p)

	assert.Equal(t, "code", params.Get("response_type"))
	assert.Equal(t, "client", params.Get("client_id"))
	assert.Equal(t, "https://api.example/callback", params.Get("redirect_uri"))
	assert.Equal(t, "tweet.read users.read offline.access", params.Get("scope"))
	assert.Equal(t, session.State, params.Get("state"))
	assert.Equal(t, Challenge(session.Verifier), params.Get("code_challenge"))
	assert.Equal(t, "S256", params.Get("code_challenge_method"))
	assert.Equal(t, "user-1", session.UserID)
	assert.Len(t, session.Verifier, VerifierLength)
}

func TestFlow_Complete(t *testing.T) {
	p := newFakeProvider(t)
	flow, store := newTestFlow(p)
	ctx := context.Background()

	_, session := beginAndCapture(t, flow, store, p)
	callback := url.Values{"code": {"good-code"}, "state": {session.State}}

	res, err := flow.Complete(ctx, "sid", callback)
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, "access", res.Token.AccessToken)
	assert.Equal(t, "refresh", res.Token.RefreshToken)
	assert.False(t, res.Token.Expiry.IsZero())
	assert.Equal(t, 0, store.Len())

	user, err := flow.XUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", user.ID)
	assert.Equal(t, "hunter", user.Username)

	t.Run("replay fails with state not found", func(t *testing.T) {
		_, err := flow.Complete(ctx, "sid", callback)
		assert.ErrorIs(t, err, ErrStateNotFound)
		assert.Equal(t, int32(1), p.tokenCalls.Load())
	})
}

func TestFlow_Complete_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		query   func(state string) url.Values
		wantErr error
	}{
		{
			name: "state mismatch",
			query: func(string) url.Values {
				return url.Values{"code": {"good-code"}, "state": {"forged"}}
			},
			wantErr: ErrStateMismatch,
		},
		{
			name: "missing state",
			query: func(string) url.Values {
				return url.Values{"code": {"good-code"}}
			},
			wantErr: ErrStateMismatch,
		},
		{
			name: "missing code",
			query: func(state string) url.Values {
				return url.Values{"state": {state}}
			},
			wantErr: ErrMissingCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			flow, store := newTestFlow(p)
			_, session := beginAndCapture(t, flow, store, p)

			_, err := flow.Complete(ctx, "sid", tt.query(session.State))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(0), p.tokenCalls.Load())
			assert.Equal(t, 0, store.Len())
		})
	}

	t.Run("provider error", func(t *testing.T) {
		p := newFakeProvider(t)
		flow, store := newTestFlow(p)
		beginAndCapture(t, flow, store, p)

		_, err := flow.Complete(ctx, "sid", url.Values{"error": {"access_denied"}, "error_description": {"user said no"}})

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "access_denied", perr.Code)
		assert.Equal(t, int32(0), p.tokenCalls.Load())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("no session", func(t *testing.T) {
		p := newFakeProvider(t)
		flow, _ := newTestFlow(p)

		_, err := flow.Complete(ctx, "unknown", url.Values{"code": {"good-code"}, "state": {"s"}})
		assert.ErrorIs(t, err, ErrStateNotFound)
		assert.Equal(t, int32(0), p.tokenCalls.Load())
	})
}
