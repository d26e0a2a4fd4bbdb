package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

type Config struct {
	ClientID     string   `mapstructure:"clientId"`
	ClientSecret string   `mapstructure:"clientSecret"`
	RedirectURL  string   `mapstructure:"redirectUrl"`
	AuthURL      string   `mapstructure:"authUrl"`
	TokenURL     string   `mapstructure:"tokenUrl"`
	UserInfoURL  string   `mapstructure:"userInfoUrl"`
	Scopes       []string `mapstructure:"scopes"`
}

// Flow runs the two phases of an authorization-code grant with PKCE.
type Flow struct {
	cfg         *oauth2.Config
	userInfoURL string
	store       SessionStore
	now         func() time.Time
}

func NewFlow(cfg Config, store SessionStore) *Flow {
	return &Flow{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		store:       store,
		now:         time.Now,
	}
}

// Begin stores a fresh session for sessionID and returns the authorization
// URL the user agent must be sent to.
func (f *Flow) Begin(sessionID, userID string) (string, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	f.store.Save(sessionID, Session{
		UserID:    userID,
		Verifier:  verifier,
		State:     state,
		CreatedAt: f.now(),
	})

	return f.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

type Result struct {
	UserID string
	Token  *oauth2.Token
}

// Complete validates the redirect parameters against the stored session and
// exchanges the code. The session is consumed whatever the outcome.
func (f *Flow) Complete(ctx context.Context, sessionID string, query url.Values) (*Result, error) {
	session, found := f.store.Take(sessionID)

	if code := query.Get("error"); code != "" {
		return nil, &ProviderError{Code: code, Description: query.Get("error_description")}
	}
	if !found {
		return nil, ErrStateNotFound
	}
	if query.Get("state") == "" || query.Get("state") != session.State {
		return nil, ErrStateMismatch
	}

	code := query.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := f.cfg.Exchange(ctx, code, oauth2.VerifierOption(session.Verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return &Result{UserID: session.UserID, Token: token}, nil
}

// UserInfo fetches the provider's current-user document with token and
// decodes it into v.
func (f *Flow) UserInfo(ctx context.Context, token *oauth2.Token, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build user info request: %w", err)
	}

	resp, err := f.cfg.Client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read user info: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode user info: %w", err)
	}

	return nil
}
