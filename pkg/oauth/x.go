package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	XAuthURL     = "https://twitter.com/i/oauth2/authorize"
	XTokenURL    = "https://api.twitter.com/2/oauth2/token"
	XUserInfoURL = "https://api.twitter.com/2/users/me"
)

var XScopes = []string{"tweet.read", "users.read", "offline.access"}

// XConfig fills the provider endpoints and scopes of X for any field left empty.
func XConfig(cfg Config) Config {
	if cfg.AuthURL == "" {
		cfg.AuthURL = XAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = XTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = XUserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = XScopes
	}
	return cfg
}

type XUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type xUserEnvelope struct {
	Data *XUser `json:"data"`
}

func (f *Flow) XUser(ctx context.Context, token *oauth2.Token) (*XUser, error) {
	var envelope xUserEnvelope
	if err := f.UserInfo(ctx, token, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil || envelope.Data.ID == "" {
		return nil, fmt.Errorf("user info response has no user")
	}
	return envelope.Data, nil
}
