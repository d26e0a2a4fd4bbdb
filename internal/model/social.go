package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformX        Platform = "x"
)

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case PlatformTelegram, PlatformX:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

type SocialConnection struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Platform         Platform
	PlatformUserID   string
	PlatformUsername string
	Tokens           *OAuthTokens
	ConnectedAt      time.Time
	IsActive         bool
}

// ConnectionInput is the payload of an upsert keyed by (UserID, Platform).
type ConnectionInput struct {
	UserID           uuid.UUID
	Platform         Platform
	PlatformUserID   string
	PlatformUsername string
	Tokens           *OAuthTokens
}
