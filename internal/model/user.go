package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID
	WalletAddress       string
	Username            string
	UsernameChangedAt   *time.Time
	Points              int
	Rank                int
	ReferralCode        string
	ReferralLink        string
	IsAdmin             bool
	XConnectedAt        *time.Time
	ConnectionTimestamp time.Time
}

// CanRename reports whether the generated username may still be replaced.
func (u *User) CanRename() bool {
	return u.UsernameChangedAt == nil
}

type UserStats struct {
	UserID         uuid.UUID
	TotalReferrals int
	TotalPoints    int
	GlobalRank     int
	ReferredBy     string
}

type LeaderboardEntry struct {
	Username  string
	Points    int
	Referrals int
	Rank      int
}
