package model

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralActive    ReferralStatus = "active"
	ReferralCompleted ReferralStatus = "completed"
	ReferralCancelled ReferralStatus = "cancelled"
	ReferralExpired   ReferralStatus = "expired"
	ReferralInvalid   ReferralStatus = "invalid"
)

type Referral struct {
	ID            uuid.UUID
	ReferrerID    uuid.UUID
	ReferredID    uuid.UUID
	ReferralCode  string
	Status        ReferralStatus
	PointsAwarded int
	CreatedAt     time.Time
}

// ReferralClick carries what is known about the browser that followed a
// referral link when the click is reported to the backend.
type ReferralClick struct {
	Link      string
	IPAddress string
	UserAgent string
}
