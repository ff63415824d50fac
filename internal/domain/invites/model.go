package invites

import "time"

// PaymentStatus tracks how (or whether) an invite was paid for.
type PaymentStatus string

const (
	PaymentNone    PaymentStatus = "none"
	PaymentPending PaymentStatus = "pending_payment"
	PaymentPaid    PaymentStatus = "paid"
	PaymentTrial   PaymentStatus = "free_trial"
	PaymentComped  PaymentStatus = "comped"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentNone, PaymentPending, PaymentPaid, PaymentTrial, PaymentComped:
		return true
	}
	return false
}

type Tier string

const (
	TierStandard Tier = "standard"
	TierFounding Tier = "founding"
)

func (t Tier) Valid() bool {
	return t == TierStandard || t == TierFounding
}

type InviteCode struct {
	ID             uint   `gorm:"primaryKey"`
	Code           string `gorm:"not null;uniqueIndex:idx_invite_codes_code"`
	CreatedBy      *uint
	RecipientEmail *string
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;default:'none'"`
	Tier           Tier          `gorm:"type:varchar(20);not null;default:'standard'"`
	TrialDays      *int

	// Checkout session that paid for this code, when it was created by a
	// completed checkout rather than by an admin. One invite per session.
	ExternalSessionID *string `gorm:"uniqueIndex:idx_invite_codes_session"`

	ExpiresAt time.Time `gorm:"not null"`

	// At most one redeemer, ever. Set once via conditional update.
	UsedBy *uint
	UsedAt *time.Time

	IsRevoked bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ic *InviteCode) Redeemed() bool {
	return ic.UsedBy != nil
}

// Expired mirrors the redemption guard's "expires_at > now": a code is dead
// the instant its expiry is reached, boundary included.
func (ic *InviteCode) Expired(now time.Time) bool {
	return !now.Before(ic.ExpiresAt)
}
