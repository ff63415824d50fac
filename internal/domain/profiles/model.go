package profiles

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Profile is owned by the account system; this core only reads role/email and
// writes the projected subscription fields. subscription_status and trial_end
// are a fast-read cache of the linked subscription, never the source of truth.
type Profile struct {
	ID    uint   `gorm:"primaryKey"`
	Email string `gorm:"not null;uniqueIndex:idx_profiles_email"`
	Role  string `gorm:"type:varchar(20);not null;default:'member'"`

	SubscriptionStatus *string `gorm:"column:subscription_status"`
	TrialEnd           *time.Time
	IsActive           bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
