package subscriptions

import "time"

// Plan is the billing interval, the only plan axis this app sells.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanAnnual  Plan = "annual"
)

func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanAnnual
}

// Status is the reduced internal vocabulary mapped from the processor's.
// StatusUnknown is deliberate: an unmapped upstream status must surface for
// operator review instead of silently granting access.
type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusPaused     Status = "paused"
	StatusIncomplete Status = "incomplete"
	StatusUnknown    Status = "unknown"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled,
		StatusPaused, StatusIncomplete, StatusUnknown:
		return true
	}
	return false
}

// Grants reports whether the status confers app access.
func (s Status) Grants() bool {
	return s == StatusActive || s == StatusTrialing
}

// Subscription mirrors the processor's subscription record. The external id
// is the upsert key: exactly one row per processor subscription, always.
type Subscription struct {
	ID                     uint   `gorm:"primaryKey"`
	ExternalSubscriptionID string `gorm:"not null;uniqueIndex:idx_subscriptions_external_id"`

	// Nullable on purpose: payment may precede account creation. Filled in
	// later by the deferred linker.
	UserID *uint

	Plan   Plan   `gorm:"type:varchar(20);not null"`
	Status Status `gorm:"type:varchar(20);not null"`

	PeriodStart time.Time
	PeriodEnd   time.Time
	TrialEnd    *time.Time

	// Client-reference token from the checkout that created this
	// subscription. The deferred linker matches on it strictly.
	CheckoutSessionID *string `gorm:"column:checkout_session_id;index"`

	CanceledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
