package billing

import "time"

// Refund is an append-only log of refunds issued through the admin gateway.
// The processor's record is authoritative; this row exists for audit only.
type Refund struct {
	ID              uint   `gorm:"primaryKey"`
	PaymentIntentID string `gorm:"not null;index"`
	StripeRefundID  string `gorm:"uniqueIndex"`
	AmountEUR       *float64
	Status          string
	Reason          *string
	RequestedBy     uint
	CreatedAt       time.Time
}
