package events

import "time"

const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"
	StatusFailed    = "failed"
)

// WebhookEvent records every processor event we have seen, keyed by the
// processor's event id. Doubles as the redelivery dedupe guard and as the
// dead-letter record: a handler failure lands here with its error instead of
// living only in scraped logs.
type WebhookEvent struct {
	ID      uint   `gorm:"primaryKey"`
	EventID string `gorm:"not null;uniqueIndex:idx_webhook_events_event_id"`
	Type    string `gorm:"not null"`
	Status  string `gorm:"type:varchar(20);not null"`
	Error   *string
	Payload []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}
