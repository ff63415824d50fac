package events

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Claim records the event id before any processing. Returns false when the id
// was already claimed by an earlier delivery, which makes redelivery a no-op
// for every handler behind it.
func Claim(db *gorm.DB, eventID, eventType string, payload []byte) (bool, error) {
	ev := WebhookEvent{
		EventID: eventID,
		Type:    eventType,
		Status:  StatusProcessed,
		Payload: payload,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed turns the claim into a dead-letter record. The payload is kept
// on the row, so a failed event can be replayed by an operator.
func MarkFailed(db *gorm.DB, eventID string, handlerErr error) error {
	msg := handlerErr.Error()
	return db.Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status": StatusFailed,
			"error":  msg,
		}).Error
}

// MarkIgnored tags events whose kind has no handler.
func MarkIgnored(db *gorm.DB, eventID string) error {
	return db.Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Update("status", StatusIgnored).Error
}
