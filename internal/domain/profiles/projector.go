package profiles

import (
	"gorm.io/gorm"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"
)

// Project writes the subscription's status onto the linked profile's cached
// fields. One-directional: it never reads back into or mutates the
// subscription. Unlinked subscriptions are a no-op: there is nothing to
// project onto yet.
//
// Must run after every subscription mutation, webhook and admin paths alike.
func Project(db *gorm.DB, sub *subscriptions.Subscription) error {
	if sub == nil || sub.UserID == nil {
		return nil
	}

	status := string(sub.Status)
	return db.Model(&Profile{}).
		Where("id = ?", *sub.UserID).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"trial_end":           sub.TrialEnd,
			"is_active":           sub.Status.Grants(),
		}).Error
}
