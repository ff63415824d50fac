package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// External is the processor's view of a subscription, already mapped onto the
// internal vocabulary. Built by the stripeclient package from webhook
// payloads and API responses.
type External struct {
	ID                string
	Plan              Plan
	Status            Status
	PeriodStart       time.Time
	PeriodEnd         time.Time
	TrialEnd          *time.Time
	CheckoutSessionID *string
}

// Upsert collapses repeated deliveries of the same external subscription into
// one row, keyed strictly by the external id. The conflict branch never
// touches user_id, so an existing link survives every redelivery.
//
// Owner resolution, in order: exact profile match on knownEmail, then
// whatever link the row already carries, otherwise left unlinked for the
// deferred linker.
func Upsert(db *gorm.DB, ext External, knownEmail *string) (*Subscription, error) {
	if ext.ID == "" {
		return nil, errors.New("external subscription id is required")
	}
	if !ext.Plan.Valid() {
		return nil, fmt.Errorf("invalid plan %q", ext.Plan)
	}
	if !ext.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", ext.Status)
	}

	sub := Subscription{
		ExternalSubscriptionID: ext.ID,
		UserID:                 resolveOwner(db, knownEmail),
		Plan:                   ext.Plan,
		Status:                 ext.Status,
		PeriodStart:            ext.PeriodStart,
		PeriodEnd:              ext.PeriodEnd,
		TrialEnd:               ext.TrialEnd,
		CheckoutSessionID:      ext.CheckoutSessionID,
	}
	if ext.Status == StatusCanceled {
		now := time.Now()
		sub.CanceledAt = &now
	}

	// checkout_session_id only moves forward: inputs without one (admin
	// mirrors) must not erase the token the deferred linker matches on.
	assign := []string{"plan", "status", "period_start", "period_end", "trial_end", "updated_at"}
	if ext.CheckoutSessionID != nil {
		assign = append(assign, "checkout_session_id")
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_subscription_id"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription %s: %w", ext.ID, err)
	}

	var row Subscription
	if err := db.Where("external_subscription_id = ?", ext.ID).First(&row).Error; err != nil {
		return nil, err
	}

	// A row that predates account creation may still be unlinked even though
	// we now know the owner's email. Claim it, but never steal a linked row.
	if row.UserID == nil && sub.UserID != nil {
		res := db.Model(&Subscription{}).
			Where("external_subscription_id = ? AND user_id IS NULL", ext.ID).
			Update("user_id", *sub.UserID)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			row.UserID = sub.UserID
		}
	}

	// Canceled transitions stamp canceled_at exactly once.
	if row.Status == StatusCanceled && row.CanceledAt == nil {
		now := time.Now()
		if err := db.Model(&Subscription{}).
			Where("external_subscription_id = ? AND canceled_at IS NULL", ext.ID).
			Update("canceled_at", now).Error; err != nil {
			return nil, err
		}
		row.CanceledAt = &now
	}

	return &row, nil
}

// UpdateStatus is the narrow status-only mutation used by the simpler event
// types (invoice paid/failed, subscription deleted). Idempotent: setting the
// same status twice is a no-op. Unknown external ids report not-found so the
// caller can decide whether that matters.
func UpdateStatus(db *gorm.DB, externalID string, status Status) (*Subscription, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	updates := map[string]interface{}{"status": status}
	if status == StatusCanceled {
		updates["canceled_at"] = gorm.Expr("COALESCE(canceled_at, ?)", time.Now())
	}

	res := db.Model(&Subscription{}).
		Where("external_subscription_id = ?", externalID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSubscriptionNotFound
	}

	var row Subscription
	if err := db.Where("external_subscription_id = ?", externalID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ByExternalID loads one subscription row.
func ByExternalID(db *gorm.DB, externalID string) (*Subscription, error) {
	var row Subscription
	if err := db.Where("external_subscription_id = ?", externalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &row, nil
}

// resolveOwner looks up a profile id by email. Plain table query rather than
// the profiles model to keep this package from depending on the projector's.
func resolveOwner(db *gorm.DB, knownEmail *string) *uint {
	if knownEmail == nil || *knownEmail == "" {
		return nil
	}
	var id uint
	err := db.Table("profiles").
		Select("id").
		Where("email = ?", *knownEmail).
		Limit(1).
		Scan(&id).Error
	if err != nil || id == 0 {
		return nil
	}
	return &id
}
