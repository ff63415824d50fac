package linking

import (
	"errors"
	"log"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"gorm.io/gorm"
)

// Result reports what the linker did. Linked=false is a normal outcome, not
// an error: the subscription for a paid invite may not have arrived yet, or a
// previous call already linked it.
type Result struct {
	Linked       bool
	Subscription *subscriptions.Subscription
	Reason       string
}

// LinkRedeemedInvite resolves payment-before-signup: a user who just redeemed
// a paid invite gets attached to the subscription created by that invite's
// checkout session.
//
// Matching is strict: the session id stored on the invite must equal the
// checkout_session_id stored on the subscription row. No match means no link;
// guessing by recency is not safe under concurrent checkouts from different
// users, so it is not attempted.
//
// Safe to call twice: a second call finds the row already linked (or nothing
// unlinked) and reports that without erroring.
func LinkRedeemedInvite(db *gorm.DB, userID uint, invite *invites.InviteCode) (*Result, error) {
	if invite == nil || invite.PaymentStatus != invites.PaymentPaid {
		return &Result{Reason: "invite is not a paid invite"}, nil
	}
	if invite.ExternalSessionID == nil || *invite.ExternalSessionID == "" {
		return &Result{Reason: "invite carries no checkout session reference"}, nil
	}

	var sub subscriptions.Subscription
	err := db.Where("checkout_session_id = ?", *invite.ExternalSessionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Reason: "no subscription matches the checkout session"}, nil
		}
		return nil, err
	}

	if sub.UserID != nil {
		if *sub.UserID == userID {
			return &Result{Linked: false, Subscription: &sub, Reason: "already linked to this user"}, nil
		}
		return &Result{Subscription: &sub, Reason: "subscription belongs to another user"}, nil
	}

	// Conditional set guarded on "still unlinked" so two concurrent
	// redemptions cannot both claim the row.
	res := db.Model(&subscriptions.Subscription{}).
		Where("id = ? AND user_id IS NULL", sub.ID).
		Update("user_id", userID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return &Result{Subscription: &sub, Reason: "subscription was linked concurrently"}, nil
	}

	sub.UserID = &userID
	if err := profiles.Project(db, &sub); err != nil {
		// The link itself committed; the next subscription event re-projects.
		log.Printf("linking: projection after link failed for %s: %v", sub.ExternalSubscriptionID, err)
	}

	return &Result{Linked: true, Subscription: &sub}, nil
}
