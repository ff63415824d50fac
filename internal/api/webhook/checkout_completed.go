package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/stripe/stripe-go/v75"
)

// handleCheckoutSessionCompleted is the payment-side entry of the grant flow:
// it mints (or finds) the invite for the session and upserts the subscription
// it paid for. The buyer may not have an account yet, so the subscription row
// stays unlinked until the deferred linker claims it at redemption time.
func handleCheckoutSessionCompleted(session *stripe.CheckoutSession) error {
	if session.ID == "" {
		return errors.New("checkout session missing id")
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return errors.New("checkout session missing subscription")
	}

	// The event payload only carries the subscription id; line items and
	// status need the full record.
	subData, err := Processor.GetSubscription(session.Subscription.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", session.Subscription.ID, err)
	}

	email := checkoutEmail(session)
	ext, err := stripeclient.ExternalFromSubscription(subData, &session.ID)
	if err != nil {
		return err
	}

	sub, err := subscriptions.Upsert(database.DB, ext, email)
	if err != nil {
		return err
	}

	if _, err := invites.EnsureForSession(database.DB, session.ID, email, trialDays(ext.TrialEnd)); err != nil {
		return fmt.Errorf("failed to ensure invite for session %s: %w", session.ID, err)
	}

	return profiles.Project(database.DB, sub)
}

func checkoutEmail(session *stripe.CheckoutSession) *string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return &session.CustomerDetails.Email
	}
	if session.CustomerEmail != "" {
		return &session.CustomerEmail
	}
	return nil
}

func trialDays(trialEnd *time.Time) *int {
	if trialEnd == nil {
		return nil
	}
	days := int(time.Until(*trialEnd).Hours() / 24)
	if days <= 0 {
		return nil
	}
	return &days
}
