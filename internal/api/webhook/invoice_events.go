package webhook

import (
	"errors"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"github.com/stripe/stripe-go/v75"
)

// handleInvoice covers the narrow status-only transitions: a paid invoice
// reactivates, a failed payment marks past due. One-off invoices with no
// subscription are ignored.
func handleInvoice(inv *stripe.Invoice, paid bool) error {
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return nil
	}

	status := subscriptions.StatusPastDue
	if paid {
		status = subscriptions.StatusActive
	}

	sub, err := subscriptions.UpdateStatus(database.DB, inv.Subscription.ID, status)
	if err != nil {
		if errors.Is(err, subscriptions.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	return profiles.Project(database.DB, sub)
}
