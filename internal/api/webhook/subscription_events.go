package webhook

import (
	"errors"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionUpserted serves both created and updated events: the
// synchronizer's upsert makes the distinction irrelevant.
func handleSubscriptionUpserted(stripeSub *stripe.Subscription) error {
	ext, err := stripeclient.ExternalFromSubscription(stripeSub, nil)
	if err != nil {
		return err
	}

	sub, err := subscriptions.Upsert(database.DB, ext, nil)
	if err != nil {
		return err
	}
	return profiles.Project(database.DB, sub)
}

func handleSubscriptionDeleted(stripeSub *stripe.Subscription) error {
	if stripeSub.ID == "" {
		return errors.New("subscription missing id")
	}

	sub, err := subscriptions.UpdateStatus(database.DB, stripeSub.ID, subscriptions.StatusCanceled)
	if err != nil {
		// A deletion for a subscription we never stored is not actionable.
		if errors.Is(err, subscriptions.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	return profiles.Project(database.DB, sub)
}
