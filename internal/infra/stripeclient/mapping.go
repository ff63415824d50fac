package stripeclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"github.com/stripe/stripe-go/v75"
)

// MapStatus folds Stripe's subscription status vocabulary onto the internal
// one. The switch is exhaustive over the statuses Stripe documents today;
// anything new lands on StatusUnknown for operator review instead of being
// treated as active.
func MapStatus(s stripe.SubscriptionStatus) subscriptions.Status {
	switch s {
	case stripe.SubscriptionStatusActive:
		return subscriptions.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return subscriptions.StatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return subscriptions.StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return subscriptions.StatusCanceled
	case stripe.SubscriptionStatusPaused:
		return subscriptions.StatusPaused
	case stripe.SubscriptionStatusIncomplete:
		return subscriptions.StatusIncomplete
	default:
		return subscriptions.StatusUnknown
	}
}

// PlanFromInterval derives the internal plan from a price's billing interval.
// Only month and year are sold; anything else is a configuration error and
// must fail rather than being guessed at.
func PlanFromInterval(interval stripe.PriceRecurringInterval) (subscriptions.Plan, error) {
	switch interval {
	case stripe.PriceRecurringIntervalMonth:
		return subscriptions.PlanMonthly, nil
	case stripe.PriceRecurringIntervalYear:
		return subscriptions.PlanAnnual, nil
	default:
		return "", fmt.Errorf("unsupported billing interval %q", interval)
	}
}

// ExternalFromSubscription translates a Stripe subscription into the
// synchronizer's input. The plan comes from the first line item's interval.
func ExternalFromSubscription(sub *stripe.Subscription, checkoutSessionID *string) (subscriptions.External, error) {
	if sub == nil || sub.ID == "" {
		return subscriptions.External{}, errors.New("subscription missing id")
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil ||
		sub.Items.Data[0].Price.Recurring == nil {
		return subscriptions.External{}, fmt.Errorf("subscription %s missing items/price", sub.ID)
	}

	plan, err := PlanFromInterval(sub.Items.Data[0].Price.Recurring.Interval)
	if err != nil {
		return subscriptions.External{}, err
	}

	ext := subscriptions.External{
		ID:                sub.ID,
		Plan:              plan,
		Status:            MapStatus(sub.Status),
		PeriodStart:       time.Unix(sub.CurrentPeriodStart, 0),
		PeriodEnd:         time.Unix(sub.CurrentPeriodEnd, 0),
		CheckoutSessionID: checkoutSessionID,
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		ext.TrialEnd = &t
	}
	return ext, nil
}
