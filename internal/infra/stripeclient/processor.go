package stripeclient

import (
	"fmt"

	"github.com/ByMatthewNeal/Arkline-sub011/config"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
	"github.com/stripe/stripe-go/v75/refund"
	stripesub "github.com/stripe/stripe-go/v75/subscription"
)

// Processor is the slice of the Stripe API this core calls. The admin gateway
// and the webhook enrichment path go through it so the processor-first
// ordering can be exercised against a fake.
type Processor interface {
	GetSubscription(id string) (*stripe.Subscription, error)
	CancelSubscription(id string, atPeriodEnd bool) (*stripe.Subscription, error)
	PauseSubscription(id string, pause bool) (*stripe.Subscription, error)
	ChangeSubscriptionPrice(id, priceID string) (*stripe.Subscription, error)
	Refund(paymentIntentID string, amount *int64, reason *string) (*stripe.Refund, error)
	ListRecurringPrices() ([]*stripe.Price, error)
}

// Client is the live implementation backed by stripe-go.
type Client struct{}

func NewClient() *Client {
	stripe.Key = config.STRIPE_SECRET_KEY
	return &Client{}
}

func (c *Client) GetSubscription(id string) (*stripe.Subscription, error) {
	return stripesub.Get(id, nil)
}

func (c *Client) CancelSubscription(id string, atPeriodEnd bool) (*stripe.Subscription, error) {
	if atPeriodEnd {
		return stripesub.Update(id, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	}
	return stripesub.Cancel(id, nil)
}

func (c *Client) PauseSubscription(id string, pause bool) (*stripe.Subscription, error) {
	if pause {
		return stripesub.Update(id, &stripe.SubscriptionParams{
			PauseCollection: &stripe.SubscriptionPauseCollectionParams{
				Behavior: stripe.String("void"),
			},
		})
	}

	// Clearing pause_collection needs the raw empty-string form.
	params := &stripe.SubscriptionParams{}
	params.AddExtra("pause_collection", "")
	return stripesub.Update(id, params)
}

func (c *Client) ChangeSubscriptionPrice(id, priceID string) (*stripe.Subscription, error) {
	sub, err := stripesub.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", id, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no price item", id)
	}

	return stripesub.Update(id, &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	})
}

func (c *Client) Refund(paymentIntentID string, amount *int64, reason *string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if amount != nil {
		params.Amount = amount
	}
	if reason != nil && *reason != "" {
		params.Reason = reason
	}
	return refund.New(params)
}

func (c *Client) ListRecurringPrices() ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.Type = stripe.String("recurring")
	params.AddExpand("data.product")

	it := price.List(params)

	var prices []*stripe.Price
	for it.Next() {
		prices = append(prices, it.Price())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}
