package webhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/config"
	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/events"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Processor is swapped for a fake in tests. Set to the live client in routes.
var Processor stripeclient.Processor

const maxBodyBytes = 65536

// StripeWebhook verifies, deduplicates and routes inbound processor events.
//
// Contract: a bad signature is the only rejection. Once the event is
// authentic we acknowledge it no matter what happens downstream; every
// handler failure is preserved on the webhook_events row for replay.
func StripeWebhook(c *gin.Context) {
	endpointSecret := config.STRIPE_WEBHOOK_SECRET
	if endpointSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Println("stripe signature verification failed:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	fresh, err := events.Claim(database.DB, event.ID, string(event.Type), payload)
	if err != nil {
		// Could not even record the event; this one is retryable.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if err := dispatch(&event); err != nil {
		log.Printf("webhook %s (%s) failed: %v", event.ID, event.Type, err)
		if derr := events.MarkFailed(database.DB, event.ID, err); derr != nil {
			log.Printf("webhook %s: failed to dead-letter: %v", event.ID, derr)
		}
		// Still acknowledged; the dead-letter row carries the failure.
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func dispatch(event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		return handleCheckoutSessionCompleted(&session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return handleSubscriptionUpserted(&sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return handleSubscriptionDeleted(&sub)

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		return handleInvoice(&inv, true)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		return handleInvoice(&inv, false)

	default:
		// Unknown kinds are accepted and recorded, never erred.
		return events.MarkIgnored(database.DB, event.ID)
	}
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
