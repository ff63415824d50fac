package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/config"
	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/events"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

const testSecret = "whsec_test_secret"

type fakeProcessor struct {
	sub *stripe.Subscription
	err error
}

func (f *fakeProcessor) GetSubscription(id string) (*stripe.Subscription, error) {
	return f.sub, f.err
}

func (f *fakeProcessor) CancelSubscription(string, bool) (*stripe.Subscription, error) {
	return nil, errors.New("not supported in webhook tests")
}

func (f *fakeProcessor) PauseSubscription(string, bool) (*stripe.Subscription, error) {
	return nil, errors.New("not supported in webhook tests")
}

func (f *fakeProcessor) ChangeSubscriptionPrice(string, string) (*stripe.Subscription, error) {
	return nil, errors.New("not supported in webhook tests")
}

func (f *fakeProcessor) Refund(string, *int64, *string) (*stripe.Refund, error) {
	return nil, errors.New("not supported in webhook tests")
}

func (f *fakeProcessor) ListRecurringPrices() ([]*stripe.Price, error) {
	return nil, errors.New("not supported in webhook tests")
}

func setup(t *testing.T, p *fakeProcessor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	prevDB := database.DB
	prevProc := Processor
	prevSecret := config.STRIPE_WEBHOOK_SECRET
	database.DB = db
	Processor = p
	config.STRIPE_WEBHOOK_SECRET = testSecret
	t.Cleanup(func() {
		database.DB = prevDB
		Processor = prevProc
		config.STRIPE_WEBHOOK_SECRET = prevSecret
	})

	r := gin.New()
	r.POST("/webhook", StripeWebhook)
	return r
}

func signedHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func deliver(t *testing.T, r *gin.Engine, payload []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func eventPayload(eventID, eventType, object string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`,
		eventID, eventType, object))
}

func monthlySub(id string) *stripe.Subscription {
	now := time.Now().Unix()
	return &stripe.Subscription{
		ID:                 id,
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now + 30*24*3600,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{
					ID:        "price_m",
					Recurring: &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
				}},
			},
		},
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := setup(t, &fakeProcessor{})

	payload := eventPayload("evt_sig", "checkout.session.completed", `{"id":"cs_1"}`)
	w := deliver(t, r, payload, signedHeader(payload, "whsec_wrong"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No side effects of any kind.
	var count int64
	require.NoError(t, database.DB.Model(&events.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckoutCompletedCreatesSubscriptionAndInvite(t *testing.T) {
	r := setup(t, &fakeProcessor{sub: monthlySub("sub_123")})

	object := `{"id":"cs_1","object":"checkout.session","subscription":"sub_123","customer_details":{"email":"buyer@example.com"}}`
	payload := eventPayload("evt_1", "checkout.session.completed", object)
	w := deliver(t, r, payload, signedHeader(payload, testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var sub subscriptions.Subscription
	require.NoError(t, database.DB.Where("external_subscription_id = ?", "sub_123").First(&sub).Error)
	assert.Equal(t, subscriptions.PlanMonthly, sub.Plan)
	assert.Equal(t, subscriptions.StatusActive, sub.Status)
	require.NotNil(t, sub.CheckoutSessionID)
	assert.Equal(t, "cs_1", *sub.CheckoutSessionID)
	assert.Nil(t, sub.UserID, "buyer has no profile yet, row stays unlinked")

	var ic invites.InviteCode
	require.NoError(t, database.DB.Where("external_session_id = ?", "cs_1").First(&ic).Error)
	assert.Equal(t, invites.PaymentPaid, ic.PaymentStatus)
}

func TestCheckoutCompletedReplayYieldsOneRowEach(t *testing.T) {
	r := setup(t, &fakeProcessor{sub: monthlySub("sub_123")})

	object := `{"id":"cs_1","object":"checkout.session","subscription":"sub_123"}`

	// Same event id redelivered, plus the same session under a fresh event id.
	for _, eventID := range []string{"evt_1", "evt_1", "evt_2"} {
		payload := eventPayload(eventID, "checkout.session.completed", object)
		w := deliver(t, r, payload, signedHeader(payload, testSecret))
		require.Equal(t, http.StatusOK, w.Code)
	}

	var subCount, inviteCount int64
	require.NoError(t, database.DB.Model(&subscriptions.Subscription{}).
		Where("external_subscription_id = ?", "sub_123").Count(&subCount).Error)
	require.NoError(t, database.DB.Model(&invites.InviteCode{}).
		Where("external_session_id = ?", "cs_1").Count(&inviteCount).Error)
	assert.Equal(t, int64(1), subCount)
	assert.Equal(t, int64(1), inviteCount)
}

func TestHandlerFailureStillAcknowledged(t *testing.T) {
	r := setup(t, &fakeProcessor{err: errors.New("stripe is down")})

	object := `{"id":"cs_1","object":"checkout.session","subscription":"sub_123"}`
	payload := eventPayload("evt_fail", "checkout.session.completed", object)
	w := deliver(t, r, payload, signedHeader(payload, testSecret))
	assert.Equal(t, http.StatusOK, w.Code, "processing failures must not trigger upstream retries")

	// The failure is durable, not just logged.
	var ev events.WebhookEvent
	require.NoError(t, database.DB.Where("event_id = ?", "evt_fail").First(&ev).Error)
	assert.Equal(t, events.StatusFailed, ev.Status)
	require.NotNil(t, ev.Error)
	assert.Contains(t, *ev.Error, "stripe is down")
	assert.NotEmpty(t, ev.Payload, "payload kept for replay")
}

func TestUnknownEventKindAcceptedAndIgnored(t *testing.T) {
	r := setup(t, &fakeProcessor{})

	payload := eventPayload("evt_odd", "charge.refund.updated", `{"id":"re_1"}`)
	w := deliver(t, r, payload, signedHeader(payload, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	var ev events.WebhookEvent
	require.NoError(t, database.DB.Where("event_id = ?", "evt_odd").First(&ev).Error)
	assert.Equal(t, events.StatusIgnored, ev.Status)
}

// In-order invoice events keep the profile cache equal to the subscription
// after each delivery.
func TestInvoiceTransitionsProjectInOrder(t *testing.T) {
	r := setup(t, &fakeProcessor{sub: monthlySub("sub_123")})

	require.NoError(t, database.DB.Create(&profiles.Profile{ID: 5, Email: "buyer@example.com"}).Error)

	object := `{"id":"cs_1","object":"checkout.session","subscription":"sub_123","customer_details":{"email":"buyer@example.com"}}`
	payload := eventPayload("evt_checkout", "checkout.session.completed", object)
	require.Equal(t, http.StatusOK, deliver(t, r, payload, signedHeader(payload, testSecret)).Code)

	steps := []struct {
		eventID string
		kind    string
		want    string
	}{
		{"evt_i1", "invoice.payment_failed", "past_due"},
		{"evt_i2", "invoice.paid", "active"},
	}
	for _, step := range steps {
		payload := eventPayload(step.eventID, step.kind, `{"id":"in_1","object":"invoice","subscription":"sub_123"}`)
		require.Equal(t, http.StatusOK, deliver(t, r, payload, signedHeader(payload, testSecret)).Code)

		var p profiles.Profile
		require.NoError(t, database.DB.First(&p, 5).Error)
		require.NotNil(t, p.SubscriptionStatus)
		assert.Equal(t, step.want, *p.SubscriptionStatus)
	}
}

func TestSubscriptionDeletedMarksCanceled(t *testing.T) {
	r := setup(t, &fakeProcessor{sub: monthlySub("sub_123")})

	object := `{"id":"cs_1","object":"checkout.session","subscription":"sub_123"}`
	payload := eventPayload("evt_checkout", "checkout.session.completed", object)
	require.Equal(t, http.StatusOK, deliver(t, r, payload, signedHeader(payload, testSecret)).Code)

	deleted := `{"id":"sub_123","object":"subscription","status":"canceled"}`
	payload = eventPayload("evt_del", "customer.subscription.deleted", deleted)
	require.Equal(t, http.StatusOK, deliver(t, r, payload, signedHeader(payload, testSecret)).Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusCanceled, sub.Status)
	assert.NotNil(t, sub.CanceledAt)
}
