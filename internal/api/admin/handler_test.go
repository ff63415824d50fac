package admin

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/billing"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

type fakeProcessor struct {
	cancelErr error
	pauseErr  error
	changeErr error
	refundErr error

	changedSub *stripe.Subscription
	refund     *stripe.Refund

	calls []string

	lastRefundAmount *int64
}

func (f *fakeProcessor) GetSubscription(id string) (*stripe.Subscription, error) {
	f.calls = append(f.calls, "get")
	return nil, errors.New("not needed")
}

func (f *fakeProcessor) CancelSubscription(id string, atPeriodEnd bool) (*stripe.Subscription, error) {
	f.calls = append(f.calls, "cancel")
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeProcessor) PauseSubscription(id string, pause bool) (*stripe.Subscription, error) {
	f.calls = append(f.calls, "pause")
	if f.pauseErr != nil {
		return nil, f.pauseErr
	}
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeProcessor) ChangeSubscriptionPrice(id, priceID string) (*stripe.Subscription, error) {
	f.calls = append(f.calls, "change")
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return f.changedSub, nil
}

func (f *fakeProcessor) Refund(paymentIntentID string, amount *int64, reason *string) (*stripe.Refund, error) {
	f.calls = append(f.calls, "refund")
	f.lastRefundAmount = amount
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return f.refund, nil
}

func (f *fakeProcessor) ListRecurringPrices() ([]*stripe.Price, error) {
	return nil, errors.New("not needed")
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
	database.DB = db
	Processor = p
	t.Cleanup(func() {
		database.DB = prevDB
		Processor = prevProc
	})

	r := gin.New()
	// Stand-in for the auth middleware: the gateway logic itself is under test.
	r.Use(func(c *gin.Context) { c.Set("user_id", uint(1)) })
	r.POST("/admin/subscriptions/cancel", CancelSubscription)
	r.POST("/admin/subscriptions/pause", PauseResumeSubscription)
	r.POST("/admin/subscriptions/change-plan", ChangePlan)
	r.POST("/admin/refunds", IssueRefund)
	return r
}

func post(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedMonthlySub(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&subscriptions.Subscription{
		ExternalSubscriptionID: id,
		Plan:                   subscriptions.PlanMonthly,
		Status:                 subscriptions.StatusActive,
		PeriodStart:            time.Now(),
		PeriodEnd:              time.Now().AddDate(0, 1, 0),
	}).Error)
}

func seedCatalog(t *testing.T) {
	t.Helper()
	require.NoError(t, database.DB.Create(&plans.Plan{
		Key: subscriptions.PlanMonthly, StripePriceID: "price_m", Interval: "month", UnitAmount: 12,
	}).Error)
	require.NoError(t, database.DB.Create(&plans.Plan{
		Key: subscriptions.PlanAnnual, StripePriceID: "price_y", Interval: "year", UnitAmount: 120,
	}).Error)
}

func TestCancelImmediateMirrorsCanceled(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")

	w := post(t, r, "/admin/subscriptions/cancel", `{"subscription_id":"sub_123","at_period_end":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusCanceled, sub.Status)
	assert.Equal(t, []string{"cancel"}, p.calls)
}

func TestCancelAtPeriodEndStaysActive(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")

	w := post(t, r, "/admin/subscriptions/cancel", `{"subscription_id":"sub_123","at_period_end":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusActive, sub.Status,
		"scheduled cancel stays active until the deletion webhook")
}

func TestCancelProcessorFailureLeavesLocalUntouched(t *testing.T) {
	p := &fakeProcessor{cancelErr: errors.New("stripe 500")}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")

	w := post(t, r, "/admin/subscriptions/cancel", `{"subscription_id":"sub_123"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusActive, sub.Status)
}

func TestCancelUnknownSubscriptionRejectsBeforeProcessor(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)

	w := post(t, r, "/admin/subscriptions/cancel", `{"subscription_id":"sub_ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, p.calls, "no external call for an unknown target")
}

func TestPauseAndResumeMirrorStatus(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")

	w := post(t, r, "/admin/subscriptions/pause", `{"subscription_id":"sub_123","pause":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusPaused, sub.Status)

	w = post(t, r, "/admin/subscriptions/pause", `{"subscription_id":"sub_123","pause":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	sub, err = subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusActive, sub.Status)
}

// A plan change whose processor call fails must leave the local plan
// untouched.
func TestChangePlanProcessorFailureLeavesPlanUntouched(t *testing.T) {
	p := &fakeProcessor{changeErr: errors.New("stripe 500")}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")
	seedCatalog(t)

	w := post(t, r, "/admin/subscriptions/change-plan", `{"subscription_id":"sub_123","plan":"annual"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.PlanMonthly, sub.Plan, "no mirror on failure")
}

func TestChangePlanSuccessMirrorsProcessorRecord(t *testing.T) {
	now := time.Now().Unix()
	p := &fakeProcessor{
		changedSub: &stripe.Subscription{
			ID:                 "sub_123",
			Status:             stripe.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now + 365*24*3600,
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{
					{Price: &stripe.Price{
						ID:        "price_y",
						Recurring: &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalYear},
					}},
				},
			},
		},
	}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")
	seedCatalog(t)

	w := post(t, r, "/admin/subscriptions/change-plan", `{"subscription_id":"sub_123","plan":"annual"}`)
	require.Equal(t, http.StatusOK, w.Code)

	sub, err := subscriptions.ByExternalID(database.DB, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, subscriptions.PlanAnnual, sub.Plan)
	assert.Equal(t, []string{"change"}, p.calls)
}

func TestChangePlanRejectsUnknownPlanBeforeProcessor(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)
	seedMonthlySub(t, "sub_123")

	w := post(t, r, "/admin/subscriptions/change-plan", `{"subscription_id":"sub_123","plan":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.calls)
}

func TestRefundWithoutAmountIsFullRefund(t *testing.T) {
	p := &fakeProcessor{refund: &stripe.Refund{ID: "re_1", Status: stripe.RefundStatusSucceeded}}
	r := setup(t, p)

	w := post(t, r, "/admin/refunds", `{"payment_intent_id":"pi_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, p.lastRefundAmount, "omitted amount must reach the processor as full refund")
	assert.Contains(t, w.Body.String(), "re_1")
	assert.Contains(t, w.Body.String(), "succeeded")

	var entry billing.Refund
	require.NoError(t, database.DB.Where("stripe_refund_id = ?", "re_1").First(&entry).Error)
	assert.Equal(t, "pi_1", entry.PaymentIntentID)
	assert.Nil(t, entry.AmountEUR)
}

func TestRefundPartialAmountForwarded(t *testing.T) {
	p := &fakeProcessor{refund: &stripe.Refund{ID: "re_2", Status: stripe.RefundStatusPending}}
	r := setup(t, p)

	w := post(t, r, "/admin/refunds", `{"payment_intent_id":"pi_2","amount_eur":12.50,"reason":"requested_by_customer"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, p.lastRefundAmount)
	assert.Equal(t, int64(1250), *p.lastRefundAmount)
}

func TestRefundValidationRejectsBeforeProcessor(t *testing.T) {
	p := &fakeProcessor{}
	r := setup(t, p)

	w := post(t, r, "/admin/refunds", `{"amount_eur":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.calls)

	w = post(t, r, "/admin/refunds", `{"payment_intent_id":"pi_3","amount_eur":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.calls)
}
