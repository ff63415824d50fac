package admin

import (
	"errors"
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
)

// Processor is swapped for a fake in tests. Set to the live client in routes.
var Processor stripeclient.Processor

// Ordering discipline for every action here: the processor is mutated first,
// the local mirror second. A processor failure leaves the local row
// untouched; the reverse order could grant or revoke access the processor
// knows nothing about.

func CancelSubscription(c *gin.Context) {
	var body struct {
		SubscriptionID string `json:"subscription_id"`
		AtPeriodEnd    bool   `json:"at_period_end"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SubscriptionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid subscription_id"})
		return
	}

	if _, err := subscriptions.ByExternalID(database.DB, body.SubscriptionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	if _, err := Processor.CancelSubscription(body.SubscriptionID, body.AtPeriodEnd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel subscription", "details": err.Error()})
		return
	}

	// Scheduled cancellations stay active until the period ends; the
	// deletion webhook flips them later.
	status := subscriptions.StatusCanceled
	if body.AtPeriodEnd {
		status = subscriptions.StatusActive
	}

	sub, err := subscriptions.UpdateStatus(database.DB, body.SubscriptionID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Canceled at processor but failed to mirror locally", "details": err.Error()})
		return
	}
	if err := profiles.Project(database.DB, sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to project profile status", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"status":        sub.Status,
		"at_period_end": body.AtPeriodEnd,
	})
}

func PauseResumeSubscription(c *gin.Context) {
	var body struct {
		SubscriptionID string `json:"subscription_id"`
		Pause          bool   `json:"pause"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SubscriptionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid subscription_id"})
		return
	}

	if _, err := subscriptions.ByExternalID(database.DB, body.SubscriptionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	if _, err := Processor.PauseSubscription(body.SubscriptionID, body.Pause); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription", "details": err.Error()})
		return
	}

	status := subscriptions.StatusActive
	if body.Pause {
		status = subscriptions.StatusPaused
	}

	sub, err := subscriptions.UpdateStatus(database.DB, body.SubscriptionID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Updated at processor but failed to mirror locally", "details": err.Error()})
		return
	}
	if err := profiles.Project(database.DB, sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to project profile status", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": sub.Status})
}

func ChangePlan(c *gin.Context) {
	var body struct {
		SubscriptionID string `json:"subscription_id"`
		Plan           string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SubscriptionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid subscription_id"})
		return
	}

	targetKey := subscriptions.Plan(body.Plan)
	if !targetKey.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan, expected monthly or annual"})
		return
	}

	if _, err := subscriptions.ByExternalID(database.DB, body.SubscriptionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	targetPlan, err := plans.ByKey(database.DB, targetKey)
	if err != nil {
		if errors.Is(err, plans.ErrPlanNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Plan not in catalog (run /admin/sync-plans)"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
		return
	}

	updatedSub, err := Processor.ChangeSubscriptionPrice(body.SubscriptionID, targetPlan.StripePriceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change plan", "details": err.Error()})
		return
	}

	// Mirror through the synchronizer so plan, status and period all come
	// from the processor's post-change record.
	ext, err := stripeclient.ExternalFromSubscription(updatedSub, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Changed at processor but failed to mirror locally", "details": err.Error()})
		return
	}
	sub, err := subscriptions.Upsert(database.DB, ext, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Changed at processor but failed to mirror locally", "details": err.Error()})
		return
	}
	if err := profiles.Project(database.DB, sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to project profile status", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"plan":       sub.Plan,
		"period_end": sub.PeriodEnd,
	})
}

// ListSubscriptions is the operator's view over the mirror.
func ListSubscriptions(c *gin.Context) {
	var subs []subscriptions.Subscription
	if err := database.DB.Order("updated_at DESC").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}
