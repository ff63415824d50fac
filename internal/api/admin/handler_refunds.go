package admin

import (
	"log"
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// IssueRefund refunds a payment intent. Amount omitted means full refund.
// The processor's record is authoritative; locally we only append to the
// refund log, and a log write failure does not undo the refund.
func IssueRefund(c *gin.Context) {
	var body struct {
		PaymentIntentID string   `json:"payment_intent_id"`
		AmountEUR       *float64 `json:"amount_eur"`
		Reason          *string  `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PaymentIntentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid payment_intent_id"})
		return
	}
	if body.AmountEUR != nil && *body.AmountEUR <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refund amount must be positive"})
		return
	}

	var amountMinor *int64
	if body.AmountEUR != nil {
		minor := int64(*body.AmountEUR * 100)
		amountMinor = &minor
	}

	ref, err := Processor.Refund(body.PaymentIntentID, amountMinor, body.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue refund", "details": err.Error()})
		return
	}

	entry := billing.Refund{
		PaymentIntentID: body.PaymentIntentID,
		StripeRefundID:  ref.ID,
		AmountEUR:       body.AmountEUR,
		Status:          string(ref.Status),
		Reason:          body.Reason,
		RequestedBy:     c.GetUint("user_id"),
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("refund %s issued but log write failed: %v", ref.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"refund_id": ref.ID,
		"status":    ref.Status,
	})
}

// ListRefunds returns the local refund log, newest first.
func ListRefunds(c *gin.Context) {
	var refunds []billing.Refund
	if err := database.DB.Order("created_at DESC").Find(&refunds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load refunds"})
		return
	}
	c.JSON(http.StatusOK, refunds)
}
