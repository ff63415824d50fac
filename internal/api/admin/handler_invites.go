package admin

import (
	"errors"
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"

	"github.com/gin-gonic/gin"
)

// GenerateInvite mints a code on behalf of the calling admin.
func GenerateInvite(c *gin.Context) {
	var body struct {
		ExpiryDays    int     `json:"expiry_days"`
		Email         *string `json:"email"`
		PaymentStatus string  `json:"payment_status"`
		Tier          string  `json:"tier"`
		TrialDays     *int    `json:"trial_days"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if body.ExpiryDays <= 0 {
		body.ExpiryDays = 30
	}
	paymentStatus := invites.PaymentStatus(body.PaymentStatus)
	if body.PaymentStatus == "" {
		paymentStatus = invites.PaymentComped
	}
	tier := invites.Tier(body.Tier)
	if body.Tier == "" {
		tier = invites.TierStandard
	}
	if !paymentStatus.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment_status"})
		return
	}
	if !tier.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tier"})
		return
	}

	adminID := c.GetUint("user_id")
	ic, err := invites.Generate(database.DB, invites.GenerateParams{
		CreatedBy:      &adminID,
		ExpiryDays:     body.ExpiryDays,
		RecipientEmail: body.Email,
		PaymentStatus:  paymentStatus,
		Tier:           tier,
		TrialDays:      body.TrialDays,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate invite code", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"code":       ic.Code,
		"link":       invites.RedemptionLink(ic.Code),
		"expires_at": ic.ExpiresAt,
	})
}

// RevokeInvite closes an unused code. Redeemed codes keep their redeemer.
func RevokeInvite(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	if err := invites.Revoke(database.DB, code); err != nil {
		if errors.Is(err, invites.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite code not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke invite code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListInvites returns the ledger, newest first.
func ListInvites(c *gin.Context) {
	var codes []invites.InviteCode
	if err := database.DB.Order("created_at DESC").Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invite codes"})
		return
	}
	c.JSON(http.StatusOK, codes)
}
