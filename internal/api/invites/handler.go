package invites

import (
	"errors"
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	domain "github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/linking"

	"github.com/gin-gonic/gin"
)

// ValidateCode is the read-only pre-redemption check behind the deep link.
// It never mutates the code.
func ValidateCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	ic, err := domain.Validate(database.DB, code)
	if err != nil {
		status, msg := rejectionResponse(err)
		c.JSON(status, gin.H{"valid": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":          true,
		"code":           ic.Code,
		"tier":           ic.Tier,
		"payment_status": ic.PaymentStatus,
		"expires_at":     ic.ExpiresAt,
	})
}

// RedeemCode consumes a code for the authenticated user, then runs the
// deferred linker for paid codes so a checkout made before signup finds its
// owner.
func RedeemCode(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid code"})
		return
	}

	ic, err := domain.Redeem(database.DB, body.Code, userID)
	if err != nil {
		status, msg := rejectionResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	resp := gin.H{
		"success": true,
		"code":    ic.Code,
		"tier":    ic.Tier,
	}

	if ic.PaymentStatus == domain.PaymentPaid {
		result, err := linking.LinkRedeemedInvite(database.DB, userID, ic)
		if err != nil {
			// Redemption stands; only the link is reported as pending.
			c.JSON(http.StatusOK, mergeLink(resp, false, "link failed, will retry on next subscription event"))
			return
		}
		c.JSON(http.StatusOK, mergeLink(resp, result.Linked, result.Reason))
		return
	}

	c.JSON(http.StatusOK, resp)
}

func mergeLink(resp gin.H, linked bool, reason string) gin.H {
	resp["linked"] = linked
	if !linked && reason != "" {
		resp["link_status"] = reason
	}
	return resp
}

func rejectionResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, "Invite code not found"
	case errors.Is(err, domain.ErrCodeExpired):
		return http.StatusGone, "Invite code expired"
	case errors.Is(err, domain.ErrCodeRevoked):
		return http.StatusGone, "Invite code revoked"
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return http.StatusConflict, "Invite code already redeemed"
	default:
		return http.StatusInternalServerError, "Failed to process invite code"
	}
}
