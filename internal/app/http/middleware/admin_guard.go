package middleware

import (
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"

	"github.com/gin-gonic/gin"
)

// RequireAdmin verifies the caller's role against the profiles table, not the
// token claim. A stale or tampered token cannot grant admin: the profile row
// is the authority, and privileged routes abort with no side effects when the
// lookup fails.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
			return
		}

		var p profiles.Profile
		if err := database.DB.Where("id = ?", userID).First(&p).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Profile not found"})
			return
		}

		if !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}
