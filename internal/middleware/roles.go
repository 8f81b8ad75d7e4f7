package middleware

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireFarmer resolves the caller's farmer record and stores its ID in the
// context. A signed-in user without one gets a 403 carrying the
// onboarding_required code, which the front-end turns into a redirect to
// the onboarding flow.
func RequireFarmer(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)

		var farmerID string
		err := db.QueryRow("SELECT id FROM farmers WHERE user_id = ?", userID).Scan(&farmerID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusForbidden, gin.H{
					"error": "Farmer profile required",
					"code":  "onboarding_required",
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve farmer profile"})
			}
			c.Abort()
			return
		}

		c.Set(CtxFarmerID, farmerID)
		c.Next()
	}
}

// RequireBuyer is the buyer-side counterpart of RequireFarmer.
func RequireBuyer(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)

		var buyerID string
		err := db.QueryRow("SELECT id FROM buyers WHERE user_id = ?", userID).Scan(&buyerID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusForbidden, gin.H{
					"error": "Buyer profile required",
					"code":  "onboarding_required",
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve buyer profile"})
			}
			c.Abort()
			return
		}

		c.Set(CtxBuyerID, buyerID)
		c.Next()
	}
}

// RequireAdmin gates a route group to users whose role is admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserRole) != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
