package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/farmdirect/farmdirect-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// Context keys set by the middlewares in this package.
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
	CtxFarmerID = "farmerID"
	CtxBuyerID  = "buyerID"
)

// AuthMiddleware validates the Bearer token and loads the caller's role.
// Downstream handlers can rely on userID and userRole being set.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		var role string
		err = db.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve account"})
			}
			c.Abort()
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}
