package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//
// --- Farmer Verification ---
//

// PendingFarmer is a farmer row joined with the owning account, which the
// review queue renders.
type PendingFarmer struct {
	models.Farmer
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// GetPendingFarmers is the handler for GET /v1/admin/farmers/pending
func (h *Handlers) GetPendingFarmers(c *gin.Context) {
	query := `
		SELECT f.id, f.user_id, f.farm_name, f.farm_description, f.location, f.address, f.crops,
		       f.verification_status, f.total_sales, f.total_earnings, f.average_rating, f.created_at, f.updated_at,
		       u.email, u.full_name
		FROM farmers f
		JOIN users u ON f.user_id = u.id
		WHERE f.verification_status = ?
		ORDER BY f.created_at ASC`

	rows, err := h.DB.Query(query, models.VerificationPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending farmers"})
		return
	}
	defer rows.Close()

	farmers := []*PendingFarmer{}
	for rows.Next() {
		var f PendingFarmer
		var crops []byte
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.FarmName, &f.FarmDescription, &f.Location, &f.Address, &crops,
			&f.VerificationStatus, &f.TotalSales, &f.TotalEarnings, &f.AverageRating, &f.CreatedAt, &f.UpdatedAt,
			&f.Email, &f.FullName,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan farmer row"})
			return
		}
		f.Crops = []string{}
		if len(crops) > 0 {
			json.Unmarshal(crops, &f.Crops)
		}
		farmers = append(farmers, &f)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating farmer rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"farmers": farmers})
}

type VerifyFarmerInput struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// VerifyFarmer is the handler for PATCH /v1/admin/farmers/:id/verify.
// Only a pending farmer can be decided; a second decision on the same
// farmer finds no pending row and 404s.
func (h *Handlers) VerifyFarmer(c *gin.Context) {
	adminUserID := c.GetString(middleware.CtxUserID)
	farmerID := c.Param("id")

	var input VerifyFarmerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var farmerUserID, farmName string
	err = tx.QueryRow("SELECT user_id, farm_name FROM farmers WHERE id = ?", farmerID).Scan(&farmerUserID, &farmName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Farmer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load farmer"})
		return
	}

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE farmers SET verification_status = ?, updated_at = ?
		WHERE id = ? AND verification_status = ?`,
		input.Status, now, farmerID, models.VerificationPending,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update verification status"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending verification for this farmer"})
		return
	}

	title := "Farm verification approved"
	message := "Your farm " + farmName + " has been verified. You can now create listings."
	if input.Status == models.VerificationRejected {
		title = "Farm verification rejected"
		message = "Your farm " + farmName + " did not pass verification. Contact support for details."
	}
	if err := h.addNotification(tx, farmerUserID, "verification", title, message, "/farmer/dashboard"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify farmer"})
		return
	}

	err = h.addAuditLog(tx, &adminUserID, "farmer.verification."+input.Status, "farmer", farmerID,
		gin.H{"verificationStatus": models.VerificationPending},
		gin.H{"verificationStatus": input.Status},
		c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit verification"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"farmerId": farmerID,
		"status":   input.Status,
	}).Info("farmer verification decided")

	c.JSON(http.StatusOK, gin.H{
		"message":  "Farmer verification updated",
		"farmerId": farmerID,
		"status":   input.Status,
	})
}

//
// --- Listing Moderation ---
//

// GetPendingListings is the handler for GET /v1/admin/listings/pending
func (h *Handlers) GetPendingListings(c *gin.Context) {
	query := `
		SELECT l.id, l.farmer_id, l.title, l.slug, l.description, l.category, l.price, l.unit,
		       l.quantity, l.available_quantity, l.harvest_date, l.status, l.created_at, l.updated_at,
		       f.farm_name, f.location, f.average_rating
		FROM listings l
		JOIN farmers f ON l.farmer_id = f.id
		WHERE l.status = ?
		ORDER BY l.created_at ASC`

	rows, err := h.DB.Query(query, models.ListingPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending listings"})
		return
	}
	defer rows.Close()

	listings := []*ListingWithFarmer{}
	for rows.Next() {
		var l ListingWithFarmer
		if err := rows.Scan(
			&l.ID, &l.FarmerID, &l.Title, &l.Slug, &l.Description, &l.Category, &l.Price, &l.Unit,
			&l.Quantity, &l.AvailableQuantity, &l.HarvestDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
			&l.FarmName, &l.FarmerLocation, &l.AverageRating,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan listing row"})
			return
		}
		listings = append(listings, &l)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating listing rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

type ReviewListingInput struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// ReviewListing is the handler for PATCH /v1/admin/listings/:id/review.
// Same compare-and-swap shape as VerifyFarmer: only a pending listing can
// be decided.
func (h *Handlers) ReviewListing(c *gin.Context) {
	adminUserID := c.GetString(middleware.CtxUserID)
	listingID := c.Param("id")

	var input ReviewListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var farmerUserID, title string
	err = tx.QueryRow(`
		SELECT f.user_id, l.title
		FROM listings l
		JOIN farmers f ON l.farmer_id = f.id
		WHERE l.id = ?`, listingID).Scan(&farmerUserID, &title)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE listings SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		input.Status, now, listingID, models.ListingPending,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update listing status"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending review for this listing"})
		return
	}

	notifTitle := "Listing approved"
	message := "Your listing \"" + title + "\" is now live on the marketplace."
	if input.Status == models.ListingRejected {
		notifTitle = "Listing rejected"
		message = "Your listing \"" + title + "\" was rejected. Edit and resubmit it for review."
	}
	if err := h.addNotification(tx, farmerUserID, "listing", notifTitle, message, "/farmer/listings"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify farmer"})
		return
	}

	err = h.addAuditLog(tx, &adminUserID, "listing.review."+input.Status, "listing", listingID,
		gin.H{"status": models.ListingPending},
		gin.H{"status": input.Status},
		c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Listing review updated",
		"listingId": listingID,
		"status":    input.Status,
	})
}

//
// --- Platform Overview ---
//

// GetPlatformStats is the handler for GET /v1/admin/stats
func (h *Handlers) GetPlatformStats(c *gin.Context) {
	stats := gin.H{}

	counts := []struct {
		key   string
		query string
		args  []interface{}
	}{
		{"totalUsers", "SELECT COUNT(*) FROM users", nil},
		{"totalFarmers", "SELECT COUNT(*) FROM farmers", nil},
		{"totalBuyers", "SELECT COUNT(*) FROM buyers", nil},
		{"totalListings", "SELECT COUNT(*) FROM listings", nil},
		{"totalOrders", "SELECT COUNT(*) FROM orders", nil},
		{"pendingFarmers", "SELECT COUNT(*) FROM farmers WHERE verification_status = ?", []interface{}{models.VerificationPending}},
		{"pendingListings", "SELECT COUNT(*) FROM listings WHERE status = ?", []interface{}{models.ListingPending}},
	}

	for _, ct := range counts {
		var n int
		if err := h.DB.QueryRow(ct.query, ct.args...).Scan(&n); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute platform stats"})
			return
		}
		stats[ct.key] = n
	}

	var revenue, fees float64
	err := h.DB.QueryRow(`
		SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(platform_fee), 0)
		FROM transactions
		WHERE status = ?`, models.TransactionCompleted).Scan(&revenue, &fees)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute revenue"})
		return
	}
	stats["totalRevenue"] = revenue
	stats["platformFees"] = fees

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetAllOrders is the handler for GET /v1/admin/orders
func (h *Handlers) GetAllOrders(c *gin.Context) {
	query := `
		SELECT o.id, o.buyer_id, o.farmer_id, o.listing_id, o.quantity, o.unit_price, o.total_price,
		       o.delivery_address, o.notes, o.status, o.accepted_at, o.shipped_at, o.delivered_at,
		       o.created_at, o.updated_at,
		       l.title, l.unit, f.farm_name, b.business_name
		FROM orders o
		JOIN listings l ON o.listing_id = l.id
		JOIN farmers f ON o.farmer_id = f.id
		JOIN buyers b ON o.buyer_id = b.id
		ORDER BY o.created_at DESC
		LIMIT 200`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []*OrderWithDetails{}
	for rows.Next() {
		var o OrderWithDetails
		if err := rows.Scan(
			&o.ID, &o.BuyerID, &o.FarmerID, &o.ListingID, &o.Quantity, &o.UnitPrice, &o.TotalPrice,
			&o.DeliveryAddress, &o.Notes, &o.Status, &o.AcceptedAt, &o.ShippedAt, &o.DeliveredAt,
			&o.CreatedAt, &o.UpdatedAt,
			&o.ListingTitle, &o.ListingUnit, &o.FarmName, &o.BusinessName,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order row"})
			return
		}
		orders = append(orders, &o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
