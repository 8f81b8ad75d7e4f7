package handlers

import (
	"net/http"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/farmdirect/farmdirect-golang/internal/workflow"
	"github.com/gin-gonic/gin"
)

//
// --- Farmer Dashboard ---
//

// GetFarmerEarnings is the handler for GET /v1/farmer/earnings.
// Lists the settled transactions plus the rollup figures the earnings page
// charts.
func (h *Handlers) GetFarmerEarnings(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)

	query := `
		SELECT id, order_id, buyer_id, farmer_id, amount, platform_fee, farmer_earnings,
		       payment_method, transaction_reference, status, completed_at, created_at, updated_at
		FROM transactions
		WHERE farmer_id = ? AND status = ?
		ORDER BY created_at DESC`

	rows, err := h.DB.Query(query, farmerID, models.TransactionCompleted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	var total float64
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.BuyerID, &t.FarmerID, &t.Amount, &t.PlatformFee, &t.FarmerEarnings,
			&t.PaymentMethod, &t.TransactionReference, &t.Status, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction row"})
			return
		}
		total += t.FarmerEarnings
		transactions = append(transactions, &t)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating transaction rows"})
		return
	}

	var average float64
	if len(transactions) > 0 {
		average = round2(total / float64(len(transactions)))
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions":    transactions,
		"totalEarnings":   round2(total),
		"averagePerOrder": average,
	})
}

// GetFarmerStats is the handler for GET /v1/farmer/dashboard-stats
func (h *Handlers) GetFarmerStats(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)

	stats := gin.H{}

	var activeListings, pendingOrders, deliveredOrders int
	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM listings WHERE farmer_id = ? AND status = ?",
		farmerID, models.ListingApproved,
	).Scan(&activeListings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM orders WHERE farmer_id = ? AND status = ?",
		farmerID, workflow.StatusPending,
	).Scan(&pendingOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM orders WHERE farmer_id = ? AND status = ?",
		farmerID, workflow.StatusDelivered,
	).Scan(&deliveredOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	var totalSales int
	var totalEarnings float64
	var averageRating *float64
	err = h.DB.QueryRow(
		"SELECT total_sales, total_earnings, average_rating FROM farmers WHERE id = ?",
		farmerID,
	).Scan(&totalSales, &totalEarnings, &averageRating)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load farmer totals"})
		return
	}

	stats["activeListings"] = activeListings
	stats["pendingOrders"] = pendingOrders
	stats["deliveredOrders"] = deliveredOrders
	stats["totalSales"] = totalSales
	stats["totalEarnings"] = totalEarnings
	stats["averageRating"] = averageRating

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

//
// --- Buyer Dashboard ---
//

// GetBuyerStats is the handler for GET /v1/buyer/dashboard-stats
func (h *Handlers) GetBuyerStats(c *gin.Context) {
	buyerID := c.GetString(middleware.CtxBuyerID)

	var activeOrders int
	err := h.DB.QueryRow(`
		SELECT COUNT(*) FROM orders
		WHERE buyer_id = ? AND status IN (?, ?, ?)`,
		buyerID, workflow.StatusPending, workflow.StatusAccepted, workflow.StatusShipped,
	).Scan(&activeOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	var totalOrders int
	var totalSpend float64
	err = h.DB.QueryRow(
		"SELECT total_orders, total_spend FROM buyers WHERE id = ?",
		buyerID,
	).Scan(&totalOrders, &totalSpend)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load buyer totals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"activeOrders": activeOrders,
			"totalOrders":  totalOrders,
			"totalSpend":   totalSpend,
		},
	})
}
