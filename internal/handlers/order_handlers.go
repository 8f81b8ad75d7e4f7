package handlers

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/farmdirect/farmdirect-golang/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// platformFeeRate is the marketplace cut taken out of every settled order.
const platformFeeRate = 0.10

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

//
// --- Buyer: Order Placement ---
//

type PlaceOrderInput struct {
	ListingID       string  `json:"listingId" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress string  `json:"deliveryAddress"`
	Notes           string  `json:"notes"`
}

// PlaceOrder is the handler for POST /v1/buyer/orders.
// The order insert and the stock decrement commit together: the listing row
// is locked for the duration of the transaction and the stock precondition
// is re-checked under that lock, so two racing buyers can never reserve the
// same produce twice.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	buyerID := c.GetString(middleware.CtxBuyerID)

	var input PlaceOrderInput
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

	// Lock the listing row so the availability check and the decrement are
	// one atomic step.
	var (
		farmerID     string
		farmerUserID string
		price        float64
		unit         string
		status       string
		available    float64
	)
	query := `
		SELECT l.farmer_id, f.user_id, l.price, l.unit, l.status, l.available_quantity
		FROM listings l
		JOIN farmers f ON l.farmer_id = f.id
		WHERE l.id = ?
		FOR UPDATE`

	err = tx.QueryRow(query, input.ListingID).Scan(&farmerID, &farmerUserID, &price, &unit, &status, &available)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}

	if status != models.ListingApproved {
		c.JSON(http.StatusConflict, gin.H{"error": "Listing is not open for orders"})
		return
	}
	if input.Quantity > available {
		c.JSON(http.StatusConflict, gin.H{"error": "Quantity exceeds available stock"})
		return
	}

	now := time.Now()
	order := &models.Order{
		ID:              uuid.NewString(),
		BuyerID:         buyerID,
		FarmerID:        farmerID,
		ListingID:       input.ListingID,
		Quantity:        input.Quantity,
		UnitPrice:       price,
		TotalPrice:      round2(input.Quantity * price),
		DeliveryAddress: nullable(input.DeliveryAddress),
		Notes:           nullable(input.Notes),
		Status:          workflow.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	orderQuery := `
		INSERT INTO orders
		(id, buyer_id, farmer_id, listing_id, quantity, unit_price, total_price, delivery_address, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(orderQuery,
		order.ID, order.BuyerID, order.FarmerID, order.ListingID,
		order.Quantity, order.UnitPrice, order.TotalPrice,
		order.DeliveryAddress, order.Notes, order.Status, now, now,
	)
	if err != nil {
		logrus.WithError(err).Error("order placement: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	// Reserve the stock. A listing drained to zero is flagged sold_out so it
	// drops out of the marketplace.
	newAvailable := available - input.Quantity
	listingStatus := status
	if newAvailable <= 0 {
		newAvailable = 0
		listingStatus = models.ListingSoldOut
	}

	_, err = tx.Exec(
		"UPDATE listings SET available_quantity = ?, status = ?, updated_at = ? WHERE id = ?",
		newAvailable, listingStatus, now, input.ListingID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reserve stock"})
		return
	}

	err = h.addNotification(tx, farmerUserID, "order",
		"New order received",
		fmt.Sprintf("You received an order for %.2f %s", input.Quantity, unit),
		"/farmer/orders")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify farmer"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

//
// --- Order Retrieval ---
//

// OrderWithDetails augments an order with the joined listing and
// counterparty fields the dashboards render.
type OrderWithDetails struct {
	models.Order
	ListingTitle string `json:"listingTitle"`
	ListingUnit  string `json:"listingUnit"`
	FarmName     string `json:"farmName,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

// GetMyOrders is the handler for GET /v1/buyer/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	buyerID := c.GetString(middleware.CtxBuyerID)

	query := `
		SELECT o.id, o.buyer_id, o.farmer_id, o.listing_id, o.quantity, o.unit_price, o.total_price,
		       o.delivery_address, o.notes, o.status, o.accepted_at, o.shipped_at, o.delivered_at,
		       o.created_at, o.updated_at,
		       l.title, l.unit, f.farm_name
		FROM orders o
		JOIN listings l ON o.listing_id = l.id
		JOIN farmers f ON o.farmer_id = f.id
		WHERE o.buyer_id = ?
		ORDER BY o.created_at DESC`

	rows, err := h.DB.Query(query, buyerID)
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
			&o.ListingTitle, &o.ListingUnit, &o.FarmName,
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

// GetFarmerOrders is the handler for GET /v1/farmer/orders
func (h *Handlers) GetFarmerOrders(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)

	query := `
		SELECT o.id, o.buyer_id, o.farmer_id, o.listing_id, o.quantity, o.unit_price, o.total_price,
		       o.delivery_address, o.notes, o.status, o.accepted_at, o.shipped_at, o.delivered_at,
		       o.created_at, o.updated_at,
		       l.title, l.unit, b.business_name
		FROM orders o
		JOIN listings l ON o.listing_id = l.id
		JOIN buyers b ON o.buyer_id = b.id
		WHERE o.farmer_id = ?
		ORDER BY o.created_at DESC`

	rows, err := h.DB.Query(query, farmerID)
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
			&o.ListingTitle, &o.ListingUnit, &o.BusinessName,
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

//
// --- Status Transitions ---
//

type TransitionOrderInput struct {
	Status         string `json:"status" binding:"required"`
	ExpectedStatus string `json:"expectedStatus" binding:"required"`
}

// FarmerUpdateOrderStatus is the handler for PATCH /v1/farmer/orders/:id/status
func (h *Handlers) FarmerUpdateOrderStatus(c *gin.Context) {
	h.transitionOrder(c, workflow.ActorFarmer)
}

// AdminUpdateOrderStatus is the handler for PATCH /v1/admin/orders/:id/status
func (h *Handlers) AdminUpdateOrderStatus(c *gin.Context) {
	h.transitionOrder(c, workflow.ActorAdmin)
}

// BuyerCancelOrder is the handler for PATCH /v1/buyer/orders/:id/cancel.
// Cancellation is the only transition a buyer may trigger.
func (h *Handlers) BuyerCancelOrder(c *gin.Context) {
	h.transitionOrder(c, workflow.ActorBuyer)
}

// transitionOrder moves an order through the workflow transition table.
//
// The caller presents the status it believes the order is in
// (expectedStatus); the UPDATE carries that as a compare-and-swap
// precondition, so when two actors race, exactly one transition wins and
// the loser gets a 409 instead of silently overwriting.
func (h *Handlers) transitionOrder(c *gin.Context, actor workflow.Actor) {
	orderID := c.Param("id")

	var input TransitionOrderInput
	if actor == workflow.ActorBuyer {
		// Buyers only ever cancel; the target is implied by the route.
		var cancelInput struct {
			ExpectedStatus string `json:"expectedStatus" binding:"required"`
		}
		if err := c.ShouldBindJSON(&cancelInput); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input = TransitionOrderInput{
			Status:         string(workflow.StatusCancelled),
			ExpectedStatus: cancelInput.ExpectedStatus,
		}
	} else {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	target, err := workflow.Parse(input.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status: " + input.Status})
		return
	}
	expected, err := workflow.Parse(input.ExpectedStatus)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status: " + input.ExpectedStatus})
		return
	}

	transition, err := workflow.Validate(expected, target, actor)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "INVALID_TRANSITION",
			"detail": fmt.Sprintf("cannot move an order from %s to %s as %s",
				expected, target, actor),
		})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// Load the order and verify it belongs to the acting party. Admins see
	// every order.
	ownerQuery := `
		SELECT o.buyer_id, o.farmer_id, o.listing_id, o.quantity, o.total_price,
		       fu.id, bu.id
		FROM orders o
		JOIN farmers f ON o.farmer_id = f.id
		JOIN users fu ON f.user_id = fu.id
		JOIN buyers b ON o.buyer_id = b.id
		JOIN users bu ON b.user_id = bu.id
		WHERE o.id = ?`
	ownerArgs := []interface{}{orderID}

	switch actor {
	case workflow.ActorFarmer:
		ownerQuery += " AND o.farmer_id = ?"
		ownerArgs = append(ownerArgs, c.GetString(middleware.CtxFarmerID))
	case workflow.ActorBuyer:
		ownerQuery += " AND o.buyer_id = ?"
		ownerArgs = append(ownerArgs, c.GetString(middleware.CtxBuyerID))
	}

	var (
		buyerID      string
		farmerID     string
		listingID    string
		quantity     float64
		totalPrice   float64
		farmerUserID string
		buyerUserID  string
	)
	err = tx.QueryRow(ownerQuery, ownerArgs...).Scan(
		&buyerID, &farmerID, &listingID, &quantity, &totalPrice, &farmerUserID, &buyerUserID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	now := time.Now()
	updateQuery := "UPDATE orders SET status = ?, updated_at = ?"
	updateArgs := []interface{}{target, now}
	if transition.TimestampColumn != "" {
		updateQuery += fmt.Sprintf(", %s = ?", transition.TimestampColumn)
		updateArgs = append(updateArgs, now)
	}
	updateQuery += " WHERE id = ? AND status = ?"
	updateArgs = append(updateArgs, orderID, expected)

	result, err := tx.Exec(updateQuery, updateArgs...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		// The row's status moved on since the caller last read it.
		c.JSON(http.StatusConflict, gin.H{"error": "Order status has changed, refresh and try again"})
		return
	}

	if transition.Restock {
		// Hand the reserved quantity back, and reopen the listing if the
		// reservation is what sold it out. The LEAST clamp keeps
		// available_quantity within the listed quantity when the farmer
		// shrank the listing while the order was still open.
		_, err = tx.Exec(`
			UPDATE listings
			SET available_quantity = LEAST(available_quantity + ?, quantity),
			    status = CASE WHEN status = ? THEN ? ELSE status END,
			    updated_at = ?
			WHERE id = ?`,
			quantity, models.ListingSoldOut, models.ListingApproved, now, listingID,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restock listing"})
			return
		}
	}

	if transition.Settle {
		if err := h.settleOrder(tx, orderID, buyerID, farmerID, totalPrice, now); err != nil {
			logrus.WithError(err).Error("order settlement failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle order"})
			return
		}
		earnings := round2(totalPrice - round2(totalPrice*platformFeeRate))
		err = h.addNotification(tx, farmerUserID, "payment",
			"Payment settled",
			fmt.Sprintf("Order #%.8s settled, %.2f credited to your earnings", orderID, earnings),
			"/farmer/earnings")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify farmer"})
			return
		}
	}

	// Tell the other side what happened.
	notifyUserID := buyerUserID
	notifyLink := "/buyer/orders"
	if actor == workflow.ActorBuyer {
		notifyUserID = farmerUserID
		notifyLink = "/farmer/orders"
	}
	err = h.addNotification(tx, notifyUserID, "order",
		fmt.Sprintf("Order %s", target),
		fmt.Sprintf("Order #%.8s is now %s", orderID, target),
		notifyLink)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify counterparty"})
		return
	}

	if actor == workflow.ActorAdmin {
		userID := c.GetString(middleware.CtxUserID)
		err = h.addAuditLog(tx, &userID, "order.status."+string(target), "order", orderID,
			gin.H{"status": expected}, gin.H{"status": target}, c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transition"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Order updated",
		"orderId":   orderID,
		"newStatus": target,
	})
}

// settleOrder records the payment transaction for a delivered order and
// rolls the totals up onto both parties. Runs inside the transition's
// transaction so delivery and settlement land together.
func (h *Handlers) settleOrder(tx *sql.Tx, orderID, buyerID, farmerID string, totalPrice float64, now time.Time) error {
	fee := round2(totalPrice * platformFeeRate)
	earnings := round2(totalPrice - fee)

	query := `
		INSERT INTO transactions
		(id, order_id, buyer_id, farmer_id, amount, platform_fee, farmer_earnings, status, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.Exec(query,
		uuid.NewString(), orderID, buyerID, farmerID,
		totalPrice, fee, earnings, models.TransactionCompleted, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE farmers
		SET total_sales = total_sales + 1, total_earnings = total_earnings + ?, updated_at = ?
		WHERE id = ?`,
		earnings, now, farmerID,
	)
	if err != nil {
		return fmt.Errorf("update farmer totals: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE buyers
		SET total_orders = total_orders + 1, total_spend = total_spend + ?, updated_at = ?
		WHERE id = ?`,
		totalPrice, now, buyerID,
	)
	if err != nil {
		return fmt.Errorf("update buyer totals: %w", err)
	}

	return nil
}
