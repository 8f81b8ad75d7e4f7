package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/farmdirect/farmdirect-golang/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// CreateReview is the handler for POST /v1/buyer/orders/:id/review.
// Only the buyer on a delivered order may review it, once. The farmer's
// average_rating is recomputed in the same transaction so the public
// profile never lags behind the review list.
func (h *Handlers) CreateReview(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	buyerID := c.GetString(middleware.CtxBuyerID)
	orderID := c.Param("id")

	var input CreateReviewInput
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

	var farmerID string
	var status workflow.Status
	err = tx.QueryRow(
		"SELECT farmer_id, status FROM orders WHERE id = ? AND buyer_id = ?",
		orderID, buyerID,
	).Scan(&farmerID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	if status != workflow.StatusDelivered {
		c.JSON(http.StatusConflict, gin.H{"error": "Only delivered orders can be reviewed"})
		return
	}

	var exists int
	err = tx.QueryRow(
		"SELECT 1 FROM reviews WHERE order_id = ? AND reviewer_id = ?",
		orderID, userID,
	).Scan(&exists)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already reviewed this order"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing review"})
		return
	}

	now := time.Now()
	review := &models.Review{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		ReviewerID:       userID,
		ReviewedFarmerID: farmerID,
		Rating:           input.Rating,
		Comment:          nullable(input.Comment),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	query := `
		INSERT INTO reviews (id, order_id, reviewer_id, reviewed_farmer_id, rating, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(query,
		review.ID, review.OrderID, review.ReviewerID, review.ReviewedFarmerID,
		review.Rating, review.Comment, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		return
	}

	_, err = tx.Exec(`
		UPDATE farmers
		SET average_rating = (SELECT AVG(rating) FROM reviews WHERE reviewed_farmer_id = ?),
		    updated_at = ?
		WHERE id = ?`,
		farmerID, now, farmerID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update farmer rating"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit review"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Review submitted",
		"review":  review,
	})
}

// ReviewWithReviewer adds the reviewer's display name for the public
// farmer profile.
type ReviewWithReviewer struct {
	models.Review
	ReviewerName string `json:"reviewerName"`
}

// GetFarmerReviews is the handler for GET /v1/farmers/:id/reviews (public)
func (h *Handlers) GetFarmerReviews(c *gin.Context) {
	farmerID := c.Param("id")

	query := `
		SELECT r.id, r.order_id, r.reviewer_id, r.reviewed_farmer_id, r.rating, r.comment,
		       r.created_at, r.updated_at,
		       u.full_name
		FROM reviews r
		JOIN users u ON r.reviewer_id = u.id
		WHERE r.reviewed_farmer_id = ?
		ORDER BY r.created_at DESC`

	rows, err := h.DB.Query(query, farmerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}
	defer rows.Close()

	reviews := []*ReviewWithReviewer{}
	for rows.Next() {
		var r ReviewWithReviewer
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.ReviewerID, &r.ReviewedFarmerID, &r.Rating, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt,
			&r.ReviewerName,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan review row"})
			return
		}
		reviews = append(reviews, &r)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating review rows"})
		return
	}

	var average *float64
	err = h.DB.QueryRow(
		"SELECT average_rating FROM farmers WHERE id = ?", farmerID,
	).Scan(&average)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load farmer rating"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":       reviews,
		"averageRating": average,
	})
}
