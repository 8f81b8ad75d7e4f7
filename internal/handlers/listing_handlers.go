package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

//
// --- Farmer: Listing CRUD ---
//

type CreateListingInput struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Unit        string  `json:"unit" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	HarvestDate string  `json:"harvestDate"` // YYYY-MM-DD
}

// CreateListing is the handler for POST /v1/farmer/listings.
// Status is always pending and available_quantity always equals quantity,
// whatever the client sends: a farmer cannot self-publish or pre-reserve
// stock.
func (h *Handlers) CreateListing(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)

	var input CreateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Only verified farms can list produce.
	var verification string
	err := h.DB.QueryRow("SELECT verification_status FROM farmers WHERE id = ?", farmerID).Scan(&verification)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check verification status"})
		return
	}
	if verification != models.VerificationApproved {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your farm must be verified before you can create listings"})
		return
	}

	var harvestDate *time.Time
	if input.HarvestDate != "" {
		d, err := time.Parse("2006-01-02", input.HarvestDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "harvestDate must be YYYY-MM-DD"})
			return
		}
		harvestDate = &d
	}

	now := time.Now()
	listing := &models.Listing{
		ID:                uuid.NewString(),
		FarmerID:          farmerID,
		Title:             input.Title,
		Slug:              slug.Make(input.Title),
		Description:       nullable(input.Description),
		Category:          nullable(input.Category),
		Price:             input.Price,
		Unit:              input.Unit,
		Quantity:          input.Quantity,
		AvailableQuantity: input.Quantity,
		HarvestDate:       harvestDate,
		Status:            models.ListingPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	query := `
		INSERT INTO listings
		(id, farmer_id, title, slug, description, category, price, unit, quantity, available_quantity, harvest_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = h.DB.Exec(query,
		listing.ID, listing.FarmerID, listing.Title, listing.Slug,
		listing.Description, listing.Category, listing.Price, listing.Unit,
		listing.Quantity, listing.AvailableQuantity, listing.HarvestDate,
		listing.Status, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create listing"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Listing created and queued for review",
		"listing": listing,
	})
}

// GetMyListings is the handler for GET /v1/farmer/listings
func (h *Handlers) GetMyListings(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)
	statusFilter := c.Query("status")

	query := `
		SELECT id, farmer_id, title, slug, description, category, price, unit,
		       quantity, available_quantity, harvest_date, status, created_at, updated_at
		FROM listings
		WHERE farmer_id = ?`
	args := []interface{}{farmerID}

	if statusFilter != "" {
		query += " AND status = ?"
		args = append(args, statusFilter)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(
			&l.ID, &l.FarmerID, &l.Title, &l.Slug, &l.Description, &l.Category,
			&l.Price, &l.Unit, &l.Quantity, &l.AvailableQuantity, &l.HarvestDate,
			&l.Status, &l.CreatedAt, &l.UpdatedAt,
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

type UpdateListingInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Unit        *string  `json:"unit"`
	Quantity    *float64 `json:"quantity" binding:"omitempty,gt=0"`
}

// UpdateListing is the handler for PUT /v1/farmer/listings/:id.
// Any edit to the fields buyers see sends the listing back to pending for
// re-review. Quantity edits shift available_quantity by the same delta so
// already-reserved stock stays reserved.
func (h *Handlers) UpdateListing(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)
	listingID := c.Param("id")

	var input UpdateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var current models.Listing
	err := h.DB.QueryRow(
		"SELECT id, quantity, available_quantity, status FROM listings WHERE id = ? AND farmer_id = ?",
		listingID, farmerID,
	).Scan(&current.ID, &current.Quantity, &current.AvailableQuantity, &current.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found or you do not have permission to edit it"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking ownership"})
		return
	}

	querySet := "updated_at = ?"
	queryArgs := []interface{}{time.Now()}
	edited := false

	if input.Title != nil {
		querySet += ", title = ?, slug = ?"
		queryArgs = append(queryArgs, *input.Title, slug.Make(*input.Title))
		edited = true
	}
	if input.Description != nil {
		querySet += ", description = ?"
		queryArgs = append(queryArgs, nullable(*input.Description))
		edited = true
	}
	if input.Category != nil {
		querySet += ", category = ?"
		queryArgs = append(queryArgs, nullable(*input.Category))
		edited = true
	}
	if input.Price != nil {
		querySet += ", price = ?"
		queryArgs = append(queryArgs, *input.Price)
		edited = true
	}
	if input.Unit != nil {
		querySet += ", unit = ?"
		queryArgs = append(queryArgs, *input.Unit)
		edited = true
	}
	if input.Quantity != nil {
		delta := *input.Quantity - current.Quantity
		newAvailable := current.AvailableQuantity + delta
		if newAvailable < 0 {
			newAvailable = 0
		}
		querySet += ", quantity = ?, available_quantity = ?"
		queryArgs = append(queryArgs, *input.Quantity, newAvailable)
		edited = true
	}

	if !edited {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	// Edited listings go back through the review queue.
	querySet += ", status = ?"
	queryArgs = append(queryArgs, models.ListingPending)

	queryArgs = append(queryArgs, listingID)
	_, err = h.DB.Exec("UPDATE listings SET "+querySet+" WHERE id = ?", queryArgs...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update listing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Listing updated and queued for re-review"})
}

// DeleteListing is the handler for DELETE /v1/farmer/listings/:id.
// A listing with orders against it cannot be removed; the order history
// has to keep resolving.
func (h *Handlers) DeleteListing(c *gin.Context) {
	farmerID := c.GetString(middleware.CtxFarmerID)
	listingID := c.Param("id")

	var orderCount int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE listing_id = ?", listingID).Scan(&orderCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check listing orders"})
		return
	}
	if orderCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Listing has orders and cannot be deleted"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM listings WHERE id = ? AND farmer_id = ?", listingID, farmerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete listing"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found or you do not have permission to delete it"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
}

//
// --- Public: Marketplace search ---
//

// ListingWithFarmer augments a listing with the farm details buyers browse
// by.
type ListingWithFarmer struct {
	models.Listing
	FarmName       string   `json:"farmName"`
	FarmerLocation string   `json:"farmerLocation"`
	AverageRating  *float64 `json:"farmerAverageRating,omitempty"`
}

// SearchListings is the handler for GET /v1/listings/search.
// Only approved listings with stock remaining are visible.
func (h *Handlers) SearchListings(c *gin.Context) {
	q := c.Query("q")
	category := c.Query("category")
	location := c.Query("location")
	minPrice := c.Query("min_price")
	maxPrice := c.Query("max_price")

	var queryBuilder strings.Builder
	var args []interface{}

	queryBuilder.WriteString(`
		SELECT
			l.id, l.farmer_id, l.title, l.slug, l.description, l.category, l.price, l.unit,
			l.quantity, l.available_quantity, l.harvest_date, l.status, l.created_at, l.updated_at,
			f.farm_name, f.location, f.average_rating
		FROM listings l
		JOIN farmers f ON l.farmer_id = f.id
		WHERE l.status = ? AND l.available_quantity > 0`)
	args = append(args, models.ListingApproved)

	if q != "" {
		queryBuilder.WriteString(" AND (l.title LIKE ? OR l.category LIKE ?)")
		term := "%" + q + "%"
		args = append(args, term, term)
	}
	if category != "" {
		queryBuilder.WriteString(" AND l.category = ?")
		args = append(args, category)
	}
	if location != "" {
		queryBuilder.WriteString(" AND f.location LIKE ?")
		args = append(args, "%"+location+"%")
	}
	if minPrice != "" {
		queryBuilder.WriteString(" AND l.price >= ?")
		args = append(args, minPrice)
	}
	if maxPrice != "" {
		queryBuilder.WriteString(" AND l.price <= ?")
		args = append(args, maxPrice)
	}

	queryBuilder.WriteString(" ORDER BY l.created_at DESC")

	rows, err := h.DB.Query(queryBuilder.String(), args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	listings := []*ListingWithFarmer{}
	for rows.Next() {
		var l ListingWithFarmer
		if err := rows.Scan(
			&l.ID, &l.FarmerID, &l.Title, &l.Slug, &l.Description, &l.Category,
			&l.Price, &l.Unit, &l.Quantity, &l.AvailableQuantity, &l.HarvestDate,
			&l.Status, &l.CreatedAt, &l.UpdatedAt,
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
