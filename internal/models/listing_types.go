package models

import "time"

// Listing statuses. New and edited listings sit in pending until an admin
// reviews them; sold_out is derived when available_quantity reaches zero.
const (
	ListingPending  = "pending"
	ListingApproved = "approved"
	ListingRejected = "rejected"
	ListingSoldOut  = "sold_out"
)

// Listing is the model for the 'listings' table.
type Listing struct {
	ID                string     `json:"id" db:"id"`
	FarmerID          string     `json:"farmerId" db:"farmer_id"`
	Title             string     `json:"title" db:"title"`
	Slug              string     `json:"slug" db:"slug"`
	Description       *string    `json:"description,omitempty" db:"description"`
	Category          *string    `json:"category,omitempty" db:"category"`
	Price             float64    `json:"price" db:"price"`
	Unit              string     `json:"unit" db:"unit"`
	Quantity          float64    `json:"quantity" db:"quantity"`
	AvailableQuantity float64    `json:"availableQuantity" db:"available_quantity"`
	HarvestDate       *time.Time `json:"harvestDate,omitempty" db:"harvest_date"`
	Status            string     `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}
