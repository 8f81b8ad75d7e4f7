package models

import "time"

// Review is the model for the 'reviews' table. One per order per reviewer.
type Review struct {
	ID               string    `json:"id" db:"id"`
	OrderID          string    `json:"orderId" db:"order_id"`
	ReviewerID       string    `json:"reviewerId" db:"reviewer_id"`
	ReviewedFarmerID string    `json:"reviewedFarmerId" db:"reviewed_farmer_id"`
	Rating           int       `json:"rating" db:"rating"`
	Comment          *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
