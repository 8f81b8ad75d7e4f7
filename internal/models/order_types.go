package models

import (
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/workflow"
)

// Order is the model for the 'orders' table. Status is only ever moved
// through the workflow package's transition table.
type Order struct {
	ID              string          `json:"id" db:"id"`
	BuyerID         string          `json:"buyerId" db:"buyer_id"`
	FarmerID        string          `json:"farmerId" db:"farmer_id"`
	ListingID       string          `json:"listingId" db:"listing_id"`
	Quantity        float64         `json:"quantity" db:"quantity"`
	UnitPrice       float64         `json:"unitPrice" db:"unit_price"` // listing price at placement time
	TotalPrice      float64         `json:"totalPrice" db:"total_price"`
	DeliveryAddress *string         `json:"deliveryAddress,omitempty" db:"delivery_address"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Status          workflow.Status `json:"status" db:"status"`
	AcceptedAt      *time.Time      `json:"acceptedAt,omitempty" db:"accepted_at"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}
