package models

import "time"

// Buyer is the model for the 'buyers' table.
type Buyer struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	BusinessName  string    `json:"businessName" db:"business_name"`
	BusinessType  *string   `json:"businessType,omitempty" db:"business_type"`
	ContactPerson *string   `json:"contactPerson,omitempty" db:"contact_person"`
	Location      string    `json:"location" db:"location"`
	Address       *string   `json:"address,omitempty" db:"address"`
	TotalOrders   int       `json:"totalOrders" db:"total_orders"`
	TotalSpend    float64   `json:"totalSpend" db:"total_spend"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
