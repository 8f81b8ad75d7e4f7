package models

import "time"

// Verification statuses for farmers. Only admins move a farmer out of
// pending.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Farmer is the model for the 'farmers' table.
type Farmer struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"userId" db:"user_id"`
	FarmName           string    `json:"farmName" db:"farm_name"`
	FarmDescription    *string   `json:"farmDescription,omitempty" db:"farm_description"`
	Location           string    `json:"location" db:"location"`
	Address            *string   `json:"address,omitempty" db:"address"`
	Crops              []string  `json:"crops" db:"crops"` // stored as JSON
	VerificationStatus string    `json:"verificationStatus" db:"verification_status"`
	TotalSales         int       `json:"totalSales" db:"total_sales"`
	TotalEarnings      float64   `json:"totalEarnings" db:"total_earnings"`
	AverageRating      *float64  `json:"averageRating,omitempty" db:"average_rating"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}
