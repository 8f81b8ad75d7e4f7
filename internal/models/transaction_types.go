package models

import "time"

// Transaction statuses.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
	TransactionRefunded  = "refunded"
)

// Transaction is the model for the 'transactions' table. One completed row
// is written per delivered order by the settlement step of the order
// workflow.
type Transaction struct {
	ID                   string     `json:"id" db:"id"`
	OrderID              string     `json:"orderId" db:"order_id"`
	BuyerID              string     `json:"buyerId" db:"buyer_id"`
	FarmerID             string     `json:"farmerId" db:"farmer_id"`
	Amount               float64    `json:"amount" db:"amount"`
	PlatformFee          float64    `json:"platformFee" db:"platform_fee"`
	FarmerEarnings       float64    `json:"farmerEarnings" db:"farmer_earnings"`
	PaymentMethod        *string    `json:"paymentMethod,omitempty" db:"payment_method"`
	TransactionReference *string    `json:"transactionReference,omitempty" db:"transaction_reference"`
	Status               string     `json:"status" db:"status"`
	CompletedAt          *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
}
