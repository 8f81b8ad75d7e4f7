package models

import (
	"encoding/json"
	"time"
)

// AuditLog is the model for the 'audit_logs' table. Rows are written for
// admin moderation actions.
type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	UserID     *string         `json:"userId,omitempty" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   *string         `json:"entityId,omitempty" db:"entity_id"`
	OldData    json.RawMessage `json:"oldData,omitempty" db:"old_data"`
	NewData    json.RawMessage `json:"newData,omitempty" db:"new_data"`
	IPAddress  *string         `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
}
