package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// addAuditLog records an admin action inside the caller's transaction.
// oldData and newData are marshalled as JSON snapshots of the entity
// before and after the change; either may be nil.
func (h *Handlers) addAuditLog(tx *sql.Tx, userID *string, action, entityType, entityID string, oldData, newData interface{}, ip string) error {
	var oldJSON, newJSON []byte
	var err error

	if oldData != nil {
		if oldJSON, err = json.Marshal(oldData); err != nil {
			return err
		}
	}
	if newData != nil {
		if newJSON, err = json.Marshal(newData); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, old_data, new_data, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(query,
		uuid.NewString(), userID, action, entityType, nullable(entityID),
		oldJSON, newJSON, nullable(ip), time.Now(),
	)
	return err
}

// GetAuditLogs is the handler for GET /v1/admin/audit-logs
func (h *Handlers) GetAuditLogs(c *gin.Context) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, old_data, new_data, ip_address, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT 100`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID, &l.OldData, &l.NewData, &l.IPAddress, &l.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan audit log row"})
			return
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating audit log rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auditLogs": logs})
}
