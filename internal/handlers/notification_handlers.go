package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// addNotification inserts an in-app notification inside the caller's
// transaction, so the notification commits with the event it describes.
func (h *Handlers) addNotification(tx *sql.Tx, userID, ntype, title, message, link string) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, link, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, false, ?)`

	_, err := tx.Exec(query, uuid.NewString(), userID, ntype, title, message, nullable(link), time.Now())
	return err
}

// GetMyNotifications is the handler for GET /v1/notifications.
// Unread notifications sort first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	query := `
		SELECT id, user_id, type, title, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	unread := 0
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification row"})
			return
		}
		if !n.IsRead {
			unread++
		}
		notifications = append(notifications, &n)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notification rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	notificationID := c.Param("id")

	result, err := h.DB.Exec(
		"UPDATE notifications SET is_read = true WHERE id = ? AND user_id = ?",
		notificationID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
