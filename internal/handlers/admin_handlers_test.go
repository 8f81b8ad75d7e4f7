package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func adminRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "user-admin")
		c.Set(middleware.CtxUserRole, "admin")
	})
	r.PATCH("/farmers/:id/verify", h.VerifyFarmer)
	r.PATCH("/listings/:id/review", h.ReviewListing)
	r.PATCH("/orders/:id/status", h.AdminUpdateOrderStatus)
	return r
}

func TestVerifyFarmer(t *testing.T) {
	t.Run("approves a pending farmer and records the decision", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, farm_name FROM farmers").
			WithArgs("farmer-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "farm_name"}).
				AddRow("user-farmer", "Green Valley Farm"))
		mock.ExpectExec("UPDATE farmers SET verification_status").
			WithArgs("approved", sqlmock.AnyArg(), "farmer-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(adminRouter(h), http.MethodPatch, "/farmers/farmer-1/verify", gin.H{
			"status": "approved",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"approved"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("404s when the farmer was already decided", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT user_id, farm_name FROM farmers").
			WithArgs("farmer-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "farm_name"}).
				AddRow("user-farmer", "Green Valley Farm"))
		mock.ExpectExec("UPDATE farmers SET verification_status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w := performJSON(adminRouter(h), http.MethodPatch, "/farmers/farmer-1/verify", gin.H{
			"status": "rejected",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a decision outside the enum", func(t *testing.T) {
		h, mock := newMock(t)

		w := performJSON(adminRouter(h), http.MethodPatch, "/farmers/farmer-1/verify", gin.H{
			"status": "maybe",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReviewListing(t *testing.T) {
	t.Run("approves a pending listing and notifies the farmer", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT f.user_id, l.title").
			WithArgs("listing-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "title"}).
				AddRow("user-farmer", "Fresh Tomatoes"))
		mock.ExpectExec("UPDATE listings SET status").
			WithArgs("approved", sqlmock.AnyArg(), "listing-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(adminRouter(h), http.MethodPatch, "/listings/listing-1/review", gin.H{
			"status": "approved",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("404s on an unknown listing", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT f.user_id, l.title").
			WithArgs("listing-missing").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "title"}))
		mock.ExpectRollback()

		w := performJSON(adminRouter(h), http.MethodPatch, "/listings/listing-missing/review", gin.H{
			"status": "rejected",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	t.Run("admin may cancel a shipped order", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("cancelled", sqlmock.AnyArg(), "order-1", "shipped").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE listings").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(adminRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "cancelled",
			"expectedStatus": "shipped",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
