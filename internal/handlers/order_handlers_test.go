package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMock(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Handlers{DB: db}, mock
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func buyerRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "user-buyer")
		c.Set(middleware.CtxBuyerID, "buyer-1")
	})
	r.POST("/orders", h.PlaceOrder)
	r.PATCH("/orders/:id/cancel", h.BuyerCancelOrder)
	return r
}

func farmerRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "user-farmer")
		c.Set(middleware.CtxFarmerID, "farmer-1")
	})
	r.PATCH("/orders/:id/status", h.FarmerUpdateOrderStatus)
	return r
}

func TestPlaceOrder(t *testing.T) {
	t.Run("reserves stock and notifies the farmer", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("listing-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"farmer_id", "user_id", "price", "unit", "status", "available_quantity"},
			).AddRow("farmer-1", "user-farmer", 4.50, "kg", "approved", 20.0))
		mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE listings SET available_quantity").
			WithArgs(12.0, "approved", sqlmock.AnyArg(), "listing-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(buyerRouter(h), http.MethodPost, "/orders", gin.H{
			"listingId": "listing-1",
			"quantity":  8,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"totalPrice":36`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("flags the listing sold_out when stock is drained", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("listing-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"farmer_id", "user_id", "price", "unit", "status", "available_quantity"},
			).AddRow("farmer-1", "user-farmer", 4.50, "kg", "approved", 8.0))
		mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE listings SET available_quantity").
			WithArgs(0.0, "sold_out", sqlmock.AnyArg(), "listing-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(buyerRouter(h), http.MethodPost, "/orders", gin.H{
			"listingId": "listing-1",
			"quantity":  8,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a quantity above the available stock", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("listing-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"farmer_id", "user_id", "price", "unit", "status", "available_quantity"},
			).AddRow("farmer-1", "user-farmer", 4.50, "kg", "approved", 5.0))
		mock.ExpectRollback()

		w := performJSON(buyerRouter(h), http.MethodPost, "/orders", gin.H{
			"listingId": "listing-1",
			"quantity":  10,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "exceeds available stock")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a listing that is not approved", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("listing-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"farmer_id", "user_id", "price", "unit", "status", "available_quantity"},
			).AddRow("farmer-1", "user-farmer", 4.50, "kg", "pending", 20.0))
		mock.ExpectRollback()

		w := performJSON(buyerRouter(h), http.MethodPost, "/orders", gin.H{
			"listingId": "listing-1",
			"quantity":  5,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("404s on an unknown listing", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("listing-missing").
			WillReturnRows(sqlmock.NewRows(
				[]string{"farmer_id", "user_id", "price", "unit", "status", "available_quantity"},
			))
		mock.ExpectRollback()

		w := performJSON(buyerRouter(h), http.MethodPost, "/orders", gin.H{
			"listingId": "listing-missing",
			"quantity":  5,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func ownershipRows() *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"buyer_id", "farmer_id", "listing_id", "quantity", "total_price", "fu_id", "bu_id"},
	).AddRow("buyer-1", "farmer-1", "listing-1", 8.0, 100.0, "user-farmer", "user-buyer")
}

func TestOrderTransitions(t *testing.T) {
	t.Run("rejects an impossible transition before touching the database", func(t *testing.T) {
		h, mock := newMock(t)

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "delivered",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a transition the actor may not trigger", func(t *testing.T) {
		h, mock := newMock(t)

		// Only buyers and admins cancel a pending order.
		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "cancelled",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("farmer accepts a pending order", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "farmer-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("accepted", sqlmock.AnyArg(), sqlmock.AnyArg(), "order-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "accepted",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"newStatus":"accepted"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("409s when the order moved on since the caller read it", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "farmer-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "accepted",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delivery settles the order", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "farmer-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("delivered", sqlmock.AnyArg(), sqlmock.AnyArg(), "order-1", "shipped").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), "order-1", "buyer-1", "farmer-1",
				100.0, 10.0, 90.0, "completed",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE farmers").
			WithArgs(90.0, sqlmock.AnyArg(), "farmer-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE buyers").
			WithArgs(100.0, sqlmock.AnyArg(), "buyer-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// payout notice to the farmer, then the status notice to the buyer
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "delivered",
			"expectedStatus": "shipped",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("buyer cancellation restocks the listing", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "buyer-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("cancelled", sqlmock.AnyArg(), "order-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// the restock must be clamped to the listed quantity: the farmer may
		// have shrunk the listing while this order held its reservation, and
		// handing the full reservation back unclamped would push
		// available_quantity past quantity
		mock.ExpectExec("SET available_quantity = LEAST").
			WithArgs(8.0, "sold_out", "approved", sqlmock.AnyArg(), "listing-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(buyerRouter(h), http.MethodPatch, "/orders/order-1/cancel", gin.H{
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"newStatus":"cancelled"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejection restocks through the same clamped update", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "farmer-1").
			WillReturnRows(ownershipRows())
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs("rejected", sqlmock.AnyArg(), "order-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("SET available_quantity = LEAST").
			WithArgs(8.0, "sold_out", "approved", sqlmock.AnyArg(), "listing-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "rejected",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("404s on an order the actor does not own", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders o").
			WithArgs("order-1", "farmer-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"buyer_id", "farmer_id", "listing_id", "quantity", "total_price", "fu_id", "bu_id"},
			))
		mock.ExpectRollback()

		w := performJSON(farmerRouter(h), http.MethodPatch, "/orders/order-1/status", gin.H{
			"status":         "accepted",
			"expectedStatus": "pending",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
