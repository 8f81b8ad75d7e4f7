package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func meRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "user-1")
	})
	r.PUT("/me", h.UpdateMe)
	r.POST("/onboarding/farmer", h.OnboardFarmer)
	r.POST("/onboarding/buyer", h.OnboardBuyer)
	return r
}

func userRow(fullName, phone string) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "email", "full_name", "phone", "avatar_url", "kyc_bvn", "kyc_nin", "role", "created_at", "updated_at"},
	).AddRow("user-1", "amina@example.com", fullName, phone, nil, nil, nil, "farmer",
		time.Now(), time.Now())
}

func TestUpdateMe(t *testing.T) {
	t.Run("updates profile fields and returns the fresh record", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectExec("UPDATE users SET").
			WithArgs(sqlmock.AnyArg(), "Amina Bello", "08030000000", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, email, full_name").
			WithArgs("user-1").
			WillReturnRows(userRow("Amina Bello", "08030000000"))

		w := performJSON(meRouter(h), http.MethodPut, "/me", gin.H{
			"fullName": "Amina Bello",
			"phone":    "08030000000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Amina Bello")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("saves the KYC identifiers", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectExec("UPDATE users SET").
			WithArgs(sqlmock.AnyArg(), "12345678901", "98765432109", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, email, full_name").
			WithArgs("user-1").
			WillReturnRows(userRow("Amina Bello", ""))

		w := performJSON(meRouter(h), http.MethodPut, "/me", gin.H{
			"kycBvn": "12345678901",
			"kycNin": "98765432109",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects an empty update", func(t *testing.T) {
		h, mock := newMock(t)

		w := performJSON(meRouter(h), http.MethodPut, "/me", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No fields to update")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects blanking the full name", func(t *testing.T) {
		h, mock := newMock(t)

		w := performJSON(meRouter(h), http.MethodPut, "/me", gin.H{
			"fullName": "",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func signupRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/signup", h.Signup)
	return r
}

func TestSignupDuplicateEmail(t *testing.T) {
	t.Run("409s when the pre-check finds the email", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectQuery("SELECT 1 FROM users WHERE email").
			WithArgs("amina@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		w := performJSON(signupRouter(h), http.MethodPost, "/signup", gin.H{
			"fullName": "Amina Bello",
			"email":    "amina@example.com",
			"password": "correcthorse",
			"role":     "farmer",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("409s when a concurrent signup wins the insert", func(t *testing.T) {
		h, mock := newMock(t)

		// the pre-check sees nothing, but the unique index on email catches
		// the race at insert time
		mock.ExpectQuery("SELECT 1 FROM users WHERE email").
			WithArgs("amina@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		w := performJSON(signupRouter(h), http.MethodPost, "/signup", gin.H{
			"fullName": "Amina Bello",
			"email":    "amina@example.com",
			"password": "correcthorse",
			"role":     "farmer",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOnboardingDuplicateProfile(t *testing.T) {
	t.Run("farmer onboarding 409s when a concurrent request wins", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectQuery("SELECT 1 FROM farmers WHERE user_id").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec("INSERT INTO farmers").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		w := performJSON(meRouter(h), http.MethodPost, "/onboarding/farmer", gin.H{
			"farmName": "Green Valley Farm",
			"location": "Jos",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("buyer onboarding 409s when a concurrent request wins", func(t *testing.T) {
		h, mock := newMock(t)

		mock.ExpectQuery("SELECT 1 FROM buyers WHERE user_id").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec("INSERT INTO buyers").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		w := performJSON(meRouter(h), http.MethodPost, "/onboarding/buyer", gin.H{
			"businessName": "Fresh Foods Ltd",
			"location":     "Lagos",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
