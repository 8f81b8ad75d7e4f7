package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/auth"
	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/farmdirect/farmdirect-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

//
// --- Signup / Login ---
//

// SignupInput is deliberately separate from models.User: we never accept
// an id or a password hash from the client.
type SignupInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required,oneof=farmer buyer"`
}

// Signup is the handler for POST /v1/signup
func (h *Handlers) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists int
	err := h.DB.QueryRow("SELECT 1 FROM users WHERE email = ?", input.Email).Scan(&exists)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing account"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     input.Email,
		FullName:  input.FullName,
		Phone:     input.Phone,
		Role:      input.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.PasswordHash = password.Hash

	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = h.DB.Exec(query, user.ID, user.Email, user.PasswordHash, user.FullName, user.Phone, user.Role, now, now)
	if err != nil {
		if isDuplicateEntry(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		logrus.WithError(err).Error("signup: insert user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	query := `
		SELECT id, email, password_hash, full_name, phone, avatar_url, role, created_at, updated_at
		FROM users
		WHERE email = ?`

	err := h.DB.QueryRow(query, input.Email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Phone, &user.AvatarURL, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	ok, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

//
// --- Session context ---
//

// GetMe is the handler for GET /v1/me. It returns the user plus the
// attached farmer or buyer record, which is the role context every
// protected client view works from.
func (h *Handlers) GetMe(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	user, err := h.getUserByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}

	resp := gin.H{"user": user}

	switch user.Role {
	case models.RoleFarmer:
		farmer, err := h.getFarmerByUserID(h.DB, userID)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load farmer profile"})
			return
		}
		resp["farmer"] = farmer // nil until onboarding completes
	case models.RoleBuyer:
		buyer, err := h.getBuyerByUserID(h.DB, userID)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load buyer profile"})
			return
		}
		resp["buyer"] = buyer
	}

	c.JSON(http.StatusOK, resp)
}

type UpdateMeInput struct {
	FullName  *string `json:"fullName"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatarUrl"`
	KycBVN    *string `json:"kycBvn"`
	KycNIN    *string `json:"kycNin"`
}

// UpdateMe is the handler for PUT /v1/me. Partial update of the caller's
// own profile, the KYC identifiers included. Email, role and the password
// hash are not editable through this surface.
func (h *Handlers) UpdateMe(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	var input UpdateMeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	querySet := "updated_at = ?"
	queryArgs := []interface{}{time.Now()}
	edited := false

	if input.FullName != nil {
		if *input.FullName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fullName cannot be empty"})
			return
		}
		querySet += ", full_name = ?"
		queryArgs = append(queryArgs, *input.FullName)
		edited = true
	}
	if input.Phone != nil {
		querySet += ", phone = ?"
		queryArgs = append(queryArgs, *input.Phone)
		edited = true
	}
	if input.AvatarURL != nil {
		querySet += ", avatar_url = ?"
		queryArgs = append(queryArgs, nullable(*input.AvatarURL))
		edited = true
	}
	if input.KycBVN != nil {
		querySet += ", kyc_bvn = ?"
		queryArgs = append(queryArgs, nullable(*input.KycBVN))
		edited = true
	}
	if input.KycNIN != nil {
		querySet += ", kyc_nin = ?"
		queryArgs = append(queryArgs, nullable(*input.KycNIN))
		edited = true
	}

	if !edited {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	queryArgs = append(queryArgs, userID)
	_, err := h.DB.Exec("UPDATE users SET "+querySet+" WHERE id = ?", queryArgs...)
	if err != nil {
		logrus.WithError(err).Error("profile update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	user, err := h.getUserByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
		"user":    user,
	})
}

//
// --- Onboarding ---
//

type OnboardFarmerInput struct {
	FarmName        string   `json:"farmName" binding:"required"`
	FarmDescription string   `json:"farmDescription"`
	Location        string   `json:"location" binding:"required"`
	Address         string   `json:"address"`
	Crops           []string `json:"crops"`
}

// OnboardFarmer is the handler for POST /v1/onboarding/farmer.
// The new farmer starts with verification_status = pending; listings stay
// locked until an admin approves the farm.
func (h *Handlers) OnboardFarmer(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	var input OnboardFarmerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists int
	err := h.DB.QueryRow("SELECT 1 FROM farmers WHERE user_id = ?", userID).Scan(&exists)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Farmer profile already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing profile"})
		return
	}

	if input.Crops == nil {
		input.Crops = []string{}
	}
	cropsJSON, _ := json.Marshal(input.Crops)

	now := time.Now()
	farmerID := uuid.NewString()

	query := `
		INSERT INTO farmers
		(id, user_id, farm_name, farm_description, location, address, crops, verification_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = h.DB.Exec(query,
		farmerID, userID, input.FarmName, nullable(input.FarmDescription),
		input.Location, nullable(input.Address), string(cropsJSON),
		models.VerificationPending, now, now,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Farmer profile already exists"})
			return
		}
		logrus.WithError(err).Error("onboarding: insert farmer failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create farmer profile"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Farm profile created. Your account is pending verification.",
		"farmerId": farmerID,
	})
}

type OnboardBuyerInput struct {
	BusinessName  string `json:"businessName" binding:"required"`
	BusinessType  string `json:"businessType"`
	ContactPerson string `json:"contactPerson"`
	Location      string `json:"location" binding:"required"`
	Address       string `json:"address"`
}

// OnboardBuyer is the handler for POST /v1/onboarding/buyer
func (h *Handlers) OnboardBuyer(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	var input OnboardBuyerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists int
	err := h.DB.QueryRow("SELECT 1 FROM buyers WHERE user_id = ?", userID).Scan(&exists)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Buyer profile already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing profile"})
		return
	}

	now := time.Now()
	buyerID := uuid.NewString()

	query := `
		INSERT INTO buyers
		(id, user_id, business_name, business_type, contact_person, location, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = h.DB.Exec(query,
		buyerID, userID, input.BusinessName, nullable(input.BusinessType),
		nullable(input.ContactPerson), input.Location, nullable(input.Address),
		now, now,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Buyer profile already exists"})
			return
		}
		logrus.WithError(err).Error("onboarding: insert buyer failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create buyer profile"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Buyer profile created successfully",
		"buyerId": buyerID,
	})
}

//
// --- Shared lookups ---
//

func (h *Handlers) getUserByID(userID string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, full_name, phone, avatar_url, kyc_bvn, kyc_nin, role, created_at, updated_at
		FROM users
		WHERE id = ?`

	err := h.DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Email, &user.FullName, &user.Phone,
		&user.AvatarURL, &user.KycBVN, &user.KycNIN, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (h *Handlers) getFarmerByUserID(q Querier, userID string) (*models.Farmer, error) {
	var f models.Farmer
	var crops []byte

	query := `
		SELECT id, user_id, farm_name, farm_description, location, address, crops,
		       verification_status, total_sales, total_earnings, average_rating, created_at, updated_at
		FROM farmers
		WHERE user_id = ?`

	err := q.QueryRow(query, userID).Scan(
		&f.ID, &f.UserID, &f.FarmName, &f.FarmDescription, &f.Location, &f.Address, &crops,
		&f.VerificationStatus, &f.TotalSales, &f.TotalEarnings, &f.AverageRating, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Crops = []string{}
	if len(crops) > 0 {
		json.Unmarshal(crops, &f.Crops)
	}

	return &f, nil
}

func (h *Handlers) getBuyerByUserID(q Querier, userID string) (*models.Buyer, error) {
	var b models.Buyer

	query := `
		SELECT id, user_id, business_name, business_type, contact_person, location, address,
		       total_orders, total_spend, created_at, updated_at
		FROM buyers
		WHERE user_id = ?`

	err := q.QueryRow(query, userID).Scan(
		&b.ID, &b.UserID, &b.BusinessName, &b.BusinessType, &b.ContactPerson, &b.Location, &b.Address,
		&b.TotalOrders, &b.TotalSpend, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
