package routes

import (
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/handlers"
	"github.com/farmdirect/farmdirect-golang/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every route group onto a gin engine. allowedOrigins is
// the browser frontends permitted to call the API.
func SetupRouter(h *handlers.Handlers, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/v1")
	{
		// --- Public Routes ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		v1.POST("/signup", h.Signup)
		v1.POST("/login", h.Login)

		v1.GET("/listings/search", h.SearchListings)
		v1.GET("/farmers/:id/reviews", h.GetFarmerReviews)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.DB))
		{
			auth.GET("/me", h.GetMe)
			auth.PUT("/me", h.UpdateMe)

			auth.POST("/onboarding/farmer", h.OnboardFarmer)
			auth.POST("/onboarding/buyer", h.OnboardBuyer)

			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
		}

		// --- Farmer-Only Routes ---
		farmer := v1.Group("/farmer")
		farmer.Use(middleware.AuthMiddleware(h.DB))
		farmer.Use(middleware.RequireFarmer(h.DB))
		{
			farmer.POST("/listings", h.CreateListing)
			farmer.GET("/listings", h.GetMyListings)
			farmer.PUT("/listings/:id", h.UpdateListing)
			farmer.DELETE("/listings/:id", h.DeleteListing)

			farmer.GET("/orders", h.GetFarmerOrders)
			farmer.PATCH("/orders/:id/status", h.FarmerUpdateOrderStatus)

			farmer.GET("/earnings", h.GetFarmerEarnings)
			farmer.GET("/dashboard-stats", h.GetFarmerStats)
		}

		// --- Buyer-Only Routes ---
		buyer := v1.Group("/buyer")
		buyer.Use(middleware.AuthMiddleware(h.DB))
		buyer.Use(middleware.RequireBuyer(h.DB))
		{
			buyer.POST("/orders", h.PlaceOrder)
			buyer.GET("/orders", h.GetMyOrders)
			buyer.PATCH("/orders/:id/cancel", h.BuyerCancelOrder)
			buyer.POST("/orders/:id/review", h.CreateReview)

			buyer.GET("/dashboard-stats", h.GetBuyerStats)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h.DB))
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/farmers/pending", h.GetPendingFarmers)
			admin.PATCH("/farmers/:id/verify", h.VerifyFarmer)

			admin.GET("/listings/pending", h.GetPendingListings)
			admin.PATCH("/listings/:id/review", h.ReviewListing)

			admin.GET("/orders", h.GetAllOrders)
			admin.PATCH("/orders/:id/status", h.AdminUpdateOrderStatus)

			admin.GET("/stats", h.GetPlatformStats)
			admin.GET("/audit-logs", h.GetAuditLogs)
		}
	}

	return router
}
