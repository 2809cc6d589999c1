// server/internal/api/routes/routes.go
package routes

import (
	"food-bridge-api-server/config"
	"food-bridge-api-server/internal/api/handlers"
	"food-bridge-api-server/internal/api/middleware"
	"food-bridge-api-server/internal/models"
	"food-bridge-api-server/internal/notify"
	"food-bridge-api-server/internal/s3"
	"food-bridge-api-server/internal/socket"
	"food-bridge-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter nhận vào các thành phần phụ thuộc và thiết lập các route
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	gateway *store.Gateway,
	s3Uploader *s3.Uploader,
	webhook *notify.Webhook,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	// Presentation layer là một web client chạy trong browser.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	// Khởi tạo các handlers
	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	donationHandler := &handlers.DonationHandler{
		Gateway:    gateway,
		Hub:        wsHub,
		Webhook:    webhook,
		S3Uploader: s3Uploader,
	}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub, Gateway: gateway}

	apiV1 := router.Group("/api/v1")
	{
		// Route cho WebSocket
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === CÁC ROUTE KHÔNG YÊU CẦU XÁC THỰC ===
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		// === CÁC ROUTE YÊU CẦU XÁC THỰC (PROTECTED) ===
		protected := apiV1.Group("/")
		protected.Use(middleware.Authenticate())
		protected.Use(middleware.Authorize(models.RoleDonor, models.RoleNGO))
		{
			// Profile
			protected.GET("/me", userHandler.GetMe)
			protected.PUT("/me", userHandler.UpdateMe)

			donations := protected.Group("/donations")
			{
				// Các view suy diễn từ collection
				donations.GET("/", donationHandler.GetDonations)
				donations.GET("/available", donationHandler.GetAvailableDonations)
				donations.GET("/:id", donationHandler.GetDonation)

				// Route chỉ cho donor
				donorRoutes := donations.Group("/")
				donorRoutes.Use(middleware.Authorize(models.RoleDonor))
				{
					donorRoutes.POST("/", donationHandler.CreateDonation)
					donorRoutes.GET("/mine", donationHandler.GetMyDonations)
					donorRoutes.POST("/:id/cancel", donationHandler.CancelDonation)
					donorRoutes.POST("/:id/photo", donationHandler.UploadPhoto)
				}

				// Route chỉ cho NGO
				ngoRoutes := donations.Group("/")
				ngoRoutes.Use(middleware.Authorize(models.RoleNGO))
				{
					ngoRoutes.GET("/requests", donationHandler.GetMyRequests)
					ngoRoutes.POST("/:id/request", donationHandler.RequestDonation)
					ngoRoutes.POST("/:id/collect", donationHandler.MarkCollected)
				}

				// cancel-request: NGO rút request của mình, hoặc donor
				// trả donation của mình về pool — engine phân xử actor.
				donations.POST("/:id/cancel-request", donationHandler.CancelRequest)

				// delete: donor với donation của mình, NGO với bản ghi
				// collected của mình — engine phân xử actor.
				donations.DELETE("/:id", donationHandler.DeleteDonation)
			}
		}
	}

	return router
}
