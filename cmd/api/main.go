// server/cmd/api/main.go
package main

import (
	"context"
	"encoding/json"
	"log"

	"food-bridge-api-server/config"
	"food-bridge-api-server/internal/api/routes"
	"food-bridge-api-server/internal/auth"
	"food-bridge-api-server/internal/database"
	"food-bridge-api-server/internal/models"
	"food-bridge-api-server/internal/notify"
	"food-bridge-api-server/internal/s3"
	"food-bridge-api-server/internal/socket"
	"food-bridge-api-server/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// .env cho môi trường dev; production dùng biến môi trường thật.
	_ = godotenv.Load()

	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if cfg.JWT.Secret != "" {
		auth.JwtSecret = []byte(cfg.JWT.Secret)
	}

	// 2. Kết nối MongoDB và chuẩn bị index
	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := database.EnsureIndexes(db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	if cfg.Seed.DemoUsers {
		if err := database.SeedDemoUsers(db); err != nil {
			log.Fatalf("Failed to seed demo users: %v", err)
		}
	}

	// 3. S3 uploader cho ảnh món ăn (tùy chọn)
	var s3Uploader *s3.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err = s3.NewUploader(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create S3 uploader: %v", err)
		}
	}

	// 4. Feed + gateway + hub: mọi thay đổi của collection được đẩy
	// tới tất cả client đang subscribe
	wsHub := socket.NewHub()
	webhook := notify.NewWebhook(cfg.Notify.WebhookURL)

	var gateway *store.Gateway
	feed := store.NewFeed(func(ctx context.Context) ([]models.Donation, error) {
		return gateway.FetchAll(ctx)
	})
	gateway = store.NewGateway(db, feed)

	feed.Subscribe(func(donations []models.Donation) {
		message, err := json.Marshal(map[string]interface{}{
			"event":     "donations_snapshot",
			"donations": donations,
		})
		if err != nil {
			log.Printf("Failed to marshal donations snapshot: %v", err)
			return
		}
		wsHub.Broadcast(message)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)
	if cfg.Mongo.Watch {
		go feed.Watch(ctx, db.Collection("donations"))
	}

	// 5. Truyền tất cả các thành phần cần thiết vào router
	router := routes.SetupRouter(cfg, db, gateway, s3Uploader, webhook, wsHub)

	// 6. Start server
	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
