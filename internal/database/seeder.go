// server/internal/database/seeder.go
package database

import (
	"context"
	"log"
	"time"

	"food-bridge-api-server/internal/auth"
	"food-bridge-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SeedDemoUsers tạo một donor và một NGO mẫu cho môi trường dev.
// Chỉ chạy khi seed.demoUsers được bật trong config.
func SeedDemoUsers(db *mongo.Database) error {
	userCollection := db.Collection("users")

	demoUsers := []models.User{
		{
			UserID: "USR-DEMODONOR",
			Email:  "donor@example.com",
			Name:   "Demo Donor",
			Role:   models.RoleDonor,
		},
		{
			UserID:      "USR-DEMONGO",
			Email:       "ngo@example.com",
			Name:        "Demo NGO",
			Role:        models.RoleNGO,
			CompanyName: "Helping Hands",
		},
	}

	for _, u := range demoUsers {
		// Kiểm tra xem user đã tồn tại chưa
		count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": u.Email})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hashedPassword, err := auth.HashPassword("demopassword")
		if err != nil {
			return err
		}
		u.Password = hashedPassword
		u.Status = "active"
		u.CreatedAt = time.Now()

		if _, err := userCollection.InsertOne(context.Background(), u); err != nil {
			return err
		}
		log.Printf("Seeded demo user %s (%s)", u.Email, u.Role)
	}

	return nil
}
