package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vai trò của người dùng trong marketplace.
const (
	RoleDonor = "donor"
	RoleNGO   = "ngo"
)

// User struct matches the document in MongoDB
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userID" json:"userID"` // ID tự tạo, dễ đọc (USR-xxxx)
	Email       string             `bson:"email" json:"email"`
	Name        string             `bson:"name" json:"name"`
	Password    string             `bson:"password" json:"-"`
	Role        string             `bson:"role" json:"role"` // "donor" hoặc "ngo"
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	CompanyName string             `bson:"companyName,omitempty" json:"companyName,omitempty"`
	ProfilePic  string             `bson:"profilePic,omitempty" json:"profilePic,omitempty"`
	Status      string             `bson:"status" json:"status"` // active, disabled
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
