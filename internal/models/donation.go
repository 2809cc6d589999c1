// server/internal/models/donation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DonationStatus là trạng thái vòng đời của một lượt quyên góp.
type DonationStatus string

const (
	StatusAvailable DonationStatus = "available"
	StatusRequested DonationStatus = "requested"
	StatusCollected DonationStatus = "collected"
	StatusCancelled DonationStatus = "cancelled"
)

// IsTerminal báo trạng thái đã kết thúc hay chưa.
// Sau collected/cancelled nội dung bị đóng băng, chỉ còn xóa được.
func (s DonationStatus) IsTerminal() bool {
	return s == StatusCollected || s == StatusCancelled
}

// DonationItem là một món ăn trong lượt quyên góp.
type DonationItem struct {
	Name     string `bson:"name" json:"name"`
	IsVeg    bool   `bson:"isVeg" json:"isVeg"`
	Quantity int    `bson:"quantity" json:"quantity"`
	Unit     string `bson:"unit" json:"unit"` // ví dụ: "servings", "kg", "boxes"
}

type Donation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DonationID string             `bson:"donationID" json:"donationID"` // ID tự tạo, dễ đọc (DON-xxxx)

	Items []DonationItem `bson:"items" json:"items"`
	// IsVeg là cờ tổng hợp: true khi tất cả các món đều chay.
	IsVeg        bool    `bson:"isVeg" json:"isVeg"`
	Weight       float64 `bson:"weight" json:"weight"` // kg
	Location     string  `bson:"location" json:"location"`
	Notes        string  `bson:"notes,omitempty" json:"notes,omitempty"`
	ContactName  string  `bson:"contactName,omitempty" json:"contactName,omitempty"`
	ContactPhone string  `bson:"contactPhone,omitempty" json:"contactPhone,omitempty"`

	DonorID   string `bson:"donorID" json:"donorID"`
	DonorName string `bson:"donorName" json:"donorName"`

	Status DonationStatus `bson:"status" json:"status"`
	// RequestedBy/RequestedByName/RequestedAt chỉ có giá trị khi status == requested.
	RequestedBy     string     `bson:"requestedBy,omitempty" json:"requestedBy,omitempty"`
	RequestedByName string     `bson:"requestedByName,omitempty" json:"requestedByName,omitempty"`
	RequestedAt     *time.Time `bson:"requestedAt,omitempty" json:"requestedAt,omitempty"`
	// CollectedBy/CollectedByName/CollectedAt được gán khi NGO xác nhận đã lấy hàng,
	// để lịch sử thu gom của NGO vẫn truy vấn được sau khi request binding bị xóa.
	CollectedBy     string     `bson:"collectedBy,omitempty" json:"collectedBy,omitempty"`
	CollectedByName string     `bson:"collectedByName,omitempty" json:"collectedByName,omitempty"`
	CollectedAt     *time.Time `bson:"collectedAt,omitempty" json:"collectedAt,omitempty"`

	ExpiryTime time.Time `bson:"expiryTime" json:"expiryTime"` // an toàn để lấy hàng cho đến
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`

	Photos []MediaPointer `bson:"photos,omitempty" json:"photos,omitempty"` // ảnh món ăn (tham chiếu S3)
}

// InPool báo donation có thuộc "available pool" không.
// Các donation đã được request vẫn hiển thị để NGO khác thấy có tranh chấp,
// nhưng không request thêm được.
func (d Donation) InPool() bool {
	return d.Status == StatusAvailable || d.Status == StatusRequested
}

// MediaPointer đại diện cho một tài liệu media được lưu trữ trên S3 hoặc dịch vụ tương tự.
type MediaPointer struct {
	ID       string `bson:"id" json:"id"`
	URL      string `bson:"url" json:"url"`
	FileName string `bson:"fileName" json:"fileName"`
	FileType string `bson:"fileType" json:"fileType"` // ví dụ: "image/png", "image/jpeg"
}
