// server/internal/lifecycle/validate.go
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"food-bridge-api-server/internal/models"
)

// ValidateNew kiểm tra các bất biến cấu trúc của một donation trước khi tạo.
// Trả về *ValidationError chỉ ra field đầu tiên vi phạm.
func ValidateNew(d models.Donation, now time.Time) error {
	if len(d.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, item := range d.Items {
		if strings.TrimSpace(item.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].name", i), Reason: "item name is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "quantity must be positive"}
		}
		if strings.TrimSpace(item.Unit) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].unit", i), Reason: "unit is required"}
		}
	}
	if d.Weight <= 0 {
		return &ValidationError{Field: "weight", Reason: "weight must be positive"}
	}
	if strings.TrimSpace(d.Location) == "" {
		return &ValidationError{Field: "location", Reason: "location is required"}
	}
	if !d.ExpiryTime.After(now) {
		return &ValidationError{Field: "expiryTime", Reason: "expiry time must be in the future"}
	}
	return nil
}

// CanAttachPhoto kiểm tra quyền gắn ảnh vào một donation: chỉ donor
// sở hữu, và chỉ khi bản ghi chưa ở trạng thái kết thúc (nội dung của
// trạng thái kết thúc bị đóng băng). Filter của store vẫn là chốt chặn
// cuối; đây là bước kiểm tra trước khi tốn công upload file.
func CanAttachPhoto(d models.Donation, actor Actor) error {
	if d.DonorID != actor.ID {
		return &InvalidTransitionError{Event: "attachPhoto", Status: d.Status, Reason: "only the owning donor can attach a photo"}
	}
	if d.Status.IsTerminal() {
		return &InvalidTransitionError{Event: "attachPhoto", Status: d.Status, Reason: "donation content is frozen"}
	}
	return nil
}

// AllVeg tính cờ tổng hợp "mọi món đều chay".
func AllVeg(items []models.DonationItem) bool {
	for _, item := range items {
		if !item.IsVeg {
			return false
		}
	}
	return true
}
