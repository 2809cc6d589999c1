// server/internal/lifecycle/errors.go
package lifecycle

import (
	"fmt"

	"food-bridge-api-server/internal/models"
)

// ValidationError báo một field không hợp lệ khi tạo donation.
// Lỗi này chỉ hiển thị trên form, không bao giờ được ghi xuống store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError báo một event không hợp lệ với trạng thái hiện tại
// hoặc với actor đang gọi. Caller xử lý như một no-op kèm thông báo,
// không phải lỗi nghiêm trọng.
type InvalidTransitionError struct {
	Event  Event
	Status models.DonationStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s donation: %s", e.Event, e.Status, e.Reason)
}
