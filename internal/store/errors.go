// server/internal/store/errors.go
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound: không có donation nào với ID được yêu cầu.
var ErrNotFound = errors.New("donation not found")

// ErrPreconditionFailed: conditional write không khớp document nào —
// ai đó đã nhanh tay hơn, hoặc bản ghi đã đổi trạng thái/bị xóa.
// Caller nên tải lại trạng thái hiện tại và giải thích cho người dùng.
var ErrPreconditionFailed = errors.New("donation was claimed or changed by someone else")

// StoreError bọc lỗi kết nối/quyền từ driver. Không tự retry;
// mọi transition đều idempotent về mặt ngữ nghĩa nên gửi lại là an toàn.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
