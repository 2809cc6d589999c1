// server/internal/lifecycle/window.go
package lifecycle

import "time"

// CancelWindow là khoảng thời gian NGO còn được rút lại request của mình.
const CancelWindow = 15 * time.Minute

// Cancellable báo request còn nằm trong cửa sổ hủy hay không.
// Biên cửa sổ dùng so sánh chặt: đúng 15:00.000 là đã đóng.
// Hàm này phải được tính lại từ đồng hồ tại mỗi lần kiểm tra,
// không được cache kết quả.
func Cancellable(now, requestedAt time.Time) bool {
	return now.Sub(requestedAt) < CancelWindow
}

// Remaining trả về thời gian còn lại của cửa sổ hủy, sàn tại 0
// để hiển thị đếm ngược không bao giờ âm.
func Remaining(now, requestedAt time.Time) time.Duration {
	rem := CancelWindow - now.Sub(requestedAt)
	if rem < 0 {
		return 0
	}
	return rem
}
