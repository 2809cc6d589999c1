// server/internal/api/handlers/donation_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"food-bridge-api-server/internal/lifecycle"
	"food-bridge-api-server/internal/models"
	"food-bridge-api-server/internal/notify"
	"food-bridge-api-server/internal/s3"
	"food-bridge-api-server/internal/socket"
	"food-bridge-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DonationHandler struct {
	Gateway    *store.Gateway
	Hub        *socket.Hub
	Webhook    *notify.Webhook
	S3Uploader *s3.Uploader
}

// actorFromContext dựng Actor từ JWT claims mà middleware đã đặt vào context.
// Danh tính luôn được truyền tường minh vào engine, không đọc từ global.
func actorFromContext(c *gin.Context) lifecycle.Actor {
	return lifecycle.Actor{
		ID:   c.GetString("user_id"),
		Name: c.GetString("user_name"),
		Role: c.GetString("user_role"),
	}
}

type DonationItemPayload struct {
	Name     string `json:"name" binding:"required"`
	IsVeg    bool   `json:"isVeg"`
	Quantity int    `json:"quantity" binding:"required"`
	Unit     string `json:"unit" binding:"required"`
}

type CreateDonationPayload struct {
	Items        []DonationItemPayload `json:"items" binding:"required"`
	Weight       float64               `json:"weight" binding:"required"`
	Location     string                `json:"location" binding:"required"`
	ExpiryTime   time.Time             `json:"expiryTime" binding:"required"`
	Notes        string                `json:"notes"`
	ContactName  string                `json:"contactName"`
	ContactPhone string                `json:"contactPhone"`
}

// CreateDonation xử lý donor đăng một lượt quyên góp mới.
func (h *DonationHandler) CreateDonation(c *gin.Context) {
	var payload CreateDonationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorFromContext(c)
	items := make([]models.DonationItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, models.DonationItem{
			Name:     item.Name,
			IsVeg:    item.IsVeg,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		})
	}

	newDonation := models.Donation{
		Items:        items,
		Weight:       payload.Weight,
		Location:     payload.Location,
		ExpiryTime:   payload.ExpiryTime,
		Notes:        payload.Notes,
		ContactName:  payload.ContactName,
		ContactPhone: payload.ContactPhone,
		DonorID:      actor.ID,
		DonorName:    actor.Name,
	}

	created, err := h.Gateway.Create(context.Background(), newDonation)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Webhook.Send("donation_posted", created)
	c.JSON(http.StatusCreated, created)
}

// GetDonations trả về toàn bộ collection, mới tạo trước.
func (h *DonationHandler) GetDonations(c *gin.Context) {
	donations, err := h.Gateway.FetchAll(context.Background())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, donations)
}

// GetAvailableDonations trả về pool cho NGO: available + requested.
func (h *DonationHandler) GetAvailableDonations(c *gin.Context) {
	donations, err := h.Gateway.FetchPool(context.Background())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, donations)
}

// GetMyDonations trả về các donation của donor đang đăng nhập.
func (h *DonationHandler) GetMyDonations(c *gin.Context) {
	donations, err := h.Gateway.FetchByDonor(context.Background(), c.GetString("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, donations)
}

// GetMyRequests trả về các donation NGO này đang request hoặc đã thu gom.
func (h *DonationHandler) GetMyRequests(c *gin.Context) {
	donations, err := h.Gateway.FetchByNGO(context.Background(), c.GetString("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, donations)
}

// donationView bổ sung các field suy diễn cho màn hình chi tiết.
// Đếm ngược phía client phải suy lại được mỗi giây từ requestedAt;
// hai field dưới chỉ là tiện ích hiển thị, không phải nguồn sự thật.
type donationView struct {
	models.Donation
	Cancellable            bool  `json:"cancellable"`
	CancelRemainingSeconds int64 `json:"cancelRemainingSeconds"`
}

func newDonationView(d models.Donation, now time.Time) donationView {
	view := donationView{Donation: d}
	if d.Status == models.StatusRequested && d.RequestedAt != nil {
		view.Cancellable = lifecycle.Cancellable(now, *d.RequestedAt)
		view.CancelRemainingSeconds = int64(lifecycle.Remaining(now, *d.RequestedAt).Seconds())
	}
	return view
}

// GetDonation trả về chi tiết một donation kèm trạng thái cửa sổ hủy,
// tính tại thời điểm đọc.
func (h *DonationHandler) GetDonation(c *gin.Context) {
	d, err := h.Gateway.FindByID(context.Background(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDonationView(d, time.Now()))
}

// RequestDonation: NGO xí một donation đang available.
// Trọng tài nằm ở conditional write của store; thua race nhận 409.
func (h *DonationHandler) RequestDonation(c *gin.Context) {
	actor := actorFromContext(c)
	updated, err := h.Gateway.ApplyTransition(context.Background(), c.Param("id"), lifecycle.EventRequest, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.notifyUser(updated.DonorID, "donation_requested", updated)
	h.Webhook.Send("donation_requested", updated)
	c.JSON(http.StatusOK, newDonationView(updated, time.Now()))
}

// CancelRequest: rút lại request trong cửa sổ 15 phút, trả donation
// về pool. Cửa sổ được engine đánh giá lại tại thời điểm gọi.
func (h *DonationHandler) CancelRequest(c *gin.Context) {
	actor := actorFromContext(c)
	donationID := c.Param("id")

	// Đọc trước chỉ để biết phía bên kia mà thông báo — quyết định
	// transition vẫn do conditional write của store phân xử.
	counterpart := ""
	if before, err := h.Gateway.FindByID(context.Background(), donationID); err == nil {
		if actor.Role == models.RoleNGO {
			counterpart = before.DonorID
		} else {
			counterpart = before.RequestedBy
		}
	}

	updated, err := h.Gateway.ApplyTransition(context.Background(), donationID, lifecycle.EventCancelRequest, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.notifyUser(counterpart, "request_cancelled", updated)
	c.JSON(http.StatusOK, updated)
}

// MarkCollected: NGO đang giữ request xác nhận đã lấy hàng.
func (h *DonationHandler) MarkCollected(c *gin.Context) {
	actor := actorFromContext(c)
	updated, err := h.Gateway.ApplyTransition(context.Background(), c.Param("id"), lifecycle.EventMarkCollected, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.notifyUser(updated.DonorID, "donation_collected", updated)
	h.Webhook.Send("donation_collected", updated)
	c.JSON(http.StatusOK, updated)
}

// CancelDonation: donor đóng donation của mình, kể cả khi đang
// có request — khác với CancelRequest, đích đến là cancelled.
func (h *DonationHandler) CancelDonation(c *gin.Context) {
	actor := actorFromContext(c)
	donationID := c.Param("id")

	counterpart := ""
	if before, err := h.Gateway.FindByID(context.Background(), donationID); err == nil {
		counterpart = before.RequestedBy
	}

	updated, err := h.Gateway.ApplyTransition(context.Background(), donationID, lifecycle.EventCancelDonation, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.notifyUser(counterpart, "donation_cancelled", updated)
	c.JSON(http.StatusOK, updated)
}

// DeleteDonation xóa cứng một bản ghi ở trạng thái kết thúc.
func (h *DonationHandler) DeleteDonation(c *gin.Context) {
	actor := actorFromContext(c)
	if err := h.Gateway.Delete(context.Background(), c.Param("id"), actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPhoto: donor gắn ảnh món ăn vào donation của mình.
func (h *DonationHandler) UploadPhoto(c *gin.Context) {
	if h.S3Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo storage is not configured"})
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A photo file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image uploads are allowed"})
		return
	}

	donationID := c.Param("id")
	actor := actorFromContext(c)

	// Kiểm tra quyền và trạng thái TRƯỚC khi upload, để một request bị
	// từ chối không bỏ lại object mồ côi trên S3. Conditional filter
	// của AddPhoto vẫn là chốt chặn cuối nếu trạng thái đổi ngay sau đó.
	d, err := h.Gateway.FindByID(context.Background(), donationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := lifecycle.CanAttachPhoto(d, actor); err != nil {
		h.respondError(c, err)
		return
	}

	photoID := uuid.New().String()
	objectKey := fmt.Sprintf("donations/%s/%s%s", donationID, photoID, filepath.Ext(header.Filename))

	url, err := h.S3Uploader.UploadFile(context.Background(), file, objectKey, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo", "details": err.Error()})
		return
	}

	photo := models.MediaPointer{
		ID:       photoID,
		URL:      url,
		FileName: header.Filename,
		FileType: contentType,
	}
	if err := h.Gateway.AddPhoto(context.Background(), donationID, actor, photo); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, photo)
}

// notifyUser đẩy một event WebSocket có chủ đích đến một user.
func (h *DonationHandler) notifyUser(userID, event string, d models.Donation) {
	if userID == "" {
		return
	}
	message, _ := json.Marshal(map[string]interface{}{
		"event":    event,
		"donation": d,
	})
	h.Hub.Send(userID, message)
}

// respondError dịch taxonomy lỗi của core sang HTTP.
func (h *DonationHandler) respondError(c *gin.Context, err error) {
	var validationErr *lifecycle.ValidationError
	var transitionErr *lifecycle.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &transitionErr):
		// No-op về mặt dữ liệu; người dùng chỉ cần được báo.
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Donation not found"})
	case errors.Is(err, store.ErrPreconditionFailed):
		c.JSON(http.StatusConflict, gin.H{"error": "This donation was just claimed or changed by someone else. Please refresh."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store operation failed", "details": err.Error()})
	}
}
