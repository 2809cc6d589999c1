// server/internal/lifecycle/engine.go
package lifecycle

import (
	"time"

	"food-bridge-api-server/internal/models"
)

// Event là một hành động người dùng lên vòng đời của donation.
type Event string

const (
	EventRequest        Event = "request"
	EventCancelRequest  Event = "cancelRequest"
	EventCancelDonation Event = "cancelDonation"
	EventMarkCollected  Event = "markCollected"
	EventDelete         Event = "delete"
)

// Actor là danh tính được truyền tường minh vào mỗi lời gọi,
// lấy từ JWT claims, không bao giờ đọc từ trạng thái toàn cục.
type Actor struct {
	ID   string
	Name string
	Role string // models.RoleDonor hoặc models.RoleNGO
}

// Change mô tả một mutation có điều kiện mà gateway sẽ dịch thành
// đúng MỘT lệnh UpdateOne/DeleteOne trên store. Các field Expect*
// là precondition được store đánh giá nguyên tử tại thời điểm ghi —
// không bao giờ read-then-write phía client.
type Change struct {
	// Precondition: status hiện tại phải còn đúng như lúc quyết định.
	From models.DonationStatus
	// Precondition bổ sung theo actor; rỗng nghĩa là không ràng buộc.
	ExpectRequestedBy string
	ExpectCollectedBy string
	ExpectDonorID     string

	// Delete=true nghĩa là xóa cứng bản ghi thay vì cập nhật.
	Delete bool
	To     models.DonationStatus

	// Các mutation lên request binding.
	SetRequestedBy     string
	SetRequestedByName string
	SetRequestedAt     *time.Time
	ClearRequest       bool

	// Các mutation khi NGO xác nhận đã thu gom.
	SetCollectedBy     string
	SetCollectedByName string
	SetCollectedAt     *time.Time
}

// Decide là state machine duy nhất quyết định một event có hợp lệ không.
// Hàm thuần: không I/O, không đồng hồ ẩn — "now" được truyền vào để
// cửa sổ hủy luôn được đánh giá lại tại thời điểm gọi.
func Decide(d models.Donation, ev Event, actor Actor, now time.Time) (Change, error) {
	switch ev {
	case EventRequest:
		if actor.Role != models.RoleNGO {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "only an NGO can request a donation"}
		}
		if d.Status != models.StatusAvailable {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "donation is not available"}
		}
		requestedAt := now
		return Change{
			From:               models.StatusAvailable,
			To:                 models.StatusRequested,
			SetRequestedBy:     actor.ID,
			SetRequestedByName: actor.Name,
			SetRequestedAt:     &requestedAt,
		}, nil

	case EventCancelRequest:
		if d.Status != models.StatusRequested {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "donation has no open request"}
		}
		isRequester := actor.Role == models.RoleNGO && actor.ID == d.RequestedBy
		isOwner := actor.Role == models.RoleDonor && actor.ID == d.DonorID
		if !isRequester && !isOwner {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "only the requesting NGO or the owning donor can release a request"}
		}
		if d.RequestedAt == nil || !Cancellable(now, *d.RequestedAt) {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "cancellation window has closed"}
		}
		ch := Change{
			From:         models.StatusRequested,
			To:           models.StatusAvailable,
			ClearRequest: true,
		}
		if isRequester {
			ch.ExpectRequestedBy = actor.ID
		} else {
			ch.ExpectDonorID = actor.ID
		}
		return ch, nil

	case EventCancelDonation:
		if actor.Role != models.RoleDonor || actor.ID != d.DonorID {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "only the owning donor can cancel a donation"}
		}
		if d.Status != models.StatusAvailable && d.Status != models.StatusRequested {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "donation is already closed"}
		}
		return Change{
			From:          d.Status,
			To:            models.StatusCancelled,
			ExpectDonorID: actor.ID,
			// Rời trạng thái requested thì binding phải được xóa.
			ClearRequest: d.Status == models.StatusRequested,
		}, nil

	case EventMarkCollected:
		if d.Status != models.StatusRequested {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "donation is not requested"}
		}
		if actor.Role != models.RoleNGO || actor.ID != d.RequestedBy {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "only the requesting NGO can mark a donation collected"}
		}
		collectedAt := now
		return Change{
			From:               models.StatusRequested,
			To:                 models.StatusCollected,
			ExpectRequestedBy:  actor.ID,
			ClearRequest:       true,
			SetCollectedBy:     actor.ID,
			SetCollectedByName: actor.Name,
			SetCollectedAt:     &collectedAt,
		}, nil

	case EventDelete:
		if !d.Status.IsTerminal() {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "only a collected or cancelled donation can be deleted"}
		}
		isOwner := actor.Role == models.RoleDonor && actor.ID == d.DonorID
		isCollector := actor.Role == models.RoleNGO && d.Status == models.StatusCollected && actor.ID == d.CollectedBy
		if !isOwner && !isCollector {
			return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "not allowed to delete this donation"}
		}
		ch := Change{From: d.Status, Delete: true}
		if isOwner {
			ch.ExpectDonorID = actor.ID
		} else {
			ch.ExpectCollectedBy = actor.ID
		}
		return ch, nil
	}

	return Change{}, &InvalidTransitionError{Event: ev, Status: d.Status, Reason: "unknown event"}
}

// Apply áp Change lên snapshot hiện tại và trả về bản ghi sau transition.
// Gateway dùng hàm này để trả về trạng thái mới sau khi conditional write
// thành công mà không cần đọc lại store. Không gọi Apply cho Change.Delete.
func (c Change) Apply(d models.Donation) models.Donation {
	d.Status = c.To
	if c.ClearRequest {
		d.RequestedBy = ""
		d.RequestedByName = ""
		d.RequestedAt = nil
	}
	if c.SetRequestedBy != "" {
		d.RequestedBy = c.SetRequestedBy
		d.RequestedByName = c.SetRequestedByName
		d.RequestedAt = c.SetRequestedAt
	}
	if c.SetCollectedBy != "" {
		d.CollectedBy = c.SetCollectedBy
		d.CollectedByName = c.SetCollectedByName
		d.CollectedAt = c.SetCollectedAt
	}
	return d
}
