package lifecycle

import (
	"errors"
	"testing"
	"time"

	"food-bridge-api-server/internal/models"
)

var (
	donor     = Actor{ID: "USR-DONOR1", Name: "Green Kitchen", Role: models.RoleDonor}
	ngoA      = Actor{ID: "USR-NGOA", Name: "NGO A", Role: models.RoleNGO}
	ngoB      = Actor{ID: "USR-NGOB", Name: "NGO B", Role: models.RoleNGO}
	baseTime  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	otherUser = Actor{ID: "USR-OTHER", Name: "Someone Else", Role: models.RoleDonor}
)

func availableDonation() models.Donation {
	return models.Donation{
		DonationID: "DON-TEST1234",
		Items: []models.DonationItem{
			{Name: "Rice", IsVeg: true, Quantity: 10, Unit: "servings"},
		},
		IsVeg:      true,
		Weight:     4.5,
		Location:   "12 Market St",
		DonorID:    donor.ID,
		DonorName:  donor.Name,
		Status:     models.StatusAvailable,
		ExpiryTime: baseTime.Add(3 * time.Hour),
		CreatedAt:  baseTime.Add(-time.Hour),
	}
}

func requestedDonation(requestedAt time.Time) models.Donation {
	d := availableDonation()
	d.Status = models.StatusRequested
	d.RequestedBy = ngoA.ID
	d.RequestedByName = ngoA.Name
	d.RequestedAt = &requestedAt
	return d
}

// checkBindingInvariant: requestedBy/requestedAt khác rỗng <=> status == requested.
func checkBindingInvariant(t *testing.T, d models.Donation) {
	t.Helper()
	isRequested := d.Status == models.StatusRequested
	if (d.RequestedBy != "") != isRequested {
		t.Errorf("invariant broken: status=%s but requestedBy=%q", d.Status, d.RequestedBy)
	}
	if (d.RequestedByName != "") != isRequested {
		t.Errorf("invariant broken: status=%s but requestedByName=%q", d.Status, d.RequestedByName)
	}
	if (d.RequestedAt != nil) != isRequested {
		t.Errorf("invariant broken: status=%s but requestedAt=%v", d.Status, d.RequestedAt)
	}
}

func TestRequestAvailableDonation(t *testing.T) {
	d := availableDonation()
	now := baseTime

	change, err := Decide(d, EventRequest, ngoA, now)
	if err != nil {
		t.Fatalf("request should succeed: %v", err)
	}
	if change.From != models.StatusAvailable {
		t.Errorf("precondition should pin available, got %s", change.From)
	}

	after := change.Apply(d)
	if after.Status != models.StatusRequested {
		t.Errorf("status = %s, want requested", after.Status)
	}
	if after.RequestedBy != ngoA.ID || after.RequestedByName != ngoA.Name {
		t.Errorf("request binding = %q/%q, want %q/%q", after.RequestedBy, after.RequestedByName, ngoA.ID, ngoA.Name)
	}
	if after.RequestedAt == nil || !after.RequestedAt.Equal(now) {
		t.Errorf("requestedAt = %v, want %v", after.RequestedAt, now)
	}
	checkBindingInvariant(t, after)
}

func TestRequestRejections(t *testing.T) {
	tests := []struct {
		name  string
		d     models.Donation
		actor Actor
	}{
		{"donor cannot request", availableDonation(), donor},
		{"already requested", requestedDonation(baseTime), ngoB},
		{"collected is not requestable", func() models.Donation {
			d := availableDonation()
			d.Status = models.StatusCollected
			return d
		}(), ngoA},
		{"cancelled is not requestable", func() models.Donation {
			d := availableDonation()
			d.Status = models.StatusCancelled
			return d
		}(), ngoA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(tt.d, EventRequest, tt.actor, baseTime)
			var transitionErr *InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("want InvalidTransitionError, got %v", err)
			}
		})
	}
}

func TestCancelRequestByRequestingNGO(t *testing.T) {
	requestedAt := baseTime
	d := requestedDonation(requestedAt)
	now := requestedAt.Add(5 * time.Minute)

	change, err := Decide(d, EventCancelRequest, ngoA, now)
	if err != nil {
		t.Fatalf("cancel within window should succeed: %v", err)
	}
	if change.ExpectRequestedBy != ngoA.ID {
		t.Errorf("filter should pin requestedBy=%s, got %q", ngoA.ID, change.ExpectRequestedBy)
	}

	after := change.Apply(d)
	if after.Status != models.StatusAvailable {
		t.Errorf("status = %s, want available", after.Status)
	}
	checkBindingInvariant(t, after)
}

func TestCancelRequestByOwningDonor(t *testing.T) {
	d := requestedDonation(baseTime)
	now := baseTime.Add(time.Minute)

	change, err := Decide(d, EventCancelRequest, donor, now)
	if err != nil {
		t.Fatalf("donor release within window should succeed: %v", err)
	}
	if change.ExpectDonorID != donor.ID {
		t.Errorf("filter should pin donorID=%s, got %q", donor.ID, change.ExpectDonorID)
	}

	after := change.Apply(d)
	if after.Status != models.StatusAvailable {
		t.Errorf("status = %s, want available", after.Status)
	}
	checkBindingInvariant(t, after)
}

func TestCancelRequestWindowBoundary(t *testing.T) {
	requestedAt := baseTime
	d := requestedDonation(requestedAt)

	// 14:59.999 sau request: vẫn hủy được.
	justInside := requestedAt.Add(CancelWindow - time.Millisecond)
	if _, err := Decide(d, EventCancelRequest, ngoA, justInside); err != nil {
		t.Errorf("at window-1ms cancel should succeed, got %v", err)
	}

	// Đúng 15:00.000: cửa sổ đã đóng (so sánh chặt).
	atBoundary := requestedAt.Add(CancelWindow)
	if _, err := Decide(d, EventCancelRequest, ngoA, atBoundary); err == nil {
		t.Error("at exact window boundary cancel should be rejected")
	}

	afterBoundary := requestedAt.Add(CancelWindow + time.Second)
	if _, err := Decide(d, EventCancelRequest, ngoA, afterBoundary); err == nil {
		t.Error("after window cancel should be rejected")
	}
}

func TestCancelRequestByStranger(t *testing.T) {
	d := requestedDonation(baseTime)

	for _, actor := range []Actor{ngoB, otherUser} {
		if _, err := Decide(d, EventCancelRequest, actor, baseTime.Add(time.Minute)); err == nil {
			t.Errorf("actor %s should not be able to release the request", actor.ID)
		}
	}
}

func TestDonorCancelsRequestedDonation(t *testing.T) {
	d := requestedDonation(baseTime)
	// Khác với cancelRequest: không giới hạn thời gian, đích là cancelled.
	now := baseTime.Add(2 * time.Hour)

	change, err := Decide(d, EventCancelDonation, donor, now)
	if err != nil {
		t.Fatalf("donor cancel should succeed at any time: %v", err)
	}

	after := change.Apply(d)
	if after.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", after.Status)
	}
	checkBindingInvariant(t, after)

	// Sau khi donor hủy, NGO không còn collect được nữa.
	if _, err := Decide(after, EventMarkCollected, ngoA, now); err == nil {
		t.Error("markCollected on a cancelled donation should be rejected")
	}
}

func TestCancelDonationRejections(t *testing.T) {
	collected := availableDonation()
	collected.Status = models.StatusCollected

	tests := []struct {
		name  string
		d     models.Donation
		actor Actor
	}{
		{"ngo cannot cancel a donation", availableDonation(), ngoA},
		{"stranger cannot cancel", availableDonation(), otherUser},
		{"terminal state cannot be cancelled", collected, donor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decide(tt.d, EventCancelDonation, tt.actor, baseTime); err == nil {
				t.Error("want rejection")
			}
		})
	}
}

func TestMarkCollected(t *testing.T) {
	d := requestedDonation(baseTime)
	now := baseTime.Add(30 * time.Minute)

	change, err := Decide(d, EventMarkCollected, ngoA, now)
	if err != nil {
		t.Fatalf("requesting NGO should be able to collect: %v", err)
	}
	if change.ExpectRequestedBy != ngoA.ID {
		t.Errorf("filter should pin requestedBy=%s, got %q", ngoA.ID, change.ExpectRequestedBy)
	}

	after := change.Apply(d)
	if after.Status != models.StatusCollected {
		t.Errorf("status = %s, want collected", after.Status)
	}
	if after.CollectedBy != ngoA.ID {
		t.Errorf("collectedBy = %q, want %q", after.CollectedBy, ngoA.ID)
	}
	if after.CollectedAt == nil || !after.CollectedAt.Equal(now) {
		t.Errorf("collectedAt = %v, want %v", after.CollectedAt, now)
	}
	checkBindingInvariant(t, after)
}

func TestMarkCollectedByWrongNGO(t *testing.T) {
	d := requestedDonation(baseTime)
	if _, err := Decide(d, EventMarkCollected, ngoB, baseTime); err == nil {
		t.Error("an NGO that does not hold the request must not collect")
	}
}

func TestDeletePermissions(t *testing.T) {
	collected := requestedDonation(baseTime)
	collectChange, err := Decide(collected, EventMarkCollected, ngoA, baseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	collected = collectChange.Apply(collected)

	cancelled := availableDonation()
	cancelled.Status = models.StatusCancelled

	tests := []struct {
		name    string
		d       models.Donation
		actor   Actor
		allowed bool
	}{
		{"owner deletes own collected", collected, donor, true},
		{"owner deletes own cancelled", cancelled, donor, true},
		{"collector deletes own collected record", collected, ngoA, true},
		{"other ngo cannot delete collected", collected, ngoB, false},
		{"ngo cannot delete cancelled", cancelled, ngoA, false},
		{"stranger cannot delete", collected, otherUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := Decide(tt.d, EventDelete, tt.actor, baseTime)
			if tt.allowed {
				if err != nil {
					t.Fatalf("delete should be allowed: %v", err)
				}
				if !change.Delete {
					t.Error("change should be a hard delete")
				}
			} else if err == nil {
				t.Error("delete should be rejected")
			}
		})
	}
}

func TestDeleteNonTerminal(t *testing.T) {
	for _, d := range []models.Donation{availableDonation(), requestedDonation(baseTime)} {
		if _, err := Decide(d, EventDelete, donor, baseTime); err == nil {
			t.Errorf("delete in state %s should be rejected", d.Status)
		}
	}
}

// Nội dung bị đóng băng ở trạng thái kết thúc: không event nào ngoài
// delete được chấp nhận, nên items/weight/location/expiry không thể đổi.
func TestTerminalStatesAreFrozen(t *testing.T) {
	events := []Event{EventRequest, EventCancelRequest, EventCancelDonation, EventMarkCollected}
	actors := []Actor{donor, ngoA, ngoB}

	for _, status := range []models.DonationStatus{models.StatusCollected, models.StatusCancelled} {
		d := availableDonation()
		d.Status = status
		for _, ev := range events {
			for _, actor := range actors {
				if _, err := Decide(d, ev, actor, baseTime); err == nil {
					t.Errorf("event %s by %s should be rejected in terminal state %s", ev, actor.ID, status)
				}
			}
		}
	}
}
