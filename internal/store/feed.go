// server/internal/store/feed.go
package store

import (
	"context"
	"log"
	"sync"

	"food-bridge-api-server/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// FetchFunc tải snapshot hiện tại của collection, mới tạo trước.
type FetchFunc func(ctx context.Context) ([]models.Donation, error)

// Feed phát snapshot bất biến của toàn bộ collection cho mọi subscriber
// sau mỗi thay đổi. Mọi fetch + fanout chạy tuần tự trong Run nên các
// snapshot được giao theo thứ tự đơn điệu; mỗi client là một observer
// eventually-consistent của trạng thái do store nắm giữ.
type Feed struct {
	fetch   FetchFunc
	trigger chan struct{}

	mu     sync.RWMutex
	subs   map[int]func([]models.Donation)
	nextID int
}

func NewFeed(fetch FetchFunc) *Feed {
	return &Feed{
		fetch:   fetch,
		trigger: make(chan struct{}, 1),
		subs:    make(map[int]func([]models.Donation)),
	}
}

// Subscribe đăng ký một callback và trả về hàm hủy đăng ký.
// Callback được gọi từ goroutine của Run, không đồng bộ với caller.
// Snapshot đầu tiên được giao ở lần refresh kế tiếp (Notify ngay sau đây).
func (f *Feed) Subscribe(fn func([]models.Donation)) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	f.Notify()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Notify yêu cầu một lần refresh, không chặn caller.
// Nhiều Notify dồn lại trước khi Run kịp chạy sẽ gộp thành một lần fetch.
func (f *Feed) Notify() {
	select {
	case f.trigger <- struct{}{}:
	default:
	}
}

// Run là vòng lặp fetch + fanout duy nhất của feed.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.trigger:
		}

		snapshot, err := f.fetch(ctx)
		if err != nil {
			log.Printf("Feed refresh failed: %v", err)
			continue
		}

		f.mu.RLock()
		for _, fn := range f.subs {
			fn(snapshot)
		}
		f.mu.RUnlock()
	}
}

// Watch theo dõi change stream của collection để bắt cả những thay đổi
// do client khác ghi. Change stream yêu cầu replica set; nếu không mở
// được thì chỉ log và quay về chế độ refresh-sau-mỗi-lần-ghi.
func (f *Feed) Watch(ctx context.Context, coll *mongo.Collection) {
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		log.Printf("Change stream unavailable, falling back to local refresh only: %v", err)
		return
	}
	defer stream.Close(ctx)

	log.Println("Watching donation change stream")
	for stream.Next(ctx) {
		f.Notify()
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Change stream closed: %v", err)
	}
}
