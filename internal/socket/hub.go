// server/internal/websocket/hub.go
package socket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// client bọc một kết nối cùng mutex riêng của nó. gorilla/websocket chỉ
// cho phép đúng một writer tại một thời điểm trên mỗi kết nối, trong khi
// handler HTTP và vòng fanout snapshot ghi từ các goroutine khác nhau.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub quản lý tất cả các client WebSocket.
type Hub struct {
	// clients là một map để lưu trữ các kết nối, key là userID.
	clients map[string]*client
	// mu là một Mutex để đảm bảo an toàn khi truy cập map clients từ nhiều goroutine.
	mu sync.RWMutex
}

// NewHub tạo một Hub mới.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
	}
}

// Register thêm một client mới vào Hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = &client{conn: conn}
	log.Printf("WebSocket client registered: %s", userID)
}

// Unregister xóa một client khỏi Hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		log.Printf("WebSocket client unregistered: %s", userID)
	}
}

// Send gửi một tin nhắn đến một client cụ thể.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	cl, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		// Không tìm thấy client (có thể đã offline), không coi đây là lỗi nghiêm trọng.
		log.Printf("WebSocket client not found, could not send message: %s", userID)
		return nil
	}

	// Gửi tin nhắn JSON
	return cl.write(message)
}

// Broadcast gửi một tin nhắn đến tất cả các client đang kết nối.
// Dùng để đẩy snapshot donations mỗi khi collection thay đổi.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	clients := make(map[string]*client, len(h.clients))
	for userID, cl := range h.clients {
		clients[userID] = cl
	}
	h.mu.RUnlock()

	for userID, cl := range clients {
		if err := cl.write(message); err != nil {
			log.Printf("Failed to broadcast to %s: %v", userID, err)
		}
	}
}
