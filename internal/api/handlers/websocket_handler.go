// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"food-bridge-api-server/internal/auth"
	"food-bridge-api-server/internal/socket"
	"food-bridge-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Thời gian chờ tối đa cho một tin nhắn từ client.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub     *socket.Hub
	Gateway *store.Gateway
}

// ServeWs xử lý các yêu cầu kết nối WebSocket.
// Client nhận ngay snapshot hiện tại khi kết nối, sau đó nhận
// snapshot mới qua Hub.Broadcast mỗi khi collection thay đổi.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims := &auth.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return auth.JwtSecret, nil
	})

	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	h.Hub.Register(userID, conn)

	defer func() {
		h.Hub.Unregister(userID)
		conn.Close()
	}()

	// Gửi snapshot ban đầu để client không phải chờ thay đổi kế tiếp.
	// Đi qua Hub.Send để mọi writer trên kết nối này được tuần tự hóa.
	if donations, err := h.Gateway.FetchAll(context.Background()); err == nil {
		message, _ := json.Marshal(map[string]interface{}{
			"event":     "donations_snapshot",
			"donations": donations,
		})
		if err := h.Hub.Send(userID, message); err != nil {
			log.Printf("Failed to send initial snapshot to %s: %v", userID, err)
			return
		}
	}

	// Heartbeat: client gửi PING, chúng ta reset deadline.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Vòng Lặp Đọc (Read Loop)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}
	}
}
