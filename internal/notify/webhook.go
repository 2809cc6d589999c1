// server/internal/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Webhook gửi các sự kiện nghiệp vụ (donation mới, đã được request...)
// đến một endpoint ngoài (n8n, Slack...). Rỗng URL = tắt.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send đẩy một event JSON. Lỗi chỉ được log — thông báo ngoài luồng
// không được phép làm hỏng thao tác nghiệp vụ đã thành công.
func (w *Webhook) Send(event string, payload interface{}) {
	if w.URL == "" {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  payload,
	})
	if err != nil {
		log.Printf("Webhook marshal failed for %s: %v", event, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
		if err != nil {
			log.Printf("Webhook request build failed for %s: %v", event, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.Client.Do(req)
		if err != nil {
			log.Printf("Webhook delivery failed for %s: %v", event, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("Webhook delivery for %s returned %s", event, resp.Status)
		}
	}()
}

// String để debug/log cấu hình lúc khởi động.
func (w *Webhook) String() string {
	if w.URL == "" {
		return "webhook disabled"
	}
	return fmt.Sprintf("webhook -> %s", w.URL)
}
