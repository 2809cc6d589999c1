// server/internal/websocket/hub_test.go
package socket

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestConn dựng một cặp kết nối WebSocket thật (phía server + phía
// client) qua httptest, để test đi qua đúng đường ghi của gorilla.
func dialTestConn(t *testing.T) (serverConn, clientConn *websocket.Conn) {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	t.Cleanup(func() { serverConn.Close() })
	return serverConn, clientConn
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return message
}

func TestSendToRegisteredClient(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialTestConn(t)
	hub.Register("USR-DONOR", serverConn)

	want := []byte(`{"event":"donation_requested"}`)
	if err := hub.Send("USR-DONOR", want); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := readMessage(t, clientConn); !bytes.Equal(got, want) {
		t.Errorf("client received %q, want %q", got, want)
	}
}

func TestSendToAbsentClient(t *testing.T) {
	hub := NewHub()
	// Client offline không phải là lỗi: thông báo chỉ là best-effort.
	if err := hub.Send("USR-GONE", []byte("hello")); err != nil {
		t.Fatalf("Send to absent client returned error: %v", err)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	serverA, clientA := dialTestConn(t)
	serverB, clientB := dialTestConn(t)
	hub.Register("USR-A", serverA)
	hub.Register("USR-B", serverB)

	want := []byte(`{"event":"donations_snapshot"}`)
	hub.Broadcast(want)

	for name, conn := range map[string]*websocket.Conn{"USR-A": clientA, "USR-B": clientB} {
		if got := readMessage(t, conn); !bytes.Equal(got, want) {
			t.Errorf("%s received %q, want %q", name, got, want)
		}
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialTestConn(t)
	hub.Register("USR-A", serverConn)
	hub.Unregister("USR-A")

	if err := hub.Send("USR-A", []byte("after unregister")); err != nil {
		t.Fatalf("Send after unregister returned error: %v", err)
	}

	clientConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := clientConn.ReadMessage(); err == nil {
		t.Error("client still received a message after unregister")
	}
}

// Ghi có chủ đích và broadcast snapshot chạy từ các goroutine khác nhau
// lên cùng một kết nối; hub phải tuần tự hóa chúng thay vì để gorilla
// panic vì hai writer đồng thời.
func TestConcurrentSendAndBroadcast(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialTestConn(t)
	hub.Register("USR-A", serverConn)

	// Drain phía client để các ghi phía server không bị nghẽn buffer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := clientConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	payload := bytes.Repeat([]byte("x"), 64*1024)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := hub.Send("USR-A", payload); err != nil {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hub.Broadcast(payload)
		}
	}()
	wg.Wait()

	serverConn.Close()
	<-done
}
