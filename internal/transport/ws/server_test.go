package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"personalpage/internal/protocol"
)

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers=%d want %d", h.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PushesChanged(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello, _ := json.Marshal(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Client: "test"})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	waitSubscribers(t, h, 1)

	h.Publish(protocol.NewChanged(protocol.ScopePosts, 1700000000000))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := protocol.Validate(protocol.SchemaChanged, raw); err != nil {
		t.Fatalf("changed message does not match schema: %v\n%s", err, raw)
	}
	var got protocol.ChangedMsg
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scope != protocol.ScopePosts || got.At != 1700000000000 {
		t.Fatalf("got=%+v", got)
	}

	_ = conn.Close()
	waitSubscribers(t, h, 0)
}

func TestHub_BadVersionCloses(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"HELLO","protocol_version":"0"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe(2)
	defer cancel()

	for i := 0; i < 5; i++ {
		h.Publish(protocol.NewChanged(protocol.ScopeProfile, int64(i)))
	}
	if len(ch) != 2 {
		t.Fatalf("queued=%d want 2", len(ch))
	}
	if h.Dropped() != 3 || h.Published() != 5 {
		t.Fatalf("dropped=%d published=%d", h.Dropped(), h.Published())
	}

	cancel()
	cancel()
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers=%d", h.Subscribers())
	}
}
