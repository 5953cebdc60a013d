package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"personalpage/internal/protocol"
)

const (
	defaultQueue = 8
	pingEvery    = 25 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// Hub pushes CHANGED notices to every open page. Each subscriber has its own
// bounded queue; a subscriber that falls behind loses notices instead of
// stalling the publisher.
type Hub struct {
	log *log.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	published atomic.Uint64
	dropped   atomic.Uint64

	upgrader websocket.Upgrader
}

type subscriber struct {
	out    chan []byte
	client string
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		log:  logger,
		subs: map[*subscriber]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
	}
}

// Subscribe registers a queue of the given size. cancel is idempotent.
func (h *Hub) Subscribe(queue int) (<-chan []byte, func()) {
	if queue <= 0 {
		queue = defaultQueue
	}
	s := &subscriber{out: make(chan []byte, queue)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.out, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
		})
	}
}

// Publish never blocks.
func (h *Hub) Publish(msg protocol.ChangedMsg) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.published.Add(1)
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Published() uint64 { return h.published.Load() }
func (h *Hub) Dropped() uint64   { return h.dropped.Load() }

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out, unsubscribe := h.Subscribe(defaultQueue)
		defer unsubscribe()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
						cancel()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})

		// Reader loop. Pages only ever send an optional HELLO.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeHello {
				continue
			}
			var hello protocol.HelloMsg
			if err := json.Unmarshal(msg, &hello); err != nil {
				continue
			}
			if hello.ProtocolVersion != protocol.Version {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
				cancel()
				break
			}
			if h.log != nil {
				h.log.Printf("hello from %q", hello.Client)
			}
		}
	}
}
