package announce

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/pkg/logger"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

// Message is one announcement as streamed to feed subscribers.
type Message struct {
	Target string    `json:"target"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

type subscriber struct {
	channel string // empty receives every channel
	out     chan Message
}

// Hub broadcasts announcements to websocket subscribers. A subscriber that
// falls behind loses messages rather than blocking the game.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	next atomic.Uint64

	dropped  atomic.Uint64
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHub returns an empty hub.
func NewHub(l logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		logger: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Send implements Sender.
func (h *Hub) Send(_ context.Context, target, text string) error {
	msg := Message{Target: target, Text: text, At: time.Now().UTC()}
	ch := names.Channel(target)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.channel != "" && s.channel != ch {
			continue
		}
		select {
		case s.out <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a listener for channel, or for everything when channel
// is empty. The returned func unsubscribes and closes the stream.
func (h *Hub) Subscribe(channel string) (<-chan Message, func()) {
	s := &subscriber{out: make(chan Message, subscriberBuffer)}
	if channel != "" {
		s.channel = names.Channel(channel)
	}
	id := h.next.Add(1)

	h.mu.Lock()
	h.subs[id] = s
	h.mu.Unlock()

	var once sync.Once
	return s.out, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(s.out)
		})
	}
}

// Subscribers is the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts messages lost to slow subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Handler upgrades GET requests to a websocket streaming JSON Messages.
// The optional "channel" query parameter narrows the stream.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		msgs, cancel := h.Subscribe(r.URL.Query().Get("channel"))
		defer cancel()

		// The reader only notices the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case m := <-msgs:
				b, err := json.Marshal(m)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					h.logger.Debug(r.Context(), "feed write failed", logger.Error(err))
					return
				}
			}
		}
	}
}
