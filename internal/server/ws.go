package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// PoseHandler broadcasts the tracked marker pose via WebSocket.
type PoseHandler struct {
	feed    *Feed
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	done    chan struct{}
	once    sync.Once
}

// NewPoseHandler creates a PoseHandler and starts its broadcast loop.
func NewPoseHandler(feed *Feed) *PoseHandler {
	h := &PoseHandler{
		feed:    feed,
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *PoseHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop.
func (h *PoseHandler) Close() {
	h.once.Do(func() { close(h.done) })
}

// broadcast sends each new pose update to all connected clients.
func (h *PoseHandler) broadcast() {
	ticker := time.NewTicker(h.feed.Interval())
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		update, seq := h.feed.Pose()
		if seq == sent || h.Clients() == 0 {
			continue
		}
		sent = seq

		msg, err := json.Marshal(update)
		if err != nil {
			log.Printf("encode pose: %v", err)
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
