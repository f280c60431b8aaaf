package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// ProgressEvent is the single change stream consumed by the operator UI:
// one push channel for batch progress instead of per-feature
// poll-plus-subscription pairs.
type ProgressEvent struct {
	Type      string `json:"type"`
	ProcessID string `json:"process_id,omitempty"`
	SyncType  string `json:"sync_type,omitempty"`
	Status    string `json:"status,omitempty"`
	Processed int    `json:"processed,omitempty"`
	Updated   int    `json:"updated,omitempty"`
	Errors    int    `json:"errors,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 16),
	}
}

// Publish serializes a progress event onto the broadcast channel without
// blocking the sync engine that emits it.
func (h *Hub) Publish(event ProgressEvent) {
	event.Type = "sync_progress"
	msg, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		// drop rather than stall a sync batch on a slow consumer
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS Client Connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}
