package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub groups open connections by user id so a transcription result reaches
// every tab the owner has open, and nobody else.
type Hub struct {
	mu    sync.RWMutex
	users map[int]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	log.Printf("[hub] init")
	return &Hub{
		users: make(map[int]map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*websocket.Conn]bool)
		log.Printf("[hub] create room user=%d", userID)
	}

	h.users[userID][conn] = true
	log.Printf("[hub] register user=%d conns=%d", userID, len(h.users[userID]))
}

func (h *Hub) Unregister(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[userID]
	if !ok {
		return
	}

	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		conn.Close()
		log.Printf("[hub] unregister user=%d conns=%d", userID, len(conns))
	}

	if len(conns) == 0 {
		delete(h.users, userID)
		log.Printf("[hub] delete room user=%d", userID)
	}
}

func (h *Hub) SendToUser(userID int, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.users[userID]
	if !ok || len(conns) == 0 {
		log.Printf("[hub][SEND-SKIP] user=%d reason=no_active_connections", userID)
		return
	}

	log.Printf("[hub][SEND] user=%d conns=%d bytes=%d", userID, len(conns), len(msg))

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[hub][SEND-ERR] user=%d err=%v", userID, err)
		}
	}
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
