package ws

import (
	"log"
	"net/http"
	"strconv"
)

// Handler upgrades the connection and parks it in the caller's room until
// the client goes away. Traffic is one way: the server pushes transcription
// notifications, inbound messages are discarded.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, err := strconv.Atoi(r.Header.Get("X-User-ID"))
		if err != nil {
			http.Error(w, "missing user", http.StatusUnauthorized)
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "ws upgrade failed", http.StatusBadRequest)
			return
		}

		log.Printf("[ws][OPEN] user=%d", userID)
		hub.Register(userID, conn)
		defer func() {
			hub.Unregister(userID, conn)
			log.Printf("[ws][CLOSE] user=%d", userID)
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
