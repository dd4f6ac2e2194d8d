package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/middleware"
	"github.com/jiwuchat/jiwuchat-shell/internal/realtime"
)

// Handler upgrades frontend connections into the hub. Pushed callbacks carry
// login tokens, so only the webview and the allowed origins may connect.
func Handler(hub *realtime.Hub, allowed middleware.OriginSet) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return allowed.AllowsExact(r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			clientID = "client-" + uuid.New().String()[:8]
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warnf("[websocket] upgrade error: %v", err)
			return
		}
		logging.Debugf("[websocket] serving client %s", clientID)
		realtime.ServeWS(hub, conn, clientID)
	}
}
