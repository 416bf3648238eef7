package progress

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin filtering happens in the router's CORS layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSHandler upgrades a request to a websocket and streams a run's events to
// the client. The connection closes after the final result message, when
// the client goes away, or when the request context is done.
func WSHandler(b *Broker, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Warn("progress: websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		events, cancel := b.Subscribe(token)
		defer cancel()

		// Detect client disconnects; no inbound messages are expected.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					zap.L().Warn("progress: websocket write failed",
						zap.String("token", token),
						zap.Error(err),
					)
					return
				}
				if ev.Type == EventFinal {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			case <-clientGone:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
