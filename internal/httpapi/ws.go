package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// closeUnknownSession is a private-use WebSocket close code (4000 is the
// first number applications may pick per RFC 6455 §7.4.2) sent when {id}
// doesn't resolve to a running session. The upgrade itself still succeeds
// since the id isn't known until after the handshake completes.
const closeUnknownSession = 4000

const (
	wsWriteWait = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// handleWebSocket upgrades the connection and streams raw pose frames for
// the named session as binary messages, one per broadcast tick, until the
// client disconnects or the session is torn down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "sessionId", id, "error", err)
		return
	}
	defer conn.Close()

	sess, err := s.registry.Get(id)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeUnknownSession, err.Error()),
			time.Now().Add(wsWriteWait))
		return
	}

	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub.ID())

	// A reader goroutine is required even though the client never sends
	// anything meaningful: it is what notices the connection closed and
	// unblocks the write loop below, and it keeps gorilla/websocket's
	// internal control-frame handling (pong responses) running.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Frames():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-clientGone:
			return
		}
	}
}
