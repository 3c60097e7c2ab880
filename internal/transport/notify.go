package transport

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/polymotion/animstreamd/internal/ipc"
)

// NotifyChannel is the one-directional connection a worker uses to announce
// freshly written frame slots to its session. It is kept separate from the
// CommandChannel so a burst of frame_ready messages never has to queue
// behind (or be queued behind) a request/reply command dispatch.
type NotifyChannel struct {
	conn *ipc.Conn
}

// NewNotifyChannel wraps an already-connected net.Conn.
func NewNotifyChannel(c net.Conn) *NotifyChannel {
	return &NotifyChannel{conn: ipc.NewConn(c)}
}

// Close closes the underlying connection.
func (n *NotifyChannel) Close() error { return n.conn.Close() }

// Announce tells the session a slot was just written. Called by the worker
// from its tick loop; never blocks on a reply.
func (n *NotifyChannel) Announce(slotIndex int) error {
	return n.conn.SendTyped(uuid.NewString(), ipc.TypeFrameReady, ipc.FrameReady{SlotIndex: slotIndex})
}

// Pump reads frame_ready messages until the connection closes, forwarding
// each slot index into ready. Runs in its own goroutine on the session side
// for the lifetime of the session.
func (n *NotifyChannel) Pump(ready *ReadyChannel) error {
	for {
		env, err := n.conn.Recv()
		if err != nil {
			return fmt.Errorf("transport: notify pump: %w", err)
		}
		if env.Type != ipc.TypeFrameReady {
			continue
		}
		var msg ipc.FrameReady
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			continue
		}
		ready.Offer(msg.SlotIndex)
	}
}
