package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/polymotion/animstreamd/internal/ipc"
)

// CommandChannel wraps the framed ipc.Conn between a session and its worker.
// It does not serialize concurrent callers itself — per-session dispatch
// discipline (at most one outstanding request) is the session's job, not
// the transport's, so the lock lives in internal/session where the policy
// decision belongs.
type CommandChannel struct {
	conn *ipc.Conn
}

// NewCommandChannel wraps an already-connected net.Conn.
func NewCommandChannel(c net.Conn) *CommandChannel {
	return &CommandChannel{conn: ipc.NewConn(c)}
}

// Close closes the underlying connection.
func (c *CommandChannel) Close() error { return c.conn.Close() }

// RecvHandshake reads the worker's init_success or init_error during the
// session start handshake, before any command dispatch is possible.
func (c *CommandChannel) RecvHandshake(timeout time.Duration) (*ipc.InitSuccess, *ipc.InitError, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	env, err := c.conn.Recv()
	if err != nil {
		return nil, nil, fmt.Errorf("transport: handshake recv: %w", err)
	}

	switch env.Type {
	case ipc.TypeInitSuccess:
		var ok ipc.InitSuccess
		if err := json.Unmarshal(env.Payload, &ok); err != nil {
			return nil, nil, fmt.Errorf("transport: decode init_success: %w", err)
		}
		return &ok, nil, nil
	case ipc.TypeInitError:
		var fail ipc.InitError
		if err := json.Unmarshal(env.Payload, &fail); err != nil {
			return nil, nil, fmt.Errorf("transport: decode init_error: %w", err)
		}
		return nil, &fail, nil
	default:
		return nil, nil, fmt.Errorf("transport: unexpected handshake message type %q", env.Type)
	}
}

// SendSetShm sends the shared memory layout to the worker and waits for its
// acknowledgement.
func (c *CommandChannel) SendSetShm(shm ipc.SetShm, timeout time.Duration) error {
	if err := c.conn.SendTyped(uuid.NewString(), ipc.TypeSetShm, shm); err != nil {
		return fmt.Errorf("transport: send set_shm: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	env, err := c.conn.Recv()
	if err != nil {
		return fmt.Errorf("transport: set_shm ack recv: %w", err)
	}
	if env.Type != ipc.TypeSetShmAck {
		return fmt.Errorf("transport: expected set_shm_ack, got %q", env.Type)
	}
	return nil
}

// Dispatch sends a command and waits for its single reply. Callers (the
// session) are responsible for ensuring only one Dispatch is in flight at a
// time per channel.
func (c *CommandChannel) Dispatch(method string, args json.RawMessage, timeout time.Duration) (*ipc.Result, error) {
	cmd := ipc.Command{Method: method, Args: args}
	id := uuid.NewString()
	if err := c.conn.SendTyped(id, ipc.TypeCommand, cmd); err != nil {
		return nil, fmt.Errorf("transport: send command: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	env, err := c.conn.Recv()
	if err != nil {
		return nil, fmt.Errorf("transport: dispatch recv: %w", err)
	}
	if env.Type != ipc.TypeResult {
		return nil, fmt.Errorf("transport: expected result, got %q", env.Type)
	}

	var result ipc.Result
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		return nil, fmt.Errorf("transport: decode result: %w", err)
	}
	return &result, nil
}

// SendStop sends a best-effort stop notice; the session does not wait for a
// reply, it proceeds straight to terminating the worker process.
func (c *CommandChannel) SendStop() error {
	return c.conn.SendTyped(uuid.NewString(), ipc.TypeStop, struct{}{})
}

// The methods below are the worker-side half of this same channel: the
// session dials and drives RecvHandshake/SendSetShm/Dispatch/SendStop above,
// while the worker process (internal/worker) answers with these instead of
// reaching into a raw ipc.Conn of its own.

// SendInitSuccess replies to the session's dial with the worker's frame size
// and skeleton, completing the first half of the handshake.
func (c *CommandChannel) SendInitSuccess(msg ipc.InitSuccess) error {
	if err := c.conn.SendTyped(uuid.NewString(), ipc.TypeInitSuccess, msg); err != nil {
		return fmt.Errorf("transport: send init_success: %w", err)
	}
	return nil
}

// SendInitError replies to the session's dial with a reason the worker could
// not initialize its animator, in place of SendInitSuccess.
func (c *CommandChannel) SendInitError(reason string) error {
	if err := c.conn.SendTyped(uuid.NewString(), ipc.TypeInitError, ipc.InitError{Message: reason}); err != nil {
		return fmt.Errorf("transport: send init_error: %w", err)
	}
	return nil
}

// RecvSetShm blocks for the shared memory layout the session sends once it
// has seen init_success.
func (c *CommandChannel) RecvSetShm(timeout time.Duration) (*ipc.SetShm, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	env, err := c.conn.Recv()
	if err != nil {
		return nil, fmt.Errorf("transport: recv set_shm: %w", err)
	}
	if env.Type != ipc.TypeSetShm {
		return nil, fmt.Errorf("transport: expected set_shm, got %q", env.Type)
	}

	var shm ipc.SetShm
	if err := json.Unmarshal(env.Payload, &shm); err != nil {
		return nil, fmt.Errorf("transport: decode set_shm: %w", err)
	}
	return &shm, nil
}

// SendSetShmAck acknowledges a received SetShm, unblocking the session's
// SendSetShm call.
func (c *CommandChannel) SendSetShmAck() error {
	return c.conn.SendTyped(uuid.NewString(), ipc.TypeSetShmAck, struct{}{})
}

// RecvCommand blocks for the next command or stop notice from the session.
// The returned envelope's Type is either ipc.TypeCommand or ipc.TypeStop.
func (c *CommandChannel) RecvCommand() (*ipc.Envelope, error) {
	env, err := c.conn.Recv()
	if err != nil {
		return nil, fmt.Errorf("transport: recv command: %w", err)
	}
	return env, nil
}

// SendResult replies to a dispatched command with its result, keyed by the
// same id the command envelope carried.
func (c *CommandChannel) SendResult(id string, result ipc.Result) error {
	if err := c.conn.SendTyped(id, ipc.TypeResult, result); err != nil {
		return fmt.Errorf("transport: send result: %w", err)
	}
	return nil
}

