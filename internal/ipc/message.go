// Package ipc implements the length-prefixed JSON framing used on the
// command channel between a session and its pose producer worker process.
package ipc

import "encoding/json"

// Message type constants exchanged on the command channel.
const (
	TypeInitSuccess = "init_success"
	TypeInitError   = "init_error"
	TypeSetShm      = "set_shm"
	TypeSetShmAck   = "set_shm_ack"
	TypeCommand     = "command"
	TypeResult      = "result"
	TypeStop        = "stop"
	TypeFrameReady  = "frame_ready"
)

// MaxMessageSize is the maximum size of a single framed JSON message (16MB).
// Pose data never travels on this channel, so this only bounds control
// payloads (skeleton descriptions, command args/results).
const MaxMessageSize = 16 * 1024 * 1024

// Envelope is the wire-format wrapper for every command-channel message.
type Envelope struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// InitSuccess is sent by the worker once its animator has loaded, before any
// shared memory region exists.
type InitSuccess struct {
	FrameSize int             `json:"frameSize"`
	Skeleton  json.RawMessage `json:"skeleton"`
}

// InitError is sent by the worker when Initialize fails; the session tears
// the worker down without ever sending set_shm.
type InitError struct {
	Message string `json:"message"`
}

// SetShm tells the worker which shared memory region and slot layout to
// write frames into. Sent exactly once, after InitSuccess.
type SetShm struct {
	Path      string `json:"path"`
	SlotCount int    `json:"slotCount"`
	SlotSize  int    `json:"slotSize"`
}

// FrameReady is sent by the worker on a dedicated connection, separate from
// the command channel, each time it has written a new frame into a shared
// memory slot. It carries no reply; the session offers each announced slot
// index to its ready-index channel in arrival order.
type FrameReady struct {
	SlotIndex int `json:"slotIndex"`
}

// Command is a dispatched request: method name plus JSON-encoded arguments.
type Command struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Result is a command's reply: either Value is set, or Error is set (never
// both). CapabilityDenied is a distinct flag so the session can translate it
// to the right error type without string-matching Error.
type Result struct {
	Value            json.RawMessage `json:"value,omitempty"`
	Error            string          `json:"error,omitempty"`
	CapabilityDenied bool            `json:"capabilityDenied,omitempty"`
}
