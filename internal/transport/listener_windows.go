//go:build windows

package transport

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// ListenerPath returns the named pipe path for a session's command channel.
func ListenerPath(_ /* dir unused on windows */, sessionID string) string {
	return fmt.Sprintf(`\\.\pipe\animstreamd-%s`, sessionID)
}

// CleanupListener is a no-op on Windows: named pipes have no filesystem
// entry to remove once the listener closes.
func CleanupListener(string) {}

// pipeSecurity restricts the command channel pipe to the owning session:
// SYSTEM gets full control, Interactive Users get read/write. There is no
// remote-user scenario here (worker and session are on the same host), but
// the descriptor still keeps other local accounts off the pipe.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

// Listen opens a per-session command channel listener at path (a named
// pipe path, e.g. \\.\pipe\animstreamd-<id>).
func Listen(path string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	l, err := winio.ListenPipe(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: listen pipe %s: %w", path, err)
	}
	return l, nil
}

// Dial connects to a command channel listener as the worker process does.
func Dial(path string) (net.Conn, error) {
	return winio.DialPipe(path, nil)
}
