// Package session implements the per-session runtime: spawning an isolated
// pose producer worker process, completing its two-phase startup handshake,
// running the broadcast loop that fans frames out to subscribers, and
// serializing command dispatch across the worker boundary.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/ipc"
	"github.com/polymotion/animstreamd/internal/logging"
	"github.com/polymotion/animstreamd/internal/shmem"
	"github.com/polymotion/animstreamd/internal/transport"
)

// Config describes how to start one session's worker.
type Config struct {
	ID         string
	Kind       string // "FK" or "VAE"
	SourcePath string
	FPS        float64

	RunDir            string // directory for the command-channel socket and shm backing file
	SlotCount         int    // >= 3
	HandshakeTimeout  time.Duration
	DispatchTimeout   time.Duration
	StopGracePeriod   time.Duration
}

// DefaultConfig fills in the parts of Config a caller rarely needs to
// override.
func DefaultConfig(id, kind, sourcePath string, fps float64) Config {
	return Config{
		ID:               id,
		Kind:             kind,
		SourcePath:       sourcePath,
		FPS:              fps,
		RunDir:           os.TempDir(),
		SlotCount:        3,
		HandshakeTimeout: 60 * time.Second,
		DispatchTimeout:  5 * time.Second,
		StopGracePeriod:  3 * time.Second,
	}
}

// Session is one running pose-streaming session: one worker process, one
// shared memory region, one command channel, one notify channel, and the
// set of subscribers currently receiving its frames.
type Session struct {
	cfg       Config
	skeleton  animator.Skeleton
	startedAt time.Time

	cmd          *exec.Cmd
	listenerPath string
	cmdChan      *transport.CommandChannel
	notifyChan   *transport.NotifyChannel
	region       *shmem.Region
	ready        *transport.ReadyChannel

	subs subscriberSet

	cmdMu sync.Mutex // serializes Dispatch: at most one outstanding request

	stopOnce sync.Once
	done     chan struct{}
}

var baseLog = logging.L("session")

// Start spawns the worker process for cfg, completes the startup handshake,
// allocates shared memory, and launches the broadcast loop. On any failure
// the worker process (if started) is killed and all resources released
// before the error is returned.
func Start(ctx context.Context, cfg Config, workerBinary string) (*Session, error) {
	log := logging.WithSession(baseLog, cfg.ID)

	listenerPath := transport.ListenerPath(cfg.RunDir, cfg.ID)
	transport.CleanupListener(listenerPath)

	listener, err := transport.Listen(listenerPath)
	if err != nil {
		return nil, fmt.Errorf("session: listen: %w", err)
	}
	defer listener.Close()

	cmd := exec.CommandContext(ctx, workerBinary, "internal-worker",
		"--kind", cfg.Kind,
		"--source", cfg.SourcePath,
		"--fps", strconv.FormatFloat(cfg.FPS, 'f', -1, 64),
		"--listen", listenerPath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: start worker: %w", err)
	}

	accepted := make(chan netConnOrErr, 2)
	go acceptTwo(listener, accepted)

	cmdConn, notifyConn, err := collectHandshakeConns(accepted, cfg.HandshakeTimeout)
	if err != nil {
		killWorker(cmd)
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: %w: %w", ErrHandshakeTimeout, err)
	}

	cmdChan := transport.NewCommandChannel(cmdConn)
	notifyChan := transport.NewNotifyChannel(notifyConn)

	okInit, failInit, err := cmdChan.RecvHandshake(cfg.HandshakeTimeout)
	if err != nil {
		killWorker(cmd)
		cmdChan.Close()
		notifyChan.Close()
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: %w: %w", ErrHandshakeTimeout, err)
	}
	if failInit != nil {
		killWorker(cmd)
		cmdChan.Close()
		notifyChan.Close()
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("%w: %s", ErrInitFailure, failInit.Message)
	}

	var skeleton animator.Skeleton
	if err := json.Unmarshal(okInit.Skeleton, &skeleton); err != nil {
		killWorker(cmd)
		cmdChan.Close()
		notifyChan.Close()
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: decode skeleton: %w", err)
	}

	region, err := shmem.Create(cfg.RunDir, cfg.SlotCount, okInit.FrameSize)
	if err != nil {
		killWorker(cmd)
		cmdChan.Close()
		notifyChan.Close()
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: create shared memory: %w", err)
	}

	if err := cmdChan.SendSetShm(ipc.SetShm{
		Path:      region.Path(),
		SlotCount: region.SlotCount(),
		SlotSize:  region.SlotSize(),
	}, cfg.HandshakeTimeout); err != nil {
		killWorker(cmd)
		cmdChan.Close()
		notifyChan.Close()
		region.Close()
		region.Unlink()
		transport.CleanupListener(listenerPath)
		return nil, fmt.Errorf("session: %w: %w", ErrHandshakeTimeout, err)
	}

	s := &Session{
		cfg:          cfg,
		skeleton:     skeleton,
		startedAt:    time.Now(),
		cmd:          cmd,
		listenerPath: listenerPath,
		cmdChan:      cmdChan,
		notifyChan:   notifyChan,
		region:       region,
		ready:        transport.NewReadyChannel(cfg.SlotCount),
		subs:         *newSubscriberSet(),
		done:         make(chan struct{}),
	}

	go s.pumpNotify(log)
	go s.broadcastLoop(log)

	log.Info("session started", "kind", cfg.Kind, "frameSize", okInit.FrameSize, "slots", cfg.SlotCount)
	return s, nil
}

type netConnOrErr struct {
	conn net.Conn
	err  error
}

func acceptTwo(listener net.Listener, out chan<- netConnOrErr) {
	for i := 0; i < 2; i++ {
		c, err := listener.Accept()
		out <- netConnOrErr{conn: c, err: err}
		if err != nil {
			return
		}
	}
}

func collectHandshakeConns(accepted <-chan netConnOrErr, timeout time.Duration) (cmdConn, notifyConn net.Conn, err error) {
	deadline := time.After(timeout)
	for i := 0; i < 2; i++ {
		select {
		case res := <-accepted:
			if res.err != nil {
				return nil, nil, res.err
			}
			if i == 0 {
				cmdConn = res.conn
			} else {
				notifyConn = res.conn
			}
		case <-deadline:
			return nil, nil, fmt.Errorf("session: timed out waiting for worker to connect")
		}
	}
	return cmdConn, notifyConn, nil
}

func killWorker(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_, _ = cmd.Process.Wait()
}

func (s *Session) pumpNotify(log *slog.Logger) {
	if err := s.notifyChan.Pump(s.ready); err != nil {
		log.Debug("notify channel closed", "error", err)
	}
}

// broadcastLoop waits for each newly-ready slot index and fans the frame
// out to every subscriber. It exits when the session's done channel closes.
func (s *Session) broadcastLoop(log *slog.Logger) {
	for {
		idx, err := s.ready.Next(s.done)
		if err != nil {
			return
		}

		slot, err := s.region.Slot(idx)
		if err != nil {
			log.Warn("invalid slot index from worker", "index", idx, "error", err)
			continue
		}

		frame := make([]byte, len(slot))
		copy(frame, slot)

		s.subs.broadcast(frame)
	}
}

// Skeleton returns the skeleton reported during the startup handshake.
func (s *Session) Skeleton() animator.Skeleton { return s.skeleton }

// ID returns the session's identifier.
func (s *Session) ID() string { return s.cfg.ID }

// WorkerPID returns the pose producer worker's OS process id, used for
// per-session resource stats.
func (s *Session) WorkerPID() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Subscribe attaches a new subscriber and returns it; callers must call
// Unsubscribe when the consumer (typically a WebSocket connection) goes
// away.
func (s *Session) Subscribe() *Subscriber {
	sub := newSubscriber(uuid.NewString())
	s.subs.add(sub)
	return sub
}

// Unsubscribe detaches a subscriber.
func (s *Session) Unsubscribe(id string) {
	s.subs.remove(id)
}

// SubscriberCount reports how many subscribers are currently attached.
func (s *Session) SubscriberCount() int { return s.subs.count() }

// Dispatch sends method/args to the worker and waits for its reply,
// enforcing that only one request is ever outstanding on the command
// channel at a time — the lock is what turns a sequential, otherwise
// unsynchronized connection into request/reply pairs with no possibility of
// a reply being misattributed to the wrong call.
func (s *Session) Dispatch(method string, args json.RawMessage) (json.RawMessage, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	result, err := s.cmdChan.Dispatch(method, args, s.cfg.DispatchTimeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w", ErrDispatchTimeout, err)
		}
		// Anything else — EOF, a reset connection, a closed socket — means
		// the worker process is gone or the channel is otherwise unusable,
		// whether or not Stop() was the one that closed it.
		return nil, fmt.Errorf("%w: %w", ErrBrokenChannel, err)
	}

	if result.CapabilityDenied {
		return nil, ErrCapabilityDenied
	}
	if result.Error != "" {
		return nil, &EngineError{Message: result.Error}
	}
	return result.Value, nil
}

// Stop tears the session down: it notifies the worker, waits briefly for a
// graceful exit, force-kills if needed, then releases every resource the
// session owns. Stop is idempotent and safe to call more than once or
// concurrently with itself.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		log := logging.WithSession(baseLog, s.cfg.ID)
		close(s.done)

		_ = s.cmdChan.SendStop()

		exited := make(chan struct{})
		go func() {
			_, _ = s.cmd.Process.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(s.cfg.StopGracePeriod):
			_ = s.cmd.Process.Kill()
			<-exited
		}

		s.cmdChan.Close()
		s.notifyChan.Close()
		s.subs.closeAll()

		s.region.Close()
		s.region.Unlink()
		transport.CleanupListener(s.listenerPath)

		log.Info("session stopped")
	})
}
