// Package worker implements the pose producer: the isolated child process
// that loads one animator, ticks it at a configurable frame rate, writes
// each resulting pose into a rotating shared memory slot, and answers
// commands dispatched from its session over a private command channel.
package worker

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/animator/fkanim"
	"github.com/polymotion/animstreamd/internal/animator/vaeanim"
	"github.com/polymotion/animstreamd/internal/ipc"
	"github.com/polymotion/animstreamd/internal/logging"
	"github.com/polymotion/animstreamd/internal/shmem"
	"github.com/polymotion/animstreamd/internal/transport"
)

var log = logging.L("worker")

// handshakeTimeout bounds how long the worker waits for the session to send
// set_shm after init_success; the session side enforces its own symmetric
// timeout via config.HandshakeTimeoutSeconds.
const handshakeTimeout = 60 * time.Second

// Config configures one worker process run.
type Config struct {
	Kind       string // "FK" or "VAE"
	SourcePath string
	FPS        float64
	ListenPath string
}

// newAnimator selects the concrete Adapter for Kind. Unknown kinds are a
// configuration error caught here rather than deep inside dispatch.
func newAnimator(kind string) (animator.Adapter, error) {
	switch kind {
	case "FK":
		return fkanim.New(), nil
	case "VAE":
		return vaeanim.New(), nil
	default:
		return nil, fmt.Errorf("worker: unknown animator kind %q", kind)
	}
}

// Run dials the session's listener, completes the two-phase startup
// handshake, and then runs the tick loop and command dispatch loop until
// the session sends stop or the connection breaks. It returns nil on a
// clean stop.
func Run(cfg Config) error {
	conn1, err := transport.Dial(cfg.ListenPath)
	if err != nil {
		return fmt.Errorf("worker: dial command channel: %w", err)
	}
	conn2, err := transport.Dial(cfg.ListenPath)
	if err != nil {
		conn1.Close()
		return fmt.Errorf("worker: dial notify channel: %w", err)
	}

	cmdChan := transport.NewCommandChannel(conn1)
	notifyChan := transport.NewNotifyChannel(conn2)
	defer cmdChan.Close()
	defer notifyChan.Close()

	anim, err := newAnimator(cfg.Kind)
	if err != nil {
		sendInitError(cmdChan, err)
		return err
	}

	skeleton, err := anim.Initialize(cfg.SourcePath, cfg.FPS)
	if err != nil {
		sendInitError(cmdChan, err)
		return fmt.Errorf("worker: initialize: %w", err)
	}

	skeletonRaw, err := json.Marshal(skeleton)
	if err != nil {
		sendInitError(cmdChan, err)
		return fmt.Errorf("worker: marshal skeleton: %w", err)
	}

	if err := cmdChan.SendInitSuccess(ipc.InitSuccess{
		FrameSize: skeleton.FrameSize(),
		Skeleton:  skeletonRaw,
	}); err != nil {
		return fmt.Errorf("worker: send init_success: %w", err)
	}

	region, err := awaitSetShm(cmdChan, skeleton.FrameSize())
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer region.Close()

	w := &runner{
		anim:       anim,
		skeleton:   skeleton,
		region:     region,
		notifyChan: notifyChan,
		cmdChan:    cmdChan,
		fps:        cfg.FPS,
	}
	w.dispatchTable = buildDispatchTable(anim)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.tickLoop(stop)
	}()

	err = w.commandLoop(stop)
	close(stop)
	wg.Wait()
	return err
}

func sendInitError(c *transport.CommandChannel, cause error) {
	_ = c.SendInitError(cause.Error())
}

func awaitSetShm(c *transport.CommandChannel, frameSize int) (*shmem.Region, error) {
	msg, err := c.RecvSetShm(handshakeTimeout)
	if err != nil {
		return nil, err
	}
	if msg.SlotSize != frameSize {
		return nil, fmt.Errorf("set_shm slot size %d does not match frame size %d", msg.SlotSize, frameSize)
	}

	region, err := shmem.Open(msg.Path, msg.SlotCount, msg.SlotSize)
	if err != nil {
		return nil, fmt.Errorf("open shared memory: %w", err)
	}

	if err := c.SendSetShmAck(); err != nil {
		region.Close()
		return nil, fmt.Errorf("send set_shm_ack: %w", err)
	}
	return region, nil
}

// runner holds the mutable state the tick loop and command loop share.
type runner struct {
	anim     animator.Adapter
	skeleton animator.Skeleton
	region   *shmem.Region

	notifyChan *transport.NotifyChannel
	cmdChan    *transport.CommandChannel

	fps           float64
	fpsMu         sync.Mutex
	nextSlot      atomic.Int64
	paused        atomic.Bool
	dispatchTable map[string]animator.CommandHandler
}

// pausedTickInterval is how long tickLoop sleeps between checks while
// paused, instead of writing and announcing a frozen frame every tick.
const pausedTickInterval = 100 * time.Millisecond

func (w *runner) currentFPS() float64 {
	w.fpsMu.Lock()
	defer w.fpsMu.Unlock()
	if w.fps <= 0 {
		return 30
	}
	return w.fps
}

func (w *runner) setFPS(fps float64) {
	w.fpsMu.Lock()
	w.fps = fps
	w.fpsMu.Unlock()
}

// tickLoop writes one frame per tick into the next rotating slot and
// announces it, sleeping to the configured cadence between ticks. It never
// blocks on a slow subscriber: the slot it writes into is always at least
// two ticks behind the slot a session might currently be reading, because
// there are always at least 3 slots and the announce+read happens within a
// tick period.
func (w *runner) tickLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if w.paused.Load() {
			select {
			case <-stop:
				return
			case <-time.After(pausedTickInterval):
			}
			continue
		}

		idx := int(w.nextSlot.Add(1)-1) % w.region.SlotCount()
		slot, err := w.region.Slot(idx)
		if err != nil {
			log.Error("invalid slot index", "index", idx, "error", err)
			return
		}
		if err := w.anim.WriteFrame(slot); err != nil {
			log.Error("write frame failed, terminating worker", "error", err)
			// A write_frame failure is unrecoverable: force the command
			// loop's blocked recv to return an error so Run exits (closing
			// the SHM handle via its deferred region.Close) instead of the
			// process silently going quiet while still answering commands.
			w.cmdChan.Close()
			return
		}
		if err := w.notifyChan.Announce(idx); err != nil {
			log.Debug("announce failed, session likely gone", "error", err)
			return
		}

		select {
		case <-stop:
			return
		case <-time.After(time.Duration(float64(time.Second) / w.currentFPS())):
		}
	}
}

// commandLoop reads one command at a time and replies before reading the
// next; the session's own dispatch lock guarantees it never has two
// requests in flight, so this loop is always strictly request-then-reply.
func (w *runner) commandLoop(stop <-chan struct{}) error {
	for {
		env, err := w.cmdChan.RecvCommand()
		if err != nil {
			return fmt.Errorf("command loop recv: %w", err)
		}

		switch env.Type {
		case ipc.TypeStop:
			return nil

		case ipc.TypeCommand:
			var cmd ipc.Command
			if err := json.Unmarshal(env.Payload, &cmd); err != nil {
				w.replyError(env.ID, fmt.Sprintf("malformed command: %v", err))
				continue
			}
			w.handleCommand(env.ID, cmd)

		default:
			w.replyError(env.ID, fmt.Sprintf("unexpected message type %q", env.Type))
		}
	}
}

func (w *runner) replyError(id, msg string) {
	_ = w.cmdChan.SendResult(id, ipc.Result{Error: msg})
}

func (w *runner) replyValue(id string, value json.RawMessage) {
	_ = w.cmdChan.SendResult(id, ipc.Result{Value: value})
}

func (w *runner) replyCapabilityDenied(id string) {
	_ = w.cmdChan.SendResult(id, ipc.Result{CapabilityDenied: true})
}
