// Package animator defines the contract a pose producer worker uses to
// drive a specific animation source (a forward-kinematics walk cycle, a
// latent-space decoder, or any future kind), and the explicit capability
// table that replaces runtime introspection for deciding which extra
// commands an animator exposes.
package animator

import (
	"encoding/json"
	"fmt"
)

// Bone is one joint in a skeleton. Parent is the index of its parent bone
// in the owning Skeleton's Bones slice, or -1 for a root bone. A skeleton's
// bones are always ordered so that Parent < index for every non-root bone —
// the causal order a forward pass over Bones can compose world transforms
// bottom-up in a single sweep, without a second pass or recursion.
type Bone struct {
	Name      string     `json:"name"`
	Parent    int        `json:"parent"`
	BindLocal [7]float64 `json:"bindLocal"` // tx,ty,tz,qx,qy,qz,qw
}

// Skeleton describes the rig an animator drives: an ordered, causally-sorted
// bone list. Two animators never share a Skeleton value — each owns the one
// it built during Initialize.
type Skeleton struct {
	Kind  string `json:"kind"` // "FK" or "VAE"
	Bones []Bone `json:"bones"`
}

// FrameSize returns the byte size of one encoded pose frame for this
// skeleton: each bone contributes a 4x4 row-major float64 world transform.
func (s Skeleton) FrameSize() int {
	return len(s.Bones) * 16 * 8
}

// CommandHandler executes one capability-gated command and returns its JSON
// result or an error. Handlers never reach into any global state beyond
// their own Animator receiver.
type CommandHandler func(args json.RawMessage) (json.RawMessage, error)

// Adapter is the contract every animation source implements. A worker never
// knows which concrete animator it holds — it only calls this interface.
type Adapter interface {
	// Initialize loads whatever backs this animator (a clip file, a model
	// bundle) from sourcePath and returns the skeleton it will drive.
	// Returning an error here is what produces init_error on the command
	// channel; the worker process exits without ever requesting shared
	// memory.
	Initialize(sourcePath string, fps float64) (Skeleton, error)

	// WriteFrame advances the animator by one tick and writes the resulting
	// pose (one 4x4 world matrix per bone, row-major float64, in bone
	// order) into dst. len(dst) always equals Skeleton.FrameSize().
	WriteFrame(dst []byte) error

	// Capabilities returns the extra commands this animator exposes beyond
	// the universal set (pause, play, set_speed, set_fps, get_info, seek if
	// supported). The worker builds its dispatch table from this once, at
	// construction time — there is no dynamic lookup per call.
	Capabilities() map[string]CommandHandler

	// Seekable reports whether this animator supports an absolute-time
	// seek; if false, a seek command is rejected the same way an
	// unexposed capability is.
	Seekable() bool

	// Seek jumps playback to timeSeconds. Only called when Seekable()
	// is true.
	Seek(timeSeconds float64) error

	// CurrentTime returns the animator's playback position, used by
	// get_info. Animators with no meaningful notion of elapsed time
	// (none currently) would return 0.
	CurrentTime() float64

	// SetPaused, SetSpeed and SetFPS back the universal pause/play/
	// set_speed/set_fps commands. They are part of the interface, not the
	// capability table, because every animator supports them.
	SetPaused(paused bool)
	SetSpeed(speed float64)
	SetFPS(fps float64)
}

// ErrCapabilityDenied holds the capability-gate rejection message. Nothing in
// this module returns it: the worker reports a method that is neither
// universal nor in the animator's capability table through
// ipc.Result.CapabilityDenied, which internal/session surfaces as its own
// session.ErrCapabilityDenied.
var ErrCapabilityDenied = fmt.Errorf("method exists but is not exposed")
