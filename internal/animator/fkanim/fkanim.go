// Package fkanim implements a procedural forward-kinematics walk-cycle
// animator. It stands in for a BVH-driven solver: this package builds its
// skeleton from a BVH HIERARCHY block (via internal/bvh) but never replays
// a BVH file's recorded motion curves — parsing those and running a general
// forward-kinematics channel solver is out of scope. Instead each tick
// evaluates a small closed-form gait model parameterized by phase, stride,
// and speed, which is enough to exercise the full skeleton/transport/
// dispatch pipeline without a motion-capture asset pipeline.
package fkanim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/bvh"
)

// Animator is an animator.Adapter implementation. All exported methods are
// safe for concurrent use; the worker only ever calls WriteFrame from its
// tick loop and capability handlers from dispatch, but both can race with
// each other so state is guarded by mu.
type Animator struct {
	mu sync.Mutex

	skeleton animator.Skeleton
	joints   []bvh.Joint

	fps    float64
	speed  float64
	stride float64
	phase  float64 // radians, advances each tick
	paused bool
	time   float64 // seconds of simulated playback
}

// New returns an un-initialized fkanim animator.
func New() *Animator {
	return &Animator{speed: 1.0, stride: 1.0}
}

// Initialize parses sourcePath as a BVH hierarchy and builds the skeleton.
func (a *Animator) Initialize(sourcePath string, fps float64) (animator.Skeleton, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return animator.Skeleton{}, fmt.Errorf("fkanim: open %s: %w", sourcePath, err)
	}
	defer f.Close()

	joints, err := bvh.Parse(f)
	if err != nil {
		return animator.Skeleton{}, fmt.Errorf("fkanim: parse %s: %w", sourcePath, err)
	}

	bones := make([]animator.Bone, len(joints))
	for i, j := range joints {
		bones[i] = animator.Bone{
			Name:      j.Name,
			Parent:    j.Parent,
			BindLocal: [7]float64{j.Offset[0], j.Offset[1], j.Offset[2], 0, 0, 0, 1},
		}
	}

	a.mu.Lock()
	a.joints = joints
	a.skeleton = animator.Skeleton{Kind: "FK", Bones: bones}
	a.fps = fps
	a.mu.Unlock()

	return a.skeleton, nil
}

// WriteFrame advances the gait phase by one tick and writes the resulting
// world transforms into dst.
func (a *Animator) WriteFrame(dst []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(dst) != a.skeleton.FrameSize() {
		return fmt.Errorf("fkanim: frame buffer is %d bytes, want %d", len(dst), a.skeleton.FrameSize())
	}

	if !a.paused {
		dt := 1.0 / a.fps
		a.phase += dt * a.speed * 2 * math.Pi * 0.8 // ~0.8 Hz gait at speed=1
		a.time += dt * a.speed
	}

	locals := make([]animator.Mat4, len(a.skeleton.Bones))
	for i, bone := range a.skeleton.Bones {
		locals[i] = a.localTransform(i, bone)
	}
	animator.ComposeWorld(a.skeleton.Bones, locals, dst)
	return nil
}

// localTransform evaluates this tick's local transform for bone i. Root
// bobs vertically with double gait frequency; leg- and arm-like bones (by
// name heuristic) swing, left against right in antiphase; everything else
// stays at its bind pose.
func (a *Animator) localTransform(i int, bone animator.Bone) animator.Mat4 {
	tx, ty, tz := bone.BindLocal[0], bone.BindLocal[1], bone.BindLocal[2]

	if bone.Parent < 0 {
		ty += 0.5 * a.stride * math.Abs(math.Sin(a.phase*2))
		return animator.FromTRS(tx, ty, tz, 0, 0, 0, 1)
	}

	lower := strings.ToLower(bone.Name)
	swing := 0.0
	switch {
	case strings.Contains(lower, "leftleg") || strings.Contains(lower, "leftarm"):
		swing = a.stride * 0.35 * math.Sin(a.phase)
	case strings.Contains(lower, "rightleg") || strings.Contains(lower, "rightarm"):
		swing = a.stride * 0.35 * math.Sin(a.phase+math.Pi)
	default:
		return animator.FromTRS(tx, ty, tz, 0, 0, 0, 1)
	}

	half := swing / 2
	s, c := math.Sin(half), math.Cos(half)
	return animator.FromTRS(tx, ty, tz, s, 0, 0, c)
}

// Capabilities exposes set_stride, the one command this animator adds
// beyond the universal set.
func (a *Animator) Capabilities() map[string]animator.CommandHandler {
	return map[string]animator.CommandHandler{
		"set_stride": a.handleSetStride,
	}
}

func (a *Animator) handleSetStride(args json.RawMessage) (json.RawMessage, error) {
	var req struct {
		Stride float64 `json:"stride"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, fmt.Errorf("fkanim: decode set_stride args: %w", err)
	}
	if req.Stride < 0 {
		return nil, fmt.Errorf("fkanim: stride must be >= 0, got %v", req.Stride)
	}

	a.mu.Lock()
	a.stride = req.Stride
	a.mu.Unlock()

	return json.Marshal(struct{}{})
}

// Seekable reports that this animator has no recorded timeline to seek.
func (a *Animator) Seekable() bool { return false }

// Seek is unsupported; fkanim's phase is generative, not a scrubbable timeline.
func (a *Animator) Seek(float64) error {
	return fmt.Errorf("fkanim: seek not supported")
}

// SetSpeed and SetFPS back the universal set_speed/set_fps commands the
// worker dispatches directly, outside the capability table.
func (a *Animator) SetSpeed(speed float64) {
	a.mu.Lock()
	a.speed = speed
	a.mu.Unlock()
}

// SetFPS updates tick cadence used to advance the gait phase.
func (a *Animator) SetFPS(fps float64) {
	a.mu.Lock()
	if fps > 0 {
		a.fps = fps
	}
	a.mu.Unlock()
}

// SetPaused pauses or resumes gait advancement.
func (a *Animator) SetPaused(paused bool) {
	a.mu.Lock()
	a.paused = paused
	a.mu.Unlock()
}

// CurrentTime returns simulated playback seconds.
func (a *Animator) CurrentTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}
