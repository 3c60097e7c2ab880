// Package vaeanim implements a procedural stand-in for a conditional
// variational-autoencoder pose decoder. It never loads or runs a neural
// network — that model-loading and inference path is out of scope — but it
// preserves the same external contract: a three-float latent vector drives
// the pose, set via set_vae_values, and each tick decodes the current
// latent through a small fixed basis into per-bone local rotations.
package vaeanim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/bvh"
)

// basis holds, per non-root bone, the rotation-axis weights applied to each
// of the 3 latent dimensions. A real decoder would be a learned matrix; this
// is a small fixed stand-in big enough to move every bone distinctly.
type basis struct {
	wx, wy, wz float64
}

// Animator is an animator.Adapter implementation.
type Animator struct {
	mu sync.Mutex

	skeleton animator.Skeleton
	basis    []basis

	fps    float64
	speed  float64
	latent [3]float64
	paused bool
	time   float64
}

// New returns an un-initialized vaeanim animator.
func New() *Animator {
	return &Animator{speed: 1.0}
}

// Initialize parses sourcePath as a BVH hierarchy to obtain a skeleton —
// the actual VAE_DIR asset this stands in for would instead be a model
// checkpoint, but reusing the skeleton format keeps the rig shape
// consistent with fkanim for testing and tooling.
func (a *Animator) Initialize(sourcePath string, fps float64) (animator.Skeleton, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return animator.Skeleton{}, fmt.Errorf("vaeanim: open %s: %w", sourcePath, err)
	}
	defer f.Close()

	joints, err := bvh.Parse(f)
	if err != nil {
		return animator.Skeleton{}, fmt.Errorf("vaeanim: parse %s: %w", sourcePath, err)
	}

	bones := make([]animator.Bone, len(joints))
	basisSet := make([]basis, len(joints))
	for i, j := range joints {
		bones[i] = animator.Bone{
			Name:      j.Name,
			Parent:    j.Parent,
			BindLocal: [7]float64{j.Offset[0], j.Offset[1], j.Offset[2], 0, 0, 0, 1},
		}
		// Deterministic per-bone weighting so different bones respond to
		// the latent differently, without any learned parameters.
		phase := float64(i) * 0.9
		basisSet[i] = basis{
			wx: math.Sin(phase),
			wy: math.Cos(phase * 1.3),
			wz: math.Sin(phase * 0.6),
		}
	}

	a.mu.Lock()
	a.skeleton = animator.Skeleton{Kind: "VAE", Bones: bones}
	a.basis = basisSet
	a.fps = fps
	a.mu.Unlock()

	return a.skeleton, nil
}

// WriteFrame decodes the current latent vector into a pose and writes world
// transforms into dst.
func (a *Animator) WriteFrame(dst []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(dst) != a.skeleton.FrameSize() {
		return fmt.Errorf("vaeanim: frame buffer is %d bytes, want %d", len(dst), a.skeleton.FrameSize())
	}

	if !a.paused {
		a.time += (1.0 / a.fps) * a.speed
	}

	locals := make([]animator.Mat4, len(a.skeleton.Bones))
	for i, bone := range a.skeleton.Bones {
		locals[i] = a.decode(i, bone)
	}
	animator.ComposeWorld(a.skeleton.Bones, locals, dst)
	return nil
}

func (a *Animator) decode(i int, bone animator.Bone) animator.Mat4 {
	tx, ty, tz := bone.BindLocal[0], bone.BindLocal[1], bone.BindLocal[2]
	if bone.Parent < 0 {
		return animator.FromTRS(tx, ty, tz, 0, 0, 0, 1)
	}

	b := a.basis[i]
	angle := 0.4 * (b.wx*a.latent[0] + b.wy*a.latent[1] + b.wz*a.latent[2])
	axisLen := math.Sqrt(b.wx*b.wx + b.wy*b.wy + b.wz*b.wz)
	if axisLen == 0 {
		axisLen = 1
	}
	half := angle / 2
	s, c := math.Sin(half), math.Cos(half)
	return animator.FromTRS(tx, ty, tz, s*b.wx/axisLen, s*b.wy/axisLen, s*b.wz/axisLen, c)
}

// Capabilities exposes set_vae_values, the command that drives this
// animator's latent vector.
func (a *Animator) Capabilities() map[string]animator.CommandHandler {
	return map[string]animator.CommandHandler{
		"set_vae_values": a.handleSetVaeValues,
	}
}

func (a *Animator) handleSetVaeValues(args json.RawMessage) (json.RawMessage, error) {
	var req struct {
		Values [3]float64 `json:"values"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, fmt.Errorf("vaeanim: decode set_vae_values args: %w", err)
	}

	a.mu.Lock()
	a.latent = req.Values
	a.mu.Unlock()

	return json.Marshal(struct{}{})
}

// Seekable reports that the latent decoder has no fixed-length timeline.
func (a *Animator) Seekable() bool { return false }

// Seek is unsupported for the same reason as fkanim: there is no recorded
// timeline, just a live latent vector.
func (a *Animator) Seek(float64) error {
	return fmt.Errorf("vaeanim: seek not supported")
}

// SetSpeed scales how fast simulated playback time advances.
func (a *Animator) SetSpeed(speed float64) {
	a.mu.Lock()
	a.speed = speed
	a.mu.Unlock()
}

// SetFPS updates tick cadence.
func (a *Animator) SetFPS(fps float64) {
	a.mu.Lock()
	if fps > 0 {
		a.fps = fps
	}
	a.mu.Unlock()
}

// SetPaused pauses or resumes latent decoding.
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
