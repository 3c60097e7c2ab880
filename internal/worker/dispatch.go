package worker

import (
	"encoding/json"
	"fmt"

	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/ipc"
)

// universal commands are supported by every animator kind, so they are
// dispatched straight onto the Adapter interface rather than through a
// per-animator capability table.
var universalMethods = map[string]struct{}{
	"pause":     {},
	"play":      {},
	"set_speed": {},
	"set_fps":   {},
	"seek":      {},
	"get_info":  {},
}

func buildDispatchTable(anim animator.Adapter) map[string]animator.CommandHandler {
	table := make(map[string]animator.CommandHandler)
	for name, handler := range anim.Capabilities() {
		if _, reserved := universalMethods[name]; reserved {
			// A capability table can never shadow a universal command; skip
			// it rather than silently letting one win by map iteration
			// order.
			continue
		}
		table[name] = handler
	}
	return table
}

type setSpeedArgs struct {
	Speed float64 `json:"speed"`
}

type setFPSArgs struct {
	FPS float64 `json:"fps"`
}

type seekArgs struct {
	Time float64 `json:"time"`
}

type infoResult struct {
	Kind     string  `json:"kind"`
	FPS      float64 `json:"fps"`
	Time     float64 `json:"time"`
	Seekable bool    `json:"seekable"`
}

// handleCommand dispatches one decoded command, recovering from a panic in
// either a universal handler or a capability handler so a single bad
// animator call never takes the whole worker process down mid-stream —
// mirroring the recovery discipline internal/workerpool applies per task.
func (w *runner) handleCommand(id string, cmd ipc.Command) {
	defer func() {
		if r := recover(); r != nil {
			w.replyError(id, fmt.Sprintf("command %q panicked: %v", cmd.Method, r))
		}
	}()

	if _, universal := universalMethods[cmd.Method]; universal {
		w.dispatchUniversal(id, cmd)
		return
	}

	handler, ok := w.dispatchTable[cmd.Method]
	if !ok {
		w.replyCapabilityDenied(id)
		return
	}

	value, err := handler(cmd.Args)
	if err != nil {
		w.replyError(id, err.Error())
		return
	}
	w.replyValue(id, value)
}

func (w *runner) dispatchUniversal(id string, cmd ipc.Command) {
	switch cmd.Method {
	case "pause":
		w.paused.Store(true)
		w.anim.SetPaused(true)
		w.replyValue(id, nil)

	case "play":
		w.paused.Store(false)
		w.anim.SetPaused(false)
		w.replyValue(id, nil)

	case "set_speed":
		var args setSpeedArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			w.replyError(id, fmt.Sprintf("decode set_speed args: %v", err))
			return
		}
		w.anim.SetSpeed(args.Speed)
		w.replyValue(id, nil)

	case "set_fps":
		var args setFPSArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			w.replyError(id, fmt.Sprintf("decode set_fps args: %v", err))
			return
		}
		if args.FPS <= 0 {
			w.replyError(id, "fps must be > 0")
			return
		}
		w.anim.SetFPS(args.FPS)
		w.setFPS(args.FPS)
		w.replyValue(id, nil)

	case "seek":
		if !w.anim.Seekable() {
			w.replyCapabilityDenied(id)
			return
		}
		var args seekArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			w.replyError(id, fmt.Sprintf("decode seek args: %v", err))
			return
		}
		if err := w.anim.Seek(args.Time); err != nil {
			w.replyError(id, err.Error())
			return
		}
		w.replyValue(id, nil)

	case "get_info":
		raw, err := json.Marshal(infoResult{
			Kind:     w.skeleton.Kind,
			Seekable: w.anim.Seekable(),
			Time:     w.anim.CurrentTime(),
			FPS:      w.currentFPS(),
		})
		if err != nil {
			w.replyError(id, err.Error())
			return
		}
		w.replyValue(id, raw)

	default:
		w.replyCapabilityDenied(id)
	}
}
