package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/polymotion/animstreamd/internal/animator"
	"github.com/polymotion/animstreamd/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeSessionError maps the sentinel errors internal/session surfaces onto
// HTTP status codes. Every operation that can fail this way routes through
// here so the mapping only lives in one place.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, session.ErrCreateConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, session.ErrCapabilityDenied):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrInitFailure):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrHandshakeTimeout), errors.Is(err, session.ErrDispatchTimeout):
		writeError(w, http.StatusGatewayTimeout, err)
	case errors.Is(err, session.ErrBrokenChannel):
		writeError(w, http.StatusInternalServerError, err)
	default:
		var engineErr *session.EngineError
		if errors.As(err, &engineErr) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleListAnimations(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	assets, err := s.store.List(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

type createSessionRequest struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Source string  `json:"source"`
	FPS    float64 `json:"fps"`
}

type createSessionResponse struct {
	ID       string            `json:"id"`
	Skeleton animator.Skeleton `json:"skeleton"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" || req.Kind == "" || req.Source == "" {
		writeError(w, http.StatusBadRequest, errMissingField)
		return
	}
	fps := req.FPS
	if fps <= 0 {
		fps = s.cfg.DefaultFPS
	}

	sourcePath, err := s.store.Fetch(r.Context(), req.Kind, req.Source)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	cfg := session.DefaultConfig(req.ID, req.Kind, sourcePath, fps)
	cfg.RunDir = s.cfg.RunDir
	cfg.SlotCount = s.cfg.DefaultSlotCount
	cfg.HandshakeTimeout = time.Duration(s.cfg.HandshakeTimeoutSeconds) * time.Second
	cfg.DispatchTimeout = time.Duration(s.cfg.DispatchTimeoutSeconds) * time.Second
	cfg.StopGracePeriod = time.Duration(s.cfg.StopGraceSeconds) * time.Second

	sess, err := s.registry.Create(r.Context(), cfg)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID(), Skeleton: sess.Skeleton()})
}

func (s *Server) handleGetSkeleton(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Skeleton())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(mux.Vars(r)["id"]); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoArgs(w, r, "pause")
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.dispatchNoArgs(w, r, "play")
}

func (s *Server) dispatchNoArgs(w http.ResponseWriter, r *http.Request, method string) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if _, err := sess.Dispatch(method, nil); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setSpeedRequest struct {
	Speed float64 `json:"speed"`
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	var req setSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	args, _ := json.Marshal(req)
	if _, err := sess.Dispatch("set_speed", args); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setFPSRequest struct {
	FPS float64 `json:"fps"`
}

func (s *Server) handleSetFPS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	var req setFPSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	args, _ := json.Marshal(req)
	if _, err := sess.Dispatch("set_fps", args); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setVAEValuesRequest struct {
	Values [3]float64 `json:"values"`
}

// handleSetVAEValues only applies to sessions whose skeleton reports kind
// VAE; a FK session rejects it the same way the worker would reject an
// unexposed capability.
func (s *Server) handleSetVAEValues(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if sess.Skeleton().Kind != "VAE" {
		writeSessionError(w, session.ErrCapabilityDenied)
		return
	}
	var req setVAEValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	args, _ := json.Marshal(req)
	if _, err := sess.Dispatch("set_vae_values", args); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	stats, err := statsCollector(sess.WorkerPID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

var errMissingField = errors.New("httpapi: id, kind, and source are all required")
