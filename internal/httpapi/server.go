// Package httpapi exposes the daemon's session lifecycle and pose streaming
// surface over HTTP: a REST control plane for creating sessions and
// dispatching commands, and a WebSocket endpoint that streams raw pose
// frames straight out of a session's subscriber channel.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/polymotion/animstreamd/internal/animstore"
	"github.com/polymotion/animstreamd/internal/config"
	"github.com/polymotion/animstreamd/internal/logging"
	"github.com/polymotion/animstreamd/internal/session"
	"github.com/polymotion/animstreamd/internal/workerstats"
)

var log = logging.L("httpapi")

// Server wires the session registry and the animation store to an HTTP
// router. It holds no session state of its own.
type Server struct {
	cfg      *config.Config
	registry *session.Registry
	store    *animstore.Manager
	upgrader websocket.Upgrader
}

// New builds a Server. cfg supplies the default session parameters (fps,
// slot count, timeouts) used when a request doesn't override them.
func New(cfg *config.Config, registry *session.Registry, store *animstore.Manager) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the mux.Router serving every endpoint this package handles.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/animations", s.handleListAnimations).Methods(http.MethodGet)

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/skeleton", s.handleGetSkeleton).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/play", s.handlePlay).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/speed", s.handleSetSpeed).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/fps", s.handleSetFPS).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/vae_values", s.handleSetVAEValues).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/ws/{id}", s.handleWebSocket).Methods(http.MethodGet)

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "durationMs", time.Since(start).Milliseconds())
	})
}

// statsCollector is overridden in tests.
var statsCollector = workerstats.Collect
