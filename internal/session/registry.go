package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polymotion/animstreamd/internal/workerpool"
)

// closeConcurrency bounds how many sessions tear down at once on shutdown;
// each Stop() waits on a worker process exit, so an unbounded fan-out would
// otherwise spawn one goroutine per session with no ceiling.
const closeConcurrency = 16

// closeDrainTimeout bounds how long Close waits for every session's Stop to
// finish before returning; a session's own StopGracePeriod already bounds
// the worker process kill, so this is a second, coarser ceiling on the
// whole batch.
const closeDrainTimeout = 30 * time.Second

// Registry owns every running session by id. Creation rejects a duplicate
// id instead of replacing the existing session, and every lookup-by-id
// operation (get, delete, or any command dispatch reached via an id) fails
// the same way — ErrNotFound — when the id is unknown.
type Registry struct {
	workerBinary string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. workerBinary is the path to the
// animstreamd binary itself (re-exec'd with the internal-worker subcommand
// for each session).
func NewRegistry(workerBinary string) *Registry {
	return &Registry{
		workerBinary: workerBinary,
		sessions:     make(map[string]*Session),
	}
}

// Create starts a new session under cfg.ID. If a session with that id is
// already running, it returns ErrCreateConflict without touching the
// existing session.
func (r *Registry) Create(ctx context.Context, cfg Config) (*Session, error) {
	r.mu.Lock()
	if _, exists := r.sessions[cfg.ID]; exists {
		r.mu.Unlock()
		return nil, ErrCreateConflict
	}
	// Reserve the slot before starting the (slow) handshake so a second
	// concurrent Create for the same id fails fast instead of racing to
	// start two worker processes under the same id.
	r.sessions[cfg.ID] = nil
	r.mu.Unlock()

	s, err := Start(ctx, cfg, r.workerBinary)
	if err != nil {
		r.mu.Lock()
		delete(r.sessions, cfg.ID)
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[cfg.ID] = s
	r.mu.Unlock()

	return s, nil
}

// Get returns the session for id, or ErrNotFound. A reserved-but-not-yet-
// started slot (Create still mid-handshake) is reported as ErrNotFound too,
// since it isn't usable yet.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, exists := r.sessions[id]
	r.mu.RUnlock()
	if !exists || s == nil {
		return nil, describeUnknown(id)
	}
	return s, nil
}

// Delete stops and removes the session for id, or returns ErrNotFound.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, exists := r.sessions[id]
	if exists {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !exists || s == nil {
		return describeUnknown(id)
	}
	s.Stop()
	return nil
}

// List returns the ids of every currently running session.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close stops every running session concurrently and waits for all of them
// to finish tearing down. Used on daemon shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	pool := workerpool.New(closeConcurrency, len(sessions)+1)
	for _, s := range sessions {
		s := s
		pool.Submit(func() { s.Stop() })
	}
	pool.StopAccepting()

	ctx, cancel := context.WithTimeout(context.Background(), closeDrainTimeout)
	defer cancel()
	pool.Drain(ctx)
}

// describeUnknown is used by callers that want a consistent not-found
// message including the offending id.
func describeUnknown(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
