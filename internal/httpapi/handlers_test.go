package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polymotion/animstreamd/internal/animstore"
	"github.com/polymotion/animstreamd/internal/config"
	"github.com/polymotion/animstreamd/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RunDir = t.TempDir()
	cfg.AnimationDir = t.TempDir()
	cfg.VAEDir = t.TempDir()

	registry := session.NewRegistry("/bin/false")
	t.Cleanup(registry.Close)

	store, err := animstore.NewManager(cfg)
	if err != nil {
		t.Fatalf("build animstore: %v", err)
	}

	return New(cfg, registry, store)
}

func TestGetSkeletonUnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/skeleton", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteUnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/sessions/missing", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateSessionRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty body, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListAnimationsEmptyStoreReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/animations", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "null\n" && rr.Body.String() != "[]\n" {
		t.Fatalf("expected an empty list, got %s", rr.Body.String())
	}
}
