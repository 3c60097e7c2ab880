package session

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryGetUnknownReturnsNotFound(t *testing.T) {
	r := NewRegistry("/bin/false")
	_, err := r.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryDeleteUnknownReturnsNotFound(t *testing.T) {
	r := NewRegistry("/bin/false")
	if err := r.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryCreateConflictOnReservedID(t *testing.T) {
	r := NewRegistry("/bin/false")

	// Simulate a Create in flight: the id is reserved (nil value) before
	// the handshake completes.
	r.mu.Lock()
	r.sessions["dup"] = nil
	r.mu.Unlock()

	_, err := r.Get("dup")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a reserved-but-unstarted session to read as not found, got %v", err)
	}

	_, err = r.Create(context.Background(), DefaultConfig("dup", "FK", "unused.bvh", 30))
	if !errors.Is(err, ErrCreateConflict) {
		t.Fatalf("expected Create on a reserved id to fail with ErrCreateConflict, got %v", err)
	}
}

func TestRegistryListOmitsReservedSlots(t *testing.T) {
	r := NewRegistry("/bin/false")
	r.mu.Lock()
	r.sessions["reserved"] = nil
	r.mu.Unlock()

	ids := r.List()
	for _, id := range ids {
		if id == "reserved" {
			t.Fatalf("expected reserved (unstarted) slot to be omitted from List, got %v", ids)
		}
	}
}
