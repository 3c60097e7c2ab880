//go:build !windows

package shmem

import (
	"bytes"
	"os"
	"testing"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	r, err := Create(os.TempDir(), 3, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() {
		r.Close()
		r.Unlink()
	}()

	slot, err := r.Slot(1)
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	want := bytes.Repeat([]byte{0xAB}, 64)
	copy(slot, want)

	opened, err := Open(r.Path(), 3, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()

	got, err := opened.Slot(1)
	if err != nil {
		t.Fatalf("Slot (opened): %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected mapped views to share memory, got %x want %x", got, want)
	}
}

func TestUnlinkIsIdempotent(t *testing.T) {
	r, err := Create(os.TempDir(), 3, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Close()

	if err := r.Unlink(); err != nil {
		t.Fatalf("first Unlink: %v", err)
	}
	if err := r.Unlink(); err != nil {
		t.Fatalf("second Unlink on an already-removed mapping: %v", err)
	}
}

func TestSlotOutOfRange(t *testing.T) {
	r, err := Create(os.TempDir(), 3, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() {
		r.Close()
		r.Unlink()
	}()

	if _, err := r.Slot(-1); err == nil {
		t.Fatal("expected error for negative slot index")
	}
	if _, err := r.Slot(3); err == nil {
		t.Fatal("expected error for slot index == slotCount")
	}
}

func TestCreateRejectsTooFewSlots(t *testing.T) {
	if _, err := Create(os.TempDir(), 2, 16); err == nil {
		t.Fatal("expected error for slotCount < 3")
	}
}
