// Package shmem maps a named, OS-backed shared memory region that a session
// owns and a pose producer worker process writes pose frames into. The
// region is divided into a fixed number of equal-size slots; callers never
// lock a slot, they rely on the rotation discipline described on Region.
package shmem

import (
	"fmt"
	"os"
)

// Region is a memory-mapped file shared between a session and its worker
// process. It holds SlotCount slots of SlotSize bytes each, back to back.
// The writer (the worker) writes one full frame into a slot and only then
// announces the slot index on the ready-index channel; the region itself
// carries no synchronization primitives; with SlotCount >= 3 a reader is
// guaranteed to never observe a half-written slot it was told to read,
// because the writer never reuses a slot until it has cycled through the
// others.
type Region struct {
	path      string
	slotCount int
	slotSize  int
	file      *os.File
	data      []byte // platform-specific mapping, see region_unix.go/region_windows.go
	closer    func() error
}

// Path returns the filesystem path backing the region (a temp file under
// the OS's shared-memory-friendly directory, not an anonymous mapping, so
// that the unprivileged worker process can open it by name).
func (r *Region) Path() string { return r.path }

// SlotCount returns the number of rotating slots.
func (r *Region) SlotCount() int { return r.slotCount }

// SlotSize returns the byte size of a single slot.
func (r *Region) SlotSize() int { return r.slotSize }

// Slot returns a byte slice view over the Nth slot. The returned slice
// aliases the mapping; callers must not retain it past Close.
func (r *Region) Slot(index int) ([]byte, error) {
	if index < 0 || index >= r.slotCount {
		return nil, fmt.Errorf("shmem: slot index %d out of range [0,%d)", index, r.slotCount)
	}
	start := index * r.slotSize
	return r.data[start : start+r.slotSize], nil
}

// Close unmaps the region and closes the backing file. It does not remove
// the backing file from disk; callers that created the region (the session)
// should call Unlink after Close once the worker has exited.
func (r *Region) Close() error {
	var err error
	if r.closer != nil {
		err = r.closer()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Unlink removes the backing file. Call only after both the session and the
// worker have closed their mappings. Idempotent — a missing mapping is not
// an error.
func (r *Region) Unlink() error {
	if r.path == "" {
		return nil
	}
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
