//go:build !windows

package shmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create allocates a new shared memory region of slotCount*slotSize bytes
// backed by a file under dir (typically os.TempDir(), or a tmpfs mount).
// Only the session calls Create; the worker calls Open on the same path.
func Create(dir string, slotCount, slotSize int) (*Region, error) {
	if slotCount < 3 {
		return nil, fmt.Errorf("shmem: slotCount must be >= 3, got %d", slotCount)
	}
	if slotSize <= 0 {
		return nil, fmt.Errorf("shmem: slotSize must be > 0, got %d", slotSize)
	}

	f, err := os.CreateTemp(dir, "animstreamd-shm-*")
	if err != nil {
		return nil, fmt.Errorf("shmem: create backing file: %w", err)
	}

	total := int64(slotCount * slotSize)
	if err := f.Truncate(total); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("shmem: truncate backing file: %w", err)
	}

	return mapFile(f, slotCount, slotSize, total)
}

// Open maps an existing region created by Create. Only the worker calls
// this, after receiving the region's path in a set_shm command.
func Open(path string, slotCount, slotSize int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmem: open backing file: %w", err)
	}

	total := int64(slotCount * slotSize)
	return mapFile(f, slotCount, slotSize, total)
}

func mapFile(f *os.File, slotCount, slotSize int, total int64) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(total), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shmem: mmap: %w", err)
	}

	r := &Region{
		path:      f.Name(),
		slotCount: slotCount,
		slotSize:  slotSize,
		file:      f,
		data:      data,
	}
	r.closer = func() error { return unix.Munmap(data) }
	return r, nil
}
