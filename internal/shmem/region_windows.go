//go:build windows

package shmem

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Create allocates a new shared memory region of slotCount*slotSize bytes
// backed by a regular file under dir, then maps it via CreateFileMapping /
// MapViewOfFile. Only the session calls Create; the worker calls Open.
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

// Open maps an existing region created by Create.
func Open(path string, slotCount, slotSize int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmem: open backing file: %w", err)
	}
	total := int64(slotCount * slotSize)
	return mapFile(f, slotCount, slotSize, total)
}

func mapFile(f *os.File, slotCount, slotSize int, total int64) (*Region, error) {
	high := uint32(total >> 32)
	low := uint32(total & 0xffffffff)

	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, high, low, nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shmem: CreateFileMapping: %w", err)
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(total))
	if err != nil {
		windows.CloseHandle(mapping)
		f.Close()
		return nil, fmt.Errorf("shmem: MapViewOfFile: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), total)

	r := &Region{
		path:      f.Name(),
		slotCount: slotCount,
		slotSize:  slotSize,
		file:      f,
		data:      data,
	}
	r.closer = func() error {
		if err := windows.UnmapViewOfFile(addr); err != nil {
			return err
		}
		return windows.CloseHandle(mapping)
	}
	return r, nil
}
