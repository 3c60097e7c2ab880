package workerstats

import (
	"os"
	"testing"
)

func TestCollectCurrentProcess(t *testing.T) {
	stats, err := Collect(os.Getpid())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.PID != int32(os.Getpid()) {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), stats.PID)
	}
	if stats.RSSBytes == 0 {
		t.Fatal("expected nonzero RSS for the running test process")
	}
}

func TestCollectUnknownPidErrors(t *testing.T) {
	if _, err := Collect(1 << 30); err == nil {
		t.Fatal("expected error for an implausible pid")
	}
}
