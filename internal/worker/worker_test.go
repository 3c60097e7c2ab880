package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/polymotion/animstreamd/internal/ipc"
	"github.com/polymotion/animstreamd/internal/shmem"
	"github.com/polymotion/animstreamd/internal/transport"
)

func TestRunHandshakeAndDispatch(t *testing.T) {
	dir := t.TempDir()
	listenerPath := filepath.Join(dir, "worker-test.sock")

	listener, err := transport.Listen(listenerPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	source, err := filepath.Abs("../animator/fkanim/testdata/walker.bvh")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("fixture missing: %v", err)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- Run(Config{
			Kind:       "FK",
			SourcePath: source,
			FPS:        30,
			ListenPath: listenerPath,
		})
	}()

	cmdConn, err := listener.Accept()
	if err != nil {
		t.Fatalf("accept cmd conn: %v", err)
	}
	notifyConn, err := listener.Accept()
	if err != nil {
		t.Fatalf("accept notify conn: %v", err)
	}

	cmdChan := transport.NewCommandChannel(cmdConn)
	defer cmdChan.Close()
	notifyChan := transport.NewNotifyChannel(notifyConn)
	defer notifyChan.Close()

	okInit, failInit, err := cmdChan.RecvHandshake(5 * time.Second)
	if err != nil {
		t.Fatalf("recv handshake: %v", err)
	}
	if failInit != nil {
		t.Fatalf("worker reported init_error: %s", failInit.Message)
	}
	if okInit.FrameSize <= 0 {
		t.Fatalf("expected positive frame size, got %d", okInit.FrameSize)
	}

	region, err := shmem.Create(dir, 3, okInit.FrameSize)
	if err != nil {
		t.Fatalf("create shm: %v", err)
	}
	defer region.Close()
	defer region.Unlink()

	if err := cmdChan.SendSetShm(ipc.SetShm{
		Path:      region.Path(),
		SlotCount: region.SlotCount(),
		SlotSize:  region.SlotSize(),
	}, 5*time.Second); err != nil {
		t.Fatalf("send set_shm: %v", err)
	}

	result, err := cmdChan.Dispatch("get_info", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("dispatch get_info: %v", err)
	}
	var info infoResult
	if err := json.Unmarshal(result.Value, &info); err != nil {
		t.Fatalf("decode get_info result: %v", err)
	}
	if info.Kind != "FK" {
		t.Fatalf("expected kind FK, got %q", info.Kind)
	}
	if info.Seekable {
		t.Fatal("expected fkanim to report not seekable")
	}

	strideArgs, _ := json.Marshal(map[string]float64{"stride": 2.0})
	if result, err := cmdChan.Dispatch("set_stride", strideArgs, 5*time.Second); err != nil || result.Error != "" {
		t.Fatalf("dispatch set_stride: result=%+v err=%v", result, err)
	}

	if result, err := cmdChan.Dispatch("no_such_method", nil, 5*time.Second); err != nil {
		t.Fatalf("dispatch unknown method: %v", err)
	} else if !result.CapabilityDenied {
		t.Fatalf("expected capability denied for unknown method, got %+v", result)
	}

	ready := transport.NewReadyChannel(2)
	pumpDone := make(chan struct{})
	go func() {
		_ = notifyChan.Pump(ready)
		close(pumpDone)
	}()

	if _, err := ready.Next(pumpDone); err != nil {
		t.Fatalf("waiting for first announced slot: %v", err)
	}

	if err := cmdChan.SendStop(); err != nil {
		t.Fatalf("send stop: %v", err)
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("worker Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker to stop")
	}
}
