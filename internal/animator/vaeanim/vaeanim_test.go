package vaeanim

import (
	"encoding/json"
	"testing"
)

func TestInitializeAndDecode(t *testing.T) {
	a := New()
	skeleton, err := a.Initialize("testdata/model.bvh", 30)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if skeleton.Kind != "VAE" {
		t.Fatalf("expected kind VAE, got %q", skeleton.Kind)
	}

	caps := a.Capabilities()
	handler, ok := caps["set_vae_values"]
	if !ok {
		t.Fatal("expected set_vae_values capability")
	}
	args, _ := json.Marshal(map[string][3]float64{"values": {0.5, -0.2, 1.0}})
	if _, err := handler(args); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if a.latent != [3]float64{0.5, -0.2, 1.0} {
		t.Fatalf("unexpected latent: %+v", a.latent)
	}

	dst := make([]byte, skeleton.FrameSize())
	if err := a.WriteFrame(dst); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
}

func TestGetInfoTimeAdvancesWithSpeed(t *testing.T) {
	a := New()
	if _, err := a.Initialize("testdata/model.bvh", 10); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	a.SetSpeed(2.0)

	dst := make([]byte, a.skeleton.FrameSize())
	for i := 0; i < 5; i++ {
		if err := a.WriteFrame(dst); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	want := 5 * (1.0 / 10.0) * 2.0
	if got := a.CurrentTime(); got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("expected time %v, got %v", want, got)
	}
}

func TestPausedFreezesTime(t *testing.T) {
	a := New()
	if _, err := a.Initialize("testdata/model.bvh", 10); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	a.SetPaused(true)

	dst := make([]byte, a.skeleton.FrameSize())
	if err := a.WriteFrame(dst); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if a.CurrentTime() != 0 {
		t.Fatalf("expected time to stay at 0 while paused, got %v", a.CurrentTime())
	}
}
