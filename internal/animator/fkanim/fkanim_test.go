package fkanim

import (
	"encoding/json"
	"testing"
)

func TestInitializeAndWriteFrame(t *testing.T) {
	a := New()
	skeleton, err := a.Initialize("testdata/walker.bvh", 30)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if skeleton.Kind != "FK" {
		t.Fatalf("expected kind FK, got %q", skeleton.Kind)
	}
	if len(skeleton.Bones) != 4 {
		t.Fatalf("expected 4 bones, got %d", len(skeleton.Bones))
	}
	for i, b := range skeleton.Bones {
		if b.Parent >= i {
			t.Fatalf("bone %d (%s) violates causal order: parent=%d", i, b.Name, b.Parent)
		}
	}

	dst := make([]byte, skeleton.FrameSize())
	if err := a.WriteFrame(dst); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	allZero := true
	for _, b := range dst {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("expected non-zero frame data after WriteFrame")
	}
}

func TestWriteFrameRejectsWrongBufferSize(t *testing.T) {
	a := New()
	if _, err := a.Initialize("testdata/walker.bvh", 30); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := a.WriteFrame(make([]byte, 1)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestSetStrideCapability(t *testing.T) {
	a := New()
	if _, err := a.Initialize("testdata/walker.bvh", 30); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	caps := a.Capabilities()
	handler, ok := caps["set_stride"]
	if !ok {
		t.Fatal("expected set_stride capability")
	}

	args, _ := json.Marshal(map[string]float64{"stride": 2.5})
	if _, err := handler(args); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if a.stride != 2.5 {
		t.Fatalf("expected stride 2.5, got %v", a.stride)
	}

	negArgs, _ := json.Marshal(map[string]float64{"stride": -1})
	if _, err := handler(negArgs); err == nil {
		t.Fatal("expected error for negative stride")
	}
}

func TestSeekUnsupported(t *testing.T) {
	a := New()
	if a.Seekable() {
		t.Fatal("expected fkanim to report not seekable")
	}
	if err := a.Seek(1.0); err == nil {
		t.Fatal("expected error from Seek")
	}
}
