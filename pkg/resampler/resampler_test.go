package resampler

import (
	"testing"

	"github.com/drgolem/audiostreamer/pkg/types"
)

func TestPassThroughWhenSpecsMatch(t *testing.T) {
	spec := types.SignalSpec{Rate: 48000, Channels: 2}
	r := New(spec)

	if err := r.Update(spec, 1152); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	in := []float32{0.1, -0.2, 0.3, -0.4}
	out, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("pass-through changed length: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("pass-through sample %d: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestUpdateIsNoOpWhenUnchanged(t *testing.T) {
	spec := types.SignalSpec{Rate: 48000, Channels: 2}
	r := New(spec)

	if err := r.Update(spec, 1152); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}
	if !r.passThru {
		t.Fatal("expected pass-through mode when in==out")
	}

	if err := r.Update(spec, 1152); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	if !r.passThru {
		t.Fatal("pass-through mode should be preserved across a no-op Update")
	}
}

func TestSetOutSpecForcesRebuildOnNextUpdate(t *testing.T) {
	r := New(types.SignalSpec{Rate: 48000, Channels: 2})
	if err := r.Update(types.SignalSpec{Rate: 48000, Channels: 2}, 1152); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	r.SetOutSpec(types.SignalSpec{Rate: 44100, Channels: 2})
	if r.in.Rate != 0 {
		t.Fatalf("expected SetOutSpec to invalidate cached input spec, got rate=%d", r.in.Rate)
	}
}
