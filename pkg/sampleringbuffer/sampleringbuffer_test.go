package sampleringbuffer

import (
	"testing"
)

func TestReadFillsDeficitWithSilence(t *testing.T) {
	rb := New(48000, 2, 1.0)

	dest := make([]float32, 8)
	rb.Read(dest)
	for i, v := range dest {
		if v != 0 {
			t.Errorf("dest[%d] = %f, want 0 (silence on empty read)", i, v)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(48000, 2, 1.0)

	in := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	if ok := rb.Write(in, 0, 0); !ok {
		t.Fatal("Write returned false unexpectedly")
	}

	out := make([]float32, len(in))
	rb.Read(out)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestFlushDiscardsBufferedSamples(t *testing.T) {
	rb := New(48000, 2, 1.0)
	rb.Write([]float32{1, 2, 3, 4}, 0, 0)

	if !rb.HasRemainingSamples() {
		t.Fatal("expected remaining samples before flush")
	}
	rb.Flush()
	if rb.HasRemainingSamples() {
		t.Fatal("expected no remaining samples after flush")
	}

	// Next write should land cleanly, with no stale residue read back.
	rb.Write([]float32{9, 9}, 0, 0)
	out := make([]float32, 2)
	rb.Read(out)
	if out[0] != 9 || out[1] != 9 {
		t.Errorf("got %v, want [9 9] (no stale residue across flush)", out)
	}
}

func TestRampUpAppliesLinearGain(t *testing.T) {
	rb := New(48000, 1, 1.0)
	in := []float32{1, 1, 1, 1}
	rb.Write(in, 4, 0)

	out := make([]float32, 4)
	rb.Read(out)

	if out[0] != 0 {
		t.Errorf("first ramped frame should be silent, got %f", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Errorf("ramp-up should rise monotonically: out[%d]=%f <= out[%d]=%f", i, out[i], i-1, out[i-1])
		}
	}
}

func TestRampDownAppliesLinearDecay(t *testing.T) {
	rb := New(48000, 1, 1.0)
	in := []float32{1, 1, 1, 1}
	rb.Write(in, 0, 4)

	out := make([]float32, 4)
	rb.Read(out)

	for i := 1; i < len(out); i++ {
		if out[i] >= out[i-1] {
			t.Errorf("ramp-down should fall monotonically: out[%d]=%f >= out[%d]=%f", i, out[i], i-1, out[i-1])
		}
	}
}

func TestCancelUnblocksWrite(t *testing.T) {
	rb := New(48000, 1, 1.0)
	// Fill the buffer completely so the next write would otherwise spin forever.
	full := make([]float32, rb.Size())
	if ok := rb.Write(full, 0, 0); !ok {
		t.Fatal("initial fill should succeed")
	}

	rb.Cancel()
	done := make(chan bool, 1)
	go func() {
		done <- rb.Write([]float32{1}, 0, 0)
	}()

	if ok := <-done; ok {
		t.Fatal("Write should return false once cancelled")
	}
}
