package sink

import (
	"testing"

	"github.com/drgolem/audiostreamer/pkg/devicecatalog"
	"github.com/drgolem/audiostreamer/pkg/types"
)

func newTestSink() *Sink {
	cat := devicecatalog.New(devicecatalog.Device{Name: "default", Index: 0})
	return New(cat, types.SignalSpec{Rate: 48000, Channels: 2})
}

func TestResetSampleOffsetOverridesCounter(t *testing.T) {
	s := newTestSink()
	s.ResetSampleOffset(2_880_000)
	if got := s.SampleOffset(); got != 2_880_000 {
		t.Errorf("SampleOffset() = %d, want 2880000", got)
	}
}

func TestPauseResumeTogglesFlag(t *testing.T) {
	s := newTestSink()
	s.Pause()
	if !s.paused.Load() {
		t.Fatal("expected paused after Pause()")
	}
	s.Resume()
	if s.paused.Load() {
		t.Fatal("expected not paused after Resume()")
	}
}

func TestWriteThenHasRemainingSamples(t *testing.T) {
	s := newTestSink()
	ok, err := s.Write([]float32{0.1, 0.1, 0.2, 0.2}, 0, 0)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !ok {
		t.Fatal("Write returned false unexpectedly")
	}
	if !s.HasRemainingSamples() {
		t.Fatal("expected remaining samples after write")
	}
	s.Flush()
	if s.HasRemainingSamples() {
		t.Fatal("expected no remaining samples after flush")
	}
}
