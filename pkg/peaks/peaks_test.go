package peaks

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeMonoWAV writes a minimal 16-bit PCM mono WAV file containing a
// full-scale square wave, so the decoded samples have a known RMS.
func writeMonoWAV(t *testing.T, path string, rate int, frames int) {
	t.Helper()

	dataSize := frames * 2 // 16-bit mono
	buf := make([]byte, 0, 44+dataSize)

	buf = append(buf, []byte("RIFF")...)
	buf = appendUint32(buf, uint32(36+dataSize))
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = appendUint32(buf, 16)
	buf = appendUint16(buf, 1) // PCM
	buf = appendUint16(buf, 1) // mono
	buf = appendUint32(buf, uint32(rate))
	byteRate := rate * 1 * 2
	buf = appendUint32(buf, uint32(byteRate))
	buf = appendUint16(buf, 2) // block align
	buf = appendUint16(buf, 16)

	buf = append(buf, []byte("data")...)
	buf = appendUint32(buf, uint32(dataSize))

	for i := 0; i < frames; i++ {
		var v int16 = 32767
		if i%2 == 0 {
			v = -32768
		}
		buf = appendUint16(buf, uint16(v))
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write test WAV file: %v", err)
	}
}

func appendUint32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

func appendUint16(buf []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, v)
	return append(buf, tmp...)
}

func TestExtractFullScaleSquareWaveRMSNearOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.wav")
	writeMonoWAV(t, path, 8000, windowSize*2)

	e := New()
	peaks, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(peaks) != 2 {
		t.Fatalf("len(peaks) = %d, want 2", len(peaks))
	}
	for i, p := range peaks {
		if math.Abs(float64(p)-1.0) > 0.01 {
			t.Errorf("peaks[%d] = %f, want ~1.0", i, p)
		}
	}
}

func TestExtractCancelledReturnsPartialResultAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	writeMonoWAV(t, path, 8000, windowSize*20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	peaks, err := e.Extract(ctx, path)
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if len(peaks) != 0 {
		t.Errorf("len(peaks) = %d, want 0 for immediately-cancelled context", len(peaks))
	}
}

func TestExtractEmitsProgressiveWaveform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progressive.wav")
	writeMonoWAV(t, path, 8000, windowSize*30)

	var gotCallback bool
	e := New()
	e.OnWaveform = func(peaks []float32) {
		gotCallback = true
	}
	if _, err := e.Extract(context.Background(), path); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !gotCallback {
		t.Error("expected at least one progressive waveform callback")
	}
}

func TestExtractPadsProgressiveWaveformToExpectedPeaks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padded.wav")
	const frames = windowSize * 60 // enough full windows to span several progress callbacks
	writeMonoWAV(t, path, 8000, frames)

	wantExpected := uint64(frames) / windowSize // mono: channels == 1

	var snapshots [][]float32
	e := New()
	e.OnWaveform = func(peaks []float32) {
		snapshots = append(snapshots, append([]float32(nil), peaks...))
	}
	final, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if uint64(len(final)) != wantExpected {
		t.Fatalf("len(final) = %d, want %d", len(final), wantExpected)
	}

	if len(snapshots) == 0 {
		t.Fatal("expected at least one progressive waveform callback")
	}
	for i, snap := range snapshots {
		if uint64(len(snap)) != wantExpected {
			t.Errorf("snapshot %d: len = %d, want expected_peaks = %d", i, len(snap), wantExpected)
		}
	}
	// the first snapshot's unreached tail should still be zero-padded
	first := snapshots[0]
	allZeroTail := true
	for _, v := range first[len(first)/2:] {
		if v != 0 {
			allZeroTail = false
			break
		}
	}
	if !allZeroTail {
		t.Error("expected the first progressive snapshot to have a zero-padded unreached tail")
	}
}
