package trackreader

import "testing"

func TestSeekFramesZeroOrNegativeIsZero(t *testing.T) {
	r := &Reader{}
	r.spec.Rate = 48000
	r.spec.Channels = 2

	if got := r.SeekFrames(0); got != 0 {
		t.Errorf("SeekFrames(0) = %d, want 0", got)
	}
	if got := r.SeekFrames(-1); got != 0 {
		t.Errorf("SeekFrames(-1) = %d, want 0", got)
	}
}

func TestSeekFramesScalesByRate(t *testing.T) {
	r := &Reader{}
	r.spec.Rate = 48000
	r.spec.Channels = 2

	got := r.SeekFrames(30)
	want := uint64(30 * 48000)
	if got != want {
		t.Errorf("SeekFrames(30) = %d, want %d", got, want)
	}
}

func TestPCMToFloat32RoundTrip16Bit(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xFF, 0x7F} // 0, then max positive int16
	out := pcmToFloat32(pcm, 2)
	if len(out) != 2 {
		t.Fatalf("got %d samples, want 2", len(out))
	}
	if out[0] != 0 {
		t.Errorf("sample 0 = %f, want 0", out[0])
	}
	if out[1] <= 0.99 || out[1] > 1.0 {
		t.Errorf("sample 1 = %f, want ~1.0", out[1])
	}
}
