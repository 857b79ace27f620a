package ogg

import "testing"

func TestNewDecoder(t *testing.T) {
	decoder := NewDecoder()
	if decoder == nil {
		t.Fatal("NewDecoder returned nil")
	}
}

func TestDecoderGetFormatBeforeOpen(t *testing.T) {
	decoder := NewDecoder()

	rate, channels, bits := decoder.GetFormat()
	if rate != 0 || channels != 0 || bits != bytesPerSample*8 {
		t.Errorf("got rate=%d channels=%d bits=%d, want rate=0 channels=0 bits=%d",
			rate, channels, bits, bytesPerSample*8)
	}
}

func TestDecoderCloseWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	if err := decoder.Close(); err != nil {
		t.Errorf("Close on unopened decoder failed: %v", err)
	}
	if err := decoder.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestDecodeSamplesWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	buffer := make([]byte, 1024)
	if _, err := decoder.DecodeSamples(256, buffer); err == nil {
		t.Error("expected error decoding without opening a file")
	}
}

func TestReadFloatPacketWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	if _, err := decoder.ReadFloatPacket(256); err == nil {
		t.Error("expected error reading a float packet without opening a file")
	}
}

func TestClampToInt16(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1.0, 32767},
		{-1.0, -32767},
		{2.0, 32767},   // clamps above full scale
		{-2.0, -32768}, // clamps below full scale
	}

	for _, c := range cases {
		if got := clampToInt16(c.in); got != c.want {
			t.Errorf("clampToInt16(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
