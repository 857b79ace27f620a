// Package resampler wraps github.com/zaf/resample (libsoxr bindings) to
// convert interleaved float32 PCM between sample rates, rebuilding its
// internal state whenever the input spec, output spec or packet block
// size changes. Channel counts are not converted: input is read with the
// output spec's channel count and is not up- or down-mixed.
package resampler

import (
	"bytes"
	"fmt"
	"math"

	soxr "github.com/zaf/resample"

	"github.com/drgolem/audiostreamer/pkg/types"
)

// Resampler converts PCM from an installed input spec to a fixed output
// spec. The zero value is not usable; create one with New.
type Resampler struct {
	out types.SignalSpec

	in        types.SignalSpec
	blockSize int
	passThru  bool

	buf *bytes.Buffer
	w   *soxr.Resampler
}

// New creates a resampler targeting outSpec. Update must be called before
// the first Process.
func New(outSpec types.SignalSpec) *Resampler {
	return &Resampler{out: outSpec}
}

// OutSpec returns the configured output spec.
func (r *Resampler) OutSpec() types.SignalSpec {
	return r.out
}

// SetOutSpec changes the output spec; the next Update rebuilds state
// against it. Used when the sink reopens at a new device spec.
func (r *Resampler) SetOutSpec(outSpec types.SignalSpec) {
	if r.out.Equal(outSpec) {
		return
	}
	r.out = outSpec
	r.in = types.SignalSpec{} // force rebuild on next Update
}

// Update rebuilds the resampler for a new input spec / packet block size.
// It is a no-op if the input spec and block size are unchanged from the
// last call. When inSpec equals r.out exactly, Update switches to a
// zero-copy pass-through mode and Process becomes an identity copy.
func (r *Resampler) Update(inSpec types.SignalSpec, blockSize int) error {
	unchanged := r.in.Equal(inSpec) && r.blockSize == blockSize
	if unchanged && (r.w != nil || r.passThru) {
		return nil
	}

	r.in = inSpec
	r.blockSize = blockSize
	r.w = nil

	if inSpec.Equal(r.out) {
		r.passThru = true
		return nil
	}
	r.passThru = false

	r.buf = &bytes.Buffer{}
	w, err := soxr.New(r.buf, float64(inSpec.Rate), float64(r.out.Rate), r.out.Channels, soxr.F32, soxr.HighQ)
	if err != nil {
		return fmt.Errorf("resampler: failed to build soxr instance %s->%s: %w", inSpec, r.out, err)
	}
	r.w = w
	return nil
}

// Process converts inFrames (interleaved float32, r.out.Channels per
// frame) to the configured output rate, returning interleaved float32
// output frames. In pass-through mode this returns inFrames unchanged.
func (r *Resampler) Process(inFrames []float32) ([]float32, error) {
	if r.passThru || r.w == nil {
		return inFrames, nil
	}

	inBytes := float32ToBytes(inFrames)
	if _, err := r.w.Write(inBytes); err != nil {
		return nil, fmt.Errorf("resampler: write failed: %w", err)
	}

	out := bytesToFloat32(r.buf.Bytes())
	r.buf.Reset()
	return out, nil
}

// Flush drains any samples buffered inside the resampler (e.g. at the end
// of a session) and resets the underlying soxr state. Safe to call in
// pass-through mode (no-op).
func (r *Resampler) Flush() ([]float32, error) {
	if r.passThru || r.w == nil {
		return nil, nil
	}
	if err := r.w.Close(); err != nil {
		return nil, fmt.Errorf("resampler: close failed: %w", err)
	}
	out := bytesToFloat32(r.buf.Bytes())
	r.buf.Reset()
	r.w = nil
	return out, nil
}

func float32ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
