// Package trackreader layers packet-oriented decoding on top of the
// flat byte-buffer AudioDecoder interface used by pkg/decoders. Each
// call to NextPacket decodes at most maxFramesPerPacket frames and
// tags the result with a ts/dur pair in track timebase (frames), which
// is the unit the Decoder Driver and Transition Manager reason about.
//
// None of the wrapped codec libraries expose true seeking or an
// upfront total-frame count, so seeking is arithmetic: the reader
// always decodes from frame 0, and the caller is responsible for
// dropping packets whose ts falls before the desired seek position
// (see pkg/decoderdriver). This matches the "best-effort to packet
// boundary" seek policy.
package trackreader

import (
	"errors"
	"fmt"
	"io"

	"github.com/drgolem/audiostreamer/pkg/decoders"
	"github.com/drgolem/audiostreamer/pkg/types"
)

// DefaultMaxFramesPerPacket is used when a codec's natural packet size
// can't be determined from the decoder.
const DefaultMaxFramesPerPacket = 1152

// Packet is one decoded chunk of interleaved float32 PCM, tagged with
// its position in track timebase.
type Packet struct {
	TS      uint64 // first frame's position in the track, in frames
	Dur     uint64 // number of frames in this packet
	Samples []float32
}

// floatSource is implemented by decoders (currently only ogg) that can
// produce interleaved float32 PCM directly, skipping the int16 round
// trip DecodeSamples otherwise requires.
type floatSource interface {
	ReadFloatPacket(maxFrames int) ([]float32, error)
}

// totalFramesSource is implemented by decoders that can determine a
// track's total frame count from its container header alone, without a
// full decode pass (currently WAV's "data" chunk size and FLAC's
// STREAMINFO block). MP3 and Ogg/Vorbis expose no such header field,
// so decoders for those formats do not implement this interface and
// TotalFrames falls back to (0, false).
type totalFramesSource interface {
	TotalFrames() (uint64, bool)
}

// Reader decodes one track, packet by packet, from the beginning.
type Reader struct {
	path         string
	decoder      types.AudioDecoder
	floatDecoder floatSource

	spec               types.SignalSpec
	bitsPerSample      int
	maxFramesPerPacket int

	framePos uint64 // ts of the next packet to be returned

	totalFrames      uint64
	totalFramesKnown bool

	pcmBuf   []byte
	floatBuf []float32
}

// Open opens path via the format-by-extension decoder factory and
// prepares a Reader positioned at frame 0.
func Open(path string) (*Reader, error) {
	decoder, err := decoders.NewDecoder(path)
	if err != nil {
		return nil, err
	}

	rate, channels, bps := decoder.GetFormat()
	r := &Reader{
		path:               path,
		decoder:            decoder,
		spec:               types.SignalSpec{Rate: uint32(rate), Channels: channels},
		bitsPerSample:      bps,
		maxFramesPerPacket: DefaultMaxFramesPerPacket,
	}
	if fd, ok := decoder.(floatSource); ok {
		r.floatDecoder = fd
	}
	if tf, ok := decoder.(totalFramesSource); ok {
		r.totalFrames, r.totalFramesKnown = tf.TotalFrames()
	}

	return r, nil
}

// Path returns the source file path this reader was opened against.
func (r *Reader) Path() string {
	return r.path
}

// Spec returns the track's native sample rate and channel count.
func (r *Reader) Spec() types.SignalSpec {
	return r.spec
}

// MaxFramesPerPacket returns the packet size this reader decodes at.
func (r *Reader) MaxFramesPerPacket() int {
	return r.maxFramesPerPacket
}

// SetMaxFramesPerPacket overrides the default packet size. Intended
// for tests and for matching a resampler's block size.
func (r *Reader) SetMaxFramesPerPacket(frames int) {
	if frames > 0 {
		r.maxFramesPerPacket = frames
	}
}

// TotalFrames reports the track's total frame count if known ahead of
// decode. WAV and FLAC expose this in their container headers (see
// totalFramesSource); MP3 and Ogg/Vorbis do not, and this returns
// (0, false) for them.
func (r *Reader) TotalFrames() (uint64, bool) {
	return r.totalFrames, r.totalFramesKnown
}

// NextPacket decodes the next packet of up to MaxFramesPerPacket
// frames. Returns io.EOF once the source is exhausted.
func (r *Reader) NextPacket() (Packet, error) {
	if r.decoder == nil {
		return Packet{}, fmt.Errorf("trackreader: reader closed")
	}

	var frames int
	var samples []float32

	if r.floatDecoder != nil {
		buf, err := r.floatDecoder.ReadFloatPacket(r.maxFramesPerPacket)
		if err != nil && !errors.Is(err, io.EOF) {
			return Packet{}, fmt.Errorf("trackreader: decode error: %w", err)
		}
		frames = len(buf) / r.spec.Channels
		if frames > 0 {
			need := frames * r.spec.Channels
			if cap(r.floatBuf) < need {
				r.floatBuf = make([]float32, need)
			}
			samples = r.floatBuf[:need]
			copy(samples, buf)
		}
	} else {
		bytesPerSample := r.bitsPerSample / 8
		need := r.maxFramesPerPacket * r.spec.Channels * bytesPerSample
		if cap(r.pcmBuf) < need {
			r.pcmBuf = make([]byte, need)
		}
		r.pcmBuf = r.pcmBuf[:need]

		n, err := r.decoder.DecodeSamples(r.maxFramesPerPacket, r.pcmBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return Packet{}, fmt.Errorf("trackreader: decode error: %w", err)
		}
		frames = n
		if n > 0 {
			samples = pcmToFloat32(r.pcmBuf[:n*r.spec.Channels*bytesPerSample], bytesPerSample)
		}
	}

	if frames == 0 {
		return Packet{}, io.EOF
	}

	pkt := Packet{
		TS:      r.framePos,
		Dur:     uint64(frames),
		Samples: samples,
	}
	r.framePos += uint64(frames)
	return pkt, nil
}

// Reset rewinds the reader to frame 0 by reopening the underlying
// decoder. Used for loop wrap-around, since none of the wrapped
// decoders support seeking directly.
func (r *Reader) Reset() error {
	if r.decoder != nil {
		r.decoder.Close()
	}
	decoder, err := decoders.NewDecoder(r.path)
	if err != nil {
		return fmt.Errorf("trackreader: reset failed to reopen %s: %w", r.path, err)
	}
	r.decoder = decoder
	if fd, ok := decoder.(floatSource); ok {
		r.floatDecoder = fd
	} else {
		r.floatDecoder = nil
	}
	r.framePos = 0
	return nil
}

// Close releases the underlying decoder's resources.
func (r *Reader) Close() error {
	if r.decoder == nil {
		return nil
	}
	err := r.decoder.Close()
	r.decoder = nil
	return err
}

// SeekFrames computes the ts (in frames) a decoded packet must reach
// or exceed to be eligible for writing to the sink, given a seek
// position in seconds. Seeking itself is the caller's responsibility:
// decode continues from frame 0 and packets with ts below the
// returned value are dropped.
func (r *Reader) SeekFrames(seekSec float64) uint64 {
	if seekSec <= 0 {
		return 0
	}
	return uint64(seekSec * float64(r.spec.Rate))
}

func pcmToFloat32(pcm []byte, bytesPerSample int) []float32 {
	n := len(pcm) / bytesPerSample
	out := make([]float32, n)
	switch bytesPerSample {
	case 1:
		for i := 0; i < n; i++ {
			out[i] = (float32(pcm[i]) - 128) / 128.0
		}
	case 2:
		for i := 0; i < n; i++ {
			v := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
			out[i] = float32(v) / 32768.0
		}
	case 3:
		for i := 0; i < n; i++ {
			b0, b1, b2 := pcm[i*3], pcm[i*3+1], pcm[i*3+2]
			v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			out[i] = float32(v) / 8388608.0
		}
	case 4:
		for i := 0; i < n; i++ {
			v := int32(uint32(pcm[i*4]) | uint32(pcm[i*4+1])<<8 | uint32(pcm[i*4+2])<<16 | uint32(pcm[i*4+3])<<24)
			out[i] = float32(v) / 2147483648.0
		}
	}
	return out
}
