// Package ogg wraps github.com/jfreymuth/oggvorbis to decode Ogg/Vorbis
// files. The teacher's go.mod already carried this library (and its
// jfreymuth/vorbis dependency) as an indirect dependency without ever
// wiring it to a decoder package; this fills that gap.
package ogg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

const bytesPerSample = 2 // decoder always emits 16-bit signed PCM

// Decoder wraps oggvorbis.Reader to provide Ogg/Vorbis decoding.
// Implements types.AudioDecoder interface.
//
// oggvorbis decodes natively to interleaved float32 in [-1, 1]; Decoder
// converts to 16-bit PCM so the rest of the pipeline (which treats
// GetFormat's bitsPerSample as integer PCM depth) doesn't need a special
// case, while also exposing ReadFloatPacket for callers (trackreader)
// that want the native float32 path without the round-trip.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int

	floatBuf []float32
}

// NewDecoder creates a new Ogg/Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens and initializes an Ogg/Vorbis file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create ogg/vorbis reader: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()

	return nil
}

// Close closes the decoder and releases resources.
func (d *Decoder) Close() error {
	d.reader = nil
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// GetFormat returns the audio format (rate, channels, bits per sample).
func (d *Decoder) GetFormat() (int, int, int) {
	return d.rate, d.channels, bytesPerSample * 8
}

// DecodeSamples decodes up to `samples` samples into 16-bit PCM.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	n, err := d.DecodeFloatSamples(samples)
	if err != nil {
		return 0, err
	}

	bytesNeeded := n * d.channels * bytesPerSample
	if bytesNeeded > len(audio) {
		bytesNeeded = len(audio) - (len(audio) % (d.channels * bytesPerSample))
		n = bytesNeeded / (d.channels * bytesPerSample)
	}

	for i := 0; i < n*d.channels; i++ {
		v := clampToInt16(d.floatBuf[i])
		audio[i*2] = byte(v)
		audio[i*2+1] = byte(v >> 8)
	}

	return n, nil
}

// DecodeFloatSamples decodes up to `samples` frames and returns the
// number of frames decoded.
func (d *Decoder) DecodeFloatSamples(samples int) (int, error) {
	n, _, err := d.decodeFloat(samples)
	return n, err
}

// ReadFloatPacket decodes up to maxFrames frames and returns them as
// interleaved float32 (channels() per frame), skipping the int16
// round trip DecodeSamples otherwise requires. The returned slice is
// only valid until the next call. Used by pkg/trackreader's
// float-native decode path.
func (d *Decoder) ReadFloatPacket(maxFrames int) ([]float32, error) {
	n, buf, err := d.decodeFloat(maxFrames)
	if n == 0 {
		return nil, err
	}
	return buf, err
}

func (d *Decoder) decodeFloat(samples int) (int, []float32, error) {
	if d.reader == nil {
		return 0, nil, fmt.Errorf("decoder not initialized")
	}

	need := samples * d.channels
	if cap(d.floatBuf) < need {
		d.floatBuf = make([]float32, need)
	}
	d.floatBuf = d.floatBuf[:need]

	total := 0
	var readErr error
	for total < need {
		n, err := d.reader.Read(d.floatBuf[total:])
		total += n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		if n == 0 {
			break
		}
	}
	d.floatBuf = d.floatBuf[:total]

	return total / d.channels, d.floatBuf, readErr
}

func clampToInt16(f float32) int16 {
	v := f * 32767.0
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
