// Package peaks implements the Peaks Extractor: an independent,
// cancellable, one-shot pass that decodes a file end to end (gapless
// disabled, no session state) and reduces it to an RMS waveform array
// suitable for UI rendering.
package peaks

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/drgolem/audiostreamer/pkg/trackreader"
	"github.com/drgolem/audiostreamer/pkg/types"
)

// windowSize is the number of interleaved samples (not frames) reduced
// to a single RMS value.
const windowSize = 4000

// packetsPerEmit controls how often a progressive waveform snapshot is
// delivered via OnWaveform while a pass is in flight.
const packetsPerEmit = 100

// Extractor runs one RMS waveform pass per call to Extract. A single
// Extractor may be reused sequentially across files.
type Extractor struct {
	// OnWaveform, when set, is invoked roughly every 100 decoded
	// packets with the peaks array accumulated so far. Implementations
	// must not block for long; the decode pass waits for the call to
	// return before continuing.
	//
	// When the track's total frame count is known ahead of decode (WAV
	// and FLAC; see trackreader.Reader.TotalFrames), the snapshot is
	// padded with trailing zeros to expected_peaks = n_frames*channels/
	// 4000, so len(peaks) never exceeds that bound. For formats where
	// the total frame count isn't known up front (MP3, Ogg/Vorbis), the
	// snapshot is simply "everything decoded so far" and grows
	// monotonically call over call with no padding.
	OnWaveform func(peaks []float32)
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract opens path and decodes it start to finish, accumulating one
// RMS value per 4000-sample window. Returns the peaks decoded so far
// (a partial, monotonically growing prefix of the full result) and
// types.ErrCancelled if ctx is cancelled before end-of-stream.
func (e *Extractor) Extract(ctx context.Context, path string) ([]float32, error) {
	reader, err := trackreader.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	expectedPeaks, expectedKnown := expectedPeakCount(reader)

	var peaks []float32
	window := make([]float32, 0, windowSize)
	packetsSinceEmit := 0

	for {
		select {
		case <-ctx.Done():
			return peaks, types.ErrCancelled
		default:
		}

		pkt, err := reader.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return peaks, nil
			}
			return peaks, err
		}

		for _, s := range pkt.Samples {
			window = append(window, s)
			if len(window) == windowSize {
				peaks = append(peaks, rms(window))
				window = window[:0]
			}
		}

		packetsSinceEmit++
		if packetsSinceEmit >= packetsPerEmit {
			packetsSinceEmit = 0
			if e.OnWaveform != nil {
				e.OnWaveform(paddedSnapshot(peaks, expectedPeaks, expectedKnown))
			}
		}
	}
}

// expectedPeakCount computes expected_peaks = n_frames*channels/4000
// for tracks whose total frame count is known ahead of decode (see
// trackreader.Reader.TotalFrames).
func expectedPeakCount(reader *trackreader.Reader) (uint64, bool) {
	totalFrames, known := reader.TotalFrames()
	if !known {
		return 0, false
	}
	channels := uint64(reader.Spec().Channels)
	return totalFrames * channels / windowSize, true
}

// paddedSnapshot returns a copy of peaks, padded with trailing zeros
// to expected when expected is known and larger than len(peaks).
// Unknown-total tracks get an unpadded copy that simply grows call
// over call.
func paddedSnapshot(peaks []float32, expected uint64, expectedKnown bool) []float32 {
	if !expectedKnown || uint64(len(peaks)) >= expected {
		return append([]float32(nil), peaks...)
	}
	out := make([]float32, expected)
	copy(out, peaks)
	return out
}

// rms computes sqrt(mean(x_i^2)) over window.
func rms(window []float32) float32 {
	var sumSquares float64
	for _, s := range window {
		sumSquares += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sumSquares / float64(len(window))))
}
