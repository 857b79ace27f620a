// Package sampleringbuffer implements the bounded SPSC ring buffer of
// interleaved float32 PCM frames shared between the decode loop and the
// device callback.
//
// The atomic read/write position scheme (power-of-2 mask, AvailableRead/
// AvailableWrite, Consume-style accounting) follows
// github.com/drgolem/ringbuffer, re-specialized here for []float32 samples
// with ramp-in/ramp-out support instead of raw bytes.
package sampleringbuffer

import (
	"runtime"
	"sync/atomic"
)

// RingBuffer is a lock-free single-producer single-consumer ring buffer of
// interleaved float32 samples.
//
// Thread safety:
//   - Write must only be called by the decode (producer) thread.
//   - Read and Flush must only be called by the device callback
//     (consumer) thread, except Flush which is also safe to call from
//     the producer thread during cancellation (see Flush).
//   - HasRemainingSamples, AvailableRead and AvailableWrite only load
//     the atomic positions and may be called from any thread.
type RingBuffer struct {
	buffer   []float32
	size     uint64 // must be power of 2, in samples (not frames)
	mask     uint64
	channels int
	writePos atomic.Uint64
	readPos  atomic.Uint64
	cancel   atomic.Bool
}

// New creates a ring buffer sized to hold approximately secondsCapacity
// seconds of audio at the given rate/channels. Capacity is rounded up to
// the next power of 2 sample slots.
func New(rate uint32, channels int, secondsCapacity float64) *RingBuffer {
	if channels < 1 {
		channels = 1
	}
	frames := uint64(float64(rate) * secondsCapacity)
	samples := nextPowerOf2(frames * uint64(channels))
	return &RingBuffer{
		buffer:   make([]float32, samples),
		size:     samples,
		mask:     samples - 1,
		channels: channels,
	}
}

// Write appends interleaved samples to the buffer. If rampUpFrames > 0 the
// first rampUpFrames frames are multiplied by a linearly rising 0->1 gain
// (per channel); if rampDownFrames > 0 the last rampDownFrames frames are
// multiplied by a linearly falling 1->0 gain. When there isn't enough free
// space, Write yields to the scheduler and retries until space frees up or
// Cancel is observed, in which case it returns false having written
// nothing.
func (rb *RingBuffer) Write(samples []float32, rampUpFrames, rampDownFrames int) bool {
	if len(samples) == 0 {
		return true
	}

	ramped := samples
	if rampUpFrames > 0 || rampDownFrames > 0 {
		ramped = make([]float32, len(samples))
		copy(ramped, samples)
		rb.applyRamps(ramped, rampUpFrames, rampDownFrames)
	}

	needed := uint64(len(ramped))
	for {
		if rb.cancel.Load() {
			return false
		}
		if rb.AvailableWrite() >= needed {
			break
		}
		runtime.Gosched()
	}

	writePos := rb.writePos.Load()
	for i, s := range ramped {
		rb.buffer[(writePos+uint64(i))&rb.mask] = s
	}
	rb.writePos.Store(writePos + needed)
	return true
}

// applyRamps multiplies the first rampUpFrames and last rampDownFrames
// frames of data (interleaved, rb.channels per frame) by a linear gain
// envelope. Each ramp is clamped to the frames the slice holds; when the
// slice is shorter than the sum of both, the two ramps overlap and the
// shared frames receive both gains.
func (rb *RingBuffer) applyRamps(data []float32, rampUpFrames, rampDownFrames int) {
	ch := rb.channels
	if ch < 1 {
		ch = 1
	}
	totalFrames := len(data) / ch

	if rampUpFrames > totalFrames {
		rampUpFrames = totalFrames
	}
	if rampDownFrames > totalFrames {
		rampDownFrames = totalFrames
	}

	for f := 0; f < rampUpFrames; f++ {
		gain := float32(f) / float32(rampUpFrames)
		for c := 0; c < ch; c++ {
			data[f*ch+c] *= gain
		}
	}

	for f := 0; f < rampDownFrames; f++ {
		frameIdx := totalFrames - 1 - f
		gain := float32(f) / float32(rampDownFrames)
		for c := 0; c < ch; c++ {
			data[frameIdx*ch+c] *= gain
		}
	}
}

// Read copies up to len(dest) samples into dest, filling any deficit with
// silence (0.0). Never blocks.
func (rb *RingBuffer) Read(dest []float32) {
	available := rb.AvailableRead()
	toRead := uint64(len(dest))
	if toRead > available {
		toRead = available
	}

	readPos := rb.readPos.Load()
	for i := uint64(0); i < toRead; i++ {
		dest[i] = rb.buffer[(readPos+i)&rb.mask]
	}
	for i := toRead; i < uint64(len(dest)); i++ {
		dest[i] = 0
	}
	rb.readPos.Store(readPos + toRead)
}

// Flush discards all buffered samples, returning immediately. Used on
// cancellation so the next Write lands at the buffer head.
func (rb *RingBuffer) Flush() {
	rb.readPos.Store(rb.writePos.Load())
}

// HasRemainingSamples reports whether any producer-written sample has not
// yet been read.
func (rb *RingBuffer) HasRemainingSamples() bool {
	return rb.AvailableRead() > 0
}

// Cancel unblocks any in-progress Write, causing it to return false. The
// flag is sticky until ResetCancel is called.
func (rb *RingBuffer) Cancel() {
	rb.cancel.Store(true)
}

// ResetCancel clears the cancellation flag so subsequent Writes can block
// normally again.
func (rb *RingBuffer) ResetCancel() {
	rb.cancel.Store(false)
}

// AvailableWrite returns the number of sample slots free for writing.
func (rb *RingBuffer) AvailableWrite() uint64 {
	return rb.size - (rb.writePos.Load() - rb.readPos.Load())
}

// AvailableRead returns the number of sample slots available for reading.
func (rb *RingBuffer) AvailableRead() uint64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// Size returns the total capacity in samples (not frames).
func (rb *RingBuffer) Size() uint64 {
	return rb.size
}

// Channels returns the interleaving width used for ramp calculations.
func (rb *RingBuffer) Channels() int {
	return rb.channels
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
