// Package sink implements the Audio Sink: it owns the PortAudio output
// stream and the real-time device callback that drains the sample
// ring buffer, applies volume, and reports a monotonically advancing
// sample offset back to the caller.
//
// The callback itself never allocates and never blocks: it reads
// whatever is available from the ring buffer (silence fills any
// deficit), applies the current volume as a scalar gain, and converts
// to 16-bit PCM for the device. Commands (volume, offset reset, pause,
// device change) arrive through small atomics and a mutex-guarded
// stream handle, following the same pattern the teacher's FilePlayer
// uses for its callback state.
package sink

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/audiostreamer/pkg/devicecatalog"
	"github.com/drgolem/audiostreamer/pkg/resampler"
	"github.com/drgolem/audiostreamer/pkg/sampleringbuffer"
	"github.com/drgolem/audiostreamer/pkg/types"
)

const defaultFramesPerBuffer = 512
const ringBufferSeconds = 5.0

// Sink owns a PortAudio output stream and the ring buffer it drains.
type Sink struct {
	catalog devicecatalog.Catalog

	mu              sync.Mutex // guards stream/device/outSpec during reopen
	stream          *portaudio.PaStream
	device          devicecatalog.Device
	outSpec         types.SignalSpec
	framesPerBuffer int
	followDefault   bool

	ring      *sampleringbuffer.RingBuffer
	resampler *resampler.Resampler

	volumeBits        atomic.Uint64 // math.Float64bits(gain)
	sampleOffset      atomic.Uint64
	paused            atomic.Bool
	lastDeviceChanged bool // guarded by mu: did the most recent Prepare actually switch devices?

	cbBuf []float32 // callback scratch buffer, reused across ticks

	// OnSampleOffset, when set, is invoked from the callback thread
	// each tick the offset advances. Implementations must not block.
	OnSampleOffset func(offset uint64)

	// OnUnderrun, when set, is invoked from the callback thread
	// whenever the ring buffer could not fully satisfy a tick.
	OnUnderrun func()
}

// New creates a Sink targeting outSpec, resolving devices through
// catalog. The returned Sink has no open stream yet; call Prepare
// before the first Write.
func New(catalog devicecatalog.Catalog, outSpec types.SignalSpec) *Sink {
	s := &Sink{
		catalog:         catalog,
		outSpec:         outSpec,
		framesPerBuffer: defaultFramesPerBuffer,
		ring:            sampleringbuffer.New(outSpec.Rate, outSpec.Channels, ringBufferSeconds),
		resampler:       resampler.New(outSpec),
	}
	s.volumeBits.Store(math.Float64bits(1.0))
	return s
}

// SetFollowSystemDefault makes the sink ignore any explicit device
// name and always resolve to the catalog's default device.
func (s *Sink) SetFollowSystemDefault(follow bool) {
	s.followDefault = follow
}

// OutSpec returns the sink's currently configured output spec.
func (s *Sink) OutSpec() types.SignalSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outSpec
}

// Prepare implements the open/reopen policy from the Audio Sink
// design: (re)open whenever the stream is absent, the device changed,
// a supported rate differs from the previous session, or the channel
// count changed. If the device does not support sourceSpec's rate,
// the sink keeps its current rate and Write resamples packets to it.
// Returns whether Write resamples for this session (the source spec
// differs from the open output spec).
func (s *Sink) Prepare(sourceSpec types.SignalSpec, deviceName string, blockSize int) (usesResampler bool, err error) {
	deviceReq := deviceName
	if s.followDefault {
		deviceReq = ""
	}

	device, err := s.catalog.Resolve(deviceReq)
	if err != nil {
		return false, fmt.Errorf("sink: resolve device %q: %w", deviceName, err)
	}

	targetSpec := sourceSpec
	if !s.catalog.SupportsRate(device, sourceSpec.Rate) {
		targetSpec.Rate = s.outSpec.Rate
	}

	s.mu.Lock()
	prevDevice := s.device
	needsReopen := s.stream == nil ||
		device != s.device ||
		targetSpec.Rate != s.outSpec.Rate ||
		targetSpec.Channels != s.outSpec.Channels
	s.mu.Unlock()

	if needsReopen {
		if err := s.open(device, targetSpec); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	s.lastDeviceChanged = device != prevDevice
	s.mu.Unlock()

	s.resampler.SetOutSpec(s.OutSpec())
	if err := s.resampler.Update(sourceSpec, blockSize); err != nil {
		return false, fmt.Errorf("sink: update resampler: %w", err)
	}

	return !sourceSpec.Equal(s.OutSpec()), nil
}

func (s *Sink) open(device devicecatalog.Device, spec types.SignalSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		if err := s.stream.StopStream(); err != nil {
			slog.Warn("sink: failed to stop previous stream", "error", err)
		}
		if err := s.stream.CloseCallback(); err != nil {
			slog.Warn("sink: failed to close previous stream", "error", err)
		}
		s.stream = nil
	}

	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  device.Index,
			ChannelCount: spec.Channels,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: float64(spec.Rate),
	}
	s.cbBuf = make([]float32, s.framesPerBuffer*spec.Channels)

	if err := stream.OpenCallback(s.framesPerBuffer, s.audioCallback); err != nil {
		return fmt.Errorf("sink: open stream on device %q: %w", device.Name, err)
	}
	if err := stream.StartStream(); err != nil {
		return fmt.Errorf("sink: start stream on device %q: %w", device.Name, err)
	}

	s.stream = stream
	s.device = device
	s.outSpec = spec
	s.ring = sampleringbuffer.New(spec.Rate, spec.Channels, ringBufferSeconds)

	slog.Info("sink: stream opened", "device", device.Name, "rate", spec.Rate, "channels", spec.Channels)
	return nil
}

// audioCallback runs on PortAudio's real-time thread. It must not
// allocate on the steady-state path and must never block.
func (s *Sink) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	channels := s.ring.Channels()
	samplesNeeded := int(frameCount) * channels

	if s.paused.Load() {
		clear(output[:samplesNeeded*2])
		return portaudio.Continue
	}

	avail := s.ring.AvailableRead()
	toAdvance := uint64(samplesNeeded)
	if avail < toAdvance {
		toAdvance = avail
		if s.OnUnderrun != nil {
			s.OnUnderrun()
		}
	}

	if cap(s.cbBuf) < samplesNeeded {
		s.cbBuf = make([]float32, samplesNeeded)
	}
	buf := s.cbBuf[:samplesNeeded]
	s.ring.Read(buf)

	gain := math.Float64frombits(s.volumeBits.Load())

	for i, f := range buf {
		v := f * float32(gain)
		sample := clampToInt16(v)
		output[i*2] = byte(sample)
		output[i*2+1] = byte(sample >> 8)
	}

	if toAdvance > 0 {
		newOffset := s.sampleOffset.Add(toAdvance)
		if s.OnSampleOffset != nil {
			s.OnSampleOffset(newOffset)
		}
	}

	return portaudio.Continue
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

// Write resamples frames to the sink's output spec and writes them
// into the ring buffer, applying click-suppression ramps.
func (s *Sink) Write(frames []float32, rampUpFrames, rampDownFrames int) (bool, error) {
	out, err := s.resampler.Process(frames)
	if err != nil {
		return false, fmt.Errorf("sink: resample: %w", err)
	}
	return s.ring.Write(out, rampUpFrames, rampDownFrames), nil
}

// HasRemainingSamples reports whether any written sample has not yet
// been read by the device callback.
func (s *Sink) HasRemainingSamples() bool {
	return s.ring.HasRemainingSamples()
}

// BufferedSamples reports how many interleaved samples are currently
// sitting in the ring buffer, decoded but not yet drained by the
// device callback.
func (s *Sink) BufferedSamples() uint64 {
	return s.ring.AvailableRead()
}

// Flush discards all buffered samples, used on cancellation so the
// next Write lands at the ring buffer's head.
func (s *Sink) Flush() {
	s.ring.Flush()
}

// SetVolume installs a new scalar gain, effective on the next
// callback tick.
func (s *Sink) SetVolume(gain float64) {
	s.volumeBits.Store(math.Float64bits(gain))
}

// ResetSampleOffset overrides the running sample-offset counter, used
// on seek and track change.
func (s *Sink) ResetSampleOffset(offset uint64) {
	s.sampleOffset.Store(offset)
}

// SampleOffset returns the current sample-offset counter value.
func (s *Sink) SampleOffset() uint64 {
	return s.sampleOffset.Load()
}

// LastOpenedDeviceChanged reports whether the most recent Prepare call
// actually switched the underlying device, as opposed to reusing the
// one already open. The decoder driver emits audio_device_changed
// unconditionally regardless of this value (matching the original
// player's literal behavior); it exists so a future UI can choose to
// gate on a real change without altering that wire behavior.
func (s *Sink) LastOpenedDeviceChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDeviceChanged
}

// Pause silences the callback's output without tearing down the
// stream; the ring buffer keeps whatever was already written.
func (s *Sink) Pause() {
	s.paused.Store(true)
}

// Resume un-silences the callback.
func (s *Sink) Resume() {
	s.paused.Store(false)
}

// Close stops and releases the PortAudio stream.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	if err := s.stream.StopStream(); err != nil {
		slog.Warn("sink: failed to stop stream on close", "error", err)
	}
	err := s.stream.CloseCallback()
	s.stream = nil
	return err
}
