// Package engine wires the Sample Ring Buffer, Resampler, Audio Sink,
// Decoder Driver, Control Dispatcher, Transition Manager and Peaks
// Extractor into the single external command/event surface a UI talks
// to. It owns no playback logic of its own beyond that wiring.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/audiostreamer/pkg/control"
	"github.com/drgolem/audiostreamer/pkg/decoderdriver"
	"github.com/drgolem/audiostreamer/pkg/devicecatalog"
	"github.com/drgolem/audiostreamer/pkg/metadata"
	"github.com/drgolem/audiostreamer/pkg/peaks"
	"github.com/drgolem/audiostreamer/pkg/settings"
	"github.com/drgolem/audiostreamer/pkg/sink"
	"github.com/drgolem/audiostreamer/pkg/types"
	"github.com/drgolem/audiostreamer/pkg/visualizer"
)

// Engine is the top-level object a UI or CLI front-end constructs and
// drives. Run the decode loop on its own goroutine via Run, then issue
// commands from any goroutine.
type Engine struct {
	dispatcher *control.Dispatcher
	driver     *decoderdriver.Driver
	sink       *sink.Sink
	catalog    devicecatalog.Catalog
	peaks      *peaks.Extractor

	statusMu    sync.Mutex // guards fileName/pendingPath/startedAt for GetPlaybackStatus
	fileName    string
	pendingPath string
	startedAt   time.Time

	// Event hooks, one per row of spec §6's event table. All optional.
	OnFileSamples        func(totalFrames uint64)
	OnSongChange         func(metadata.Track)
	OnAudioDeviceChanged func(device string)
	OnPlaying            func()
	OnPaused             func()
	OnStopped            func(finalOffset uint64)
	OnWaveform           func(peaks []float32)
	OnSampleOffset       func(offset uint64)
}

// New constructs an Engine. extractor, store, and pub may be nil, in
// which case the feature they back degrades per decoderdriver.New's
// documented fallbacks.
func New(catalog devicecatalog.Catalog, outSpec types.SignalSpec, extractor metadata.Extractor, store settings.Store, pub visualizer.Publisher) *Engine {
	sk := sink.New(catalog, outSpec)
	dispatcher := control.New(32)
	driver := decoderdriver.New(dispatcher, sk, extractor, store, pub)

	e := &Engine{
		dispatcher: dispatcher,
		driver:     driver,
		sink:       sk,
		catalog:    catalog,
		peaks:      peaks.New(),
	}

	driver.OnFileSamples = func(total uint64) {
		if e.OnFileSamples != nil {
			e.OnFileSamples(total)
		}
	}
	driver.OnSongChange = func(t metadata.Track) {
		e.statusMu.Lock()
		e.fileName = e.pendingPath
		e.startedAt = time.Now()
		e.statusMu.Unlock()
		if e.OnSongChange != nil {
			e.OnSongChange(t)
		}
	}
	driver.OnDeviceChanged = func(device string) {
		if e.OnAudioDeviceChanged != nil {
			e.OnAudioDeviceChanged(device)
		}
	}
	driver.OnPlaying = func() {
		if e.OnPlaying != nil {
			e.OnPlaying()
		}
	}
	driver.OnPaused = func() {
		if e.OnPaused != nil {
			e.OnPaused()
		}
	}
	driver.OnStopped = func(finalOffset uint64) {
		if e.OnStopped != nil {
			e.OnStopped(finalOffset)
		}
	}

	sk.OnSampleOffset = func(offset uint64) {
		if e.OnSampleOffset != nil {
			e.OnSampleOffset(offset)
		}
	}
	sk.OnUnderrun = func() {
		slog.Debug("engine: sink underrun")
	}

	return e
}

// Run drives the decode loop until ctx is cancelled. Intended to be
// called once, on its own goroutine.
func (e *Engine) Run(ctx context.Context) {
	e.driver.Run(ctx)
}

// Close releases the underlying audio stream.
func (e *Engine) Close() error {
	return e.sink.Close()
}

// StreamFile begins a new playback session, per the stream_file
// command.
func (e *Engine) StreamFile(path string, seekSec, volume float64, outputDevice *string) {
	e.statusMu.Lock()
	e.pendingPath = path
	e.statusMu.Unlock()

	e.dispatcher.StreamFile(control.StreamFileEvent{
		Path:         path,
		SeekSec:      seekSec,
		Volume:       &volume,
		OutputDevice: outputDevice,
	})
}

// LoopRegion enables, disables, or retargets a loop region on the
// current session, per the loop_region command.
func (e *Engine) LoopRegion(enabled bool, startSec, endSec float64) {
	e.dispatcher.LoopRegion(control.LoopRegionEvent{
		Enabled:  enabled,
		StartSec: startSec,
		EndSec:   endSec,
	})
}

// ChangeAudioDevice switches the output device, per the
// change_audio_device command. device == nil means follow the system
// default.
func (e *Engine) ChangeAudioDevice(device *string) {
	e.dispatcher.ChangeDevice(control.ChangeDeviceEvent{Device: device})
}

// Volume applies a live gain change, per the volume command.
func (e *Engine) Volume(value float64) {
	e.dispatcher.Volume(value)
}

// NextTrack queues a track for the next gapless end-of-stream
// transition, per the next_track command.
func (e *Engine) NextTrack(path string, seekSec, volume float64) {
	e.statusMu.Lock()
	e.pendingPath = path
	e.statusMu.Unlock()

	e.dispatcher.QueueNextTrack(control.StreamFileEvent{
		Path:    path,
		SeekSec: seekSec,
		Volume:  &volume,
	})
}

// Pause toggles DecodingState to paused, per the pause command.
func (e *Engine) Pause() {
	e.dispatcher.Pause()
}

// Resume toggles DecodingState to active, per the resume command.
func (e *Engine) Resume() {
	e.dispatcher.Resume()
}

// GetDevices enumerates the named devices this engine's catalog knows
// about plus the default device, per the get_devices command. Per
// spec.md §1, enumeration is scoped to name-based lookup rather than a
// live device-capability probe.
func (e *Engine) GetDevices() (devices []devicecatalog.Device, defaultDevice devicecatalog.Device) {
	lister, ok := e.catalog.(devicecatalog.Lister)
	if !ok {
		def, _ := e.catalog.Default()
		return nil, def
	}
	return lister.List(), lister.DefaultDevice()
}

// GetPeaks runs a one-shot, cancellable RMS waveform pass over path,
// per the get_peaks command. Progressive results arrive via OnWaveform
// as the pass runs; the final array is also returned on completion.
func (e *Engine) GetPeaks(ctx context.Context, path string) ([]float32, error) {
	e.peaks.OnWaveform = func(p []float32) {
		if e.OnWaveform != nil {
			e.OnWaveform(p)
		}
	}
	return e.peaks.Extract(ctx, path)
}

// GetPlaybackStatus implements types.PlaybackMonitor, reporting the
// currently playing file, its format, and where playback stands: how
// many interleaved samples have reached the device versus how many sit
// decoded-but-unplayed in the sink's ring buffer.
func (e *Engine) GetPlaybackStatus() types.PlaybackStatus {
	e.statusMu.Lock()
	fileName := e.fileName
	startedAt := e.startedAt
	e.statusMu.Unlock()

	spec := e.sink.OutSpec()

	var elapsed time.Duration
	if !startedAt.IsZero() {
		elapsed = time.Since(startedAt)
	}

	return types.PlaybackStatus{
		FileName:        fileName,
		SampleRate:      int(spec.Rate),
		Channels:        spec.Channels,
		BitsPerSample:   16,
		PlayedSamples:   e.sink.SampleOffset(),
		BufferedSamples: e.sink.BufferedSamples(),
		ElapsedTime:     elapsed,
	}
}
