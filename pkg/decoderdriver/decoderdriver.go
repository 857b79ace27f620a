// Package decoderdriver implements the Decoder Driver: the central
// loop that opens a source, pulls packets, decodes them to PCM,
// applies click-suppression ramps, and pushes the result through the
// sink. It is the one goroutine that owns the PlaybackSession and
// coordinates with the Control Dispatcher, the Transition Manager and
// the Audio Sink.
package decoderdriver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/drgolem/audiostreamer/pkg/control"
	"github.com/drgolem/audiostreamer/pkg/metadata"
	"github.com/drgolem/audiostreamer/pkg/settings"
	"github.com/drgolem/audiostreamer/pkg/sink"
	"github.com/drgolem/audiostreamer/pkg/trackreader"
	"github.com/drgolem/audiostreamer/pkg/transition"
	"github.com/drgolem/audiostreamer/pkg/types"
	"github.com/drgolem/audiostreamer/pkg/visualizer"
)

// endOfStreamPollInterval is how often the driver checks whether the
// sink has drained its buffer before emitting `stopped`.
const endOfStreamPollInterval = 500 * time.Millisecond

// Driver runs the decode loop on its own goroutine via Run.
type Driver struct {
	dispatcher *control.Dispatcher
	sink       *sink.Sink
	transition *transition.Manager
	extractor  metadata.Extractor
	settings   settings.Store
	visualizer visualizer.Publisher

	pauseMu sync.Mutex
	cond    *sync.Cond
	paused  bool

	cancel bool // set and cleared again inside cancelAndReset; checked before each write and in the end-of-stream drain wait, not at the loop head

	cur *session

	// Event hooks. All are optional; none may block the decode thread
	// for long since they are invoked synchronously from it (except
	// sink sample-offset ticks, which arrive from the callback thread).
	OnFileSamples   func(totalFrames uint64)
	OnSongChange    func(metadata.Track)
	OnDeviceChanged func(device string)
	OnPlaying       func()
	OnPaused        func()
	OnStopped       func(finalOffset uint64)
}

type session struct {
	path   string
	reader *trackreader.Reader

	seekFrames uint64 // packets with ts below this are dropped

	loopEnabled     bool
	loopStartFrames uint64
	loopEndFrames   uint64

	isTransition bool // gapless continuation: suppress ramps and gate UI events
	volume       float64
	deviceName   string
	deviceSet    bool // false means "follow current/system default"

	pending      *trackreader.Packet // one-packet lookahead for end-of-session ramp placement
	rampUpOnFirst bool
}

// New creates a Driver wired to its collaborators. extractor, store,
// and pub may individually be nil; each missing collaborator simply
// disables the feature it backs (no metadata in song_change, default
// settings, no PCM published for visualization).
func New(dispatcher *control.Dispatcher, sk *sink.Sink, extractor metadata.Extractor, store settings.Store, pub visualizer.Publisher) *Driver {
	d := &Driver{
		dispatcher: dispatcher,
		sink:       sk,
		transition: transition.New(),
		extractor:  extractor,
		settings:   store,
		visualizer: pub,
	}
	d.cond = sync.NewCond(&d.pauseMu)
	dispatcher.OnResume(d.wake)
	return d
}

// Run drives the decode loop until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if d.cur == nil {
			if !d.waitForSession(ctx) {
				return
			}
			continue
		}
		d.runSession(ctx)
	}
}

// waitForSession blocks (the one documented idle suspension point)
// until a StreamFile event starts a session, or ctx is cancelled.
func (d *Driver) waitForSession(ctx context.Context) bool {
	for {
		e, ok := d.dispatcher.Recv(ctx)
		if !ok {
			return false
		}
		switch {
		case e.StreamFile != nil:
			d.startSession(*e.StreamFile, false)
			return true
		case e.Volume != nil:
			// Not applied or kept: the next session's volume comes from
			// its StreamFile event, or 1.0 when that carries none.
		case e.Pause != nil, e.Resume != nil:
			// No session to gate; ignored while idle.
		}
	}
}

func (d *Driver) startSession(e control.StreamFileEvent, isTransition bool) {
	reader, err := trackreader.Open(e.Path)
	if err != nil {
		slog.Error("decoderdriver: failed to open source", "path", e.Path, "error", err)
		return
	}

	// A nil volume or device in the event keeps the current session's.
	volume := 1.0
	deviceName := ""
	deviceSet := false
	if d.cur != nil {
		volume = d.cur.volume
		deviceName = d.cur.deviceName
		deviceSet = d.cur.deviceSet
	}
	if e.Volume != nil {
		volume = *e.Volume
	}

	if e.OutputDevice != nil {
		deviceName = *e.OutputDevice
		deviceSet = true
	} else if d.settings != nil {
		// Settings are consulted only when the command itself didn't
		// pin a device, per the "read on each session start" contract.
		p := d.settings.Playback()
		d.sink.SetFollowSystemDefault(p.FollowSystemOutput)
		if !p.FollowSystemOutput && p.OutputDevice != "" {
			deviceName = p.OutputDevice
			deviceSet = true
		}
	}

	seekSec := e.SeekSec
	sess := &session{
		path:          e.Path,
		reader:        reader,
		seekFrames:    reader.SeekFrames(seekSec),
		isTransition:  isTransition,
		volume:        volume,
		deviceName:    deviceName,
		deviceSet:     deviceSet,
		rampUpOnFirst: !isTransition,
	}
	d.cur = sess
	d.cancel = false

	d.sink.SetVolume(volume)

	if _, err := d.sink.Prepare(reader.Spec(), deviceName, reader.MaxFramesPerPacket()); err != nil {
		slog.Error("decoderdriver: failed to prepare sink", "error", err)
	}

	if d.OnFileSamples != nil {
		total, known := reader.TotalFrames()
		if !known {
			total = 0
		}
		d.OnFileSamples(total)
	}

	// audio_device_changed fires unconditionally on every non-transition
	// session start, even when the device didn't actually change; see
	// SPEC_FULL.md's Supplemented Features for why this is kept literal.
	if !isTransition && d.OnDeviceChanged != nil {
		d.OnDeviceChanged(deviceName)
	}

	if !isTransition {
		d.emitSongChange(e.Path)
		d.sink.ResetSampleOffset(sess.seekFrames * uint64(reader.Spec().Channels))
	} else {
		d.transition.Arm(time.Now())
	}
}

func (d *Driver) emitSongChange(path string) {
	if d.OnSongChange == nil {
		return
	}
	track := metadata.Track{}
	if d.extractor != nil {
		if t, err := d.extractor.Extract(path); err == nil {
			track = t
		}
	}
	d.OnSongChange(track)
}

// runSession drives the packet loop for the current session until it
// ends (error, cancellation, or natural end-of-stream with no
// queued next track).
func (d *Driver) runSession(ctx context.Context) {
	sess := d.cur

	for {
		if ctx.Err() != nil {
			return
		}

		d.handleEvent(d.dispatcher.PollEvent())
		if d.cur != sess {
			return // a control event replaced or ended the session
		}

		d.waitWhilePaused()
		// A command issued during pause must be observed before decoding
		// resumes: poll once more right after waking.
		d.handleEvent(d.dispatcher.PollEvent())
		if d.cur != sess {
			return
		}

		if sess.pending == nil {
			pkt, err := sess.reader.NextPacket()
			if err != nil {
				if !d.atEndOfStream(sess, err) {
					return
				}
				continue
			}
			sess.pending = &pkt
		}

		if sess.isTransition && d.transition.Ready(time.Now()) {
			d.completeTransition(sess)
		}

		next, err := sess.reader.NextPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("decoderdriver: decode error, skipping packet", "error", err)
				continue
			}
			// sess.pending is the true last packet of the stream.
			if !d.atEndOfStream(sess, err) {
				return
			}
			continue
		}

		prevPending := sess.pending
		d.writePending(sess, false)
		if sess.pending != prevPending {
			// writePending reset the reader for a loop wrap-around;
			// `next` was decoded from the pre-reset reader and must be
			// discarded rather than adopted as the new lookahead packet.
			continue
		}
		sess.pending = &next
	}
}

// writePending writes sess.pending to the sink, applying ramp-up on a
// session's very first packet and ramp-down when isFinal is set by the
// end-of-stream path. Packets entirely before the seek position are
// dropped rather than written.
func (d *Driver) writePending(sess *session, isFinal bool) {
	pkt := sess.pending
	if pkt == nil {
		return
	}

	if d.cancel {
		return
	}

	if sess.loopEnabled && pkt.TS >= sess.loopEndFrames {
		if err := sess.reader.Reset(); err != nil {
			slog.Error("decoderdriver: failed to rewind for loop", "error", err)
			return
		}
		sess.seekFrames = sess.loopStartFrames
		sess.pending = nil
		sess.isTransition = true
		d.transition.Arm(time.Now())
		return
	}

	if pkt.TS < sess.seekFrames {
		return
	}

	rampUp := 0
	if sess.rampUpOnFirst {
		rampUp = int(pkt.Dur)
		sess.rampUpOnFirst = false
	}
	rampDown := 0
	if isFinal {
		rampDown = int(pkt.Dur)
	}

	if ok, err := d.sink.Write(pkt.Samples, rampUp, rampDown); err != nil {
		slog.Error("decoderdriver: sink write failed", "error", err)
	} else if !ok {
		slog.Warn("decoderdriver: sink write cancelled (buffer full and cancelled)")
	}

	if d.visualizer != nil {
		d.visualizer.Publish(float32BytesBestEffort(pkt.Samples))
	}
}

// atEndOfStream handles an io.EOF (or a fatal non-decode error) from
// NextPacket. Returns false if the caller's runSession loop should
// return (session fully torn down).
func (d *Driver) atEndOfStream(sess *session, err error) bool {
	if !errors.Is(err, io.EOF) {
		slog.Error("decoderdriver: fatal I/O error, ending session", "error", err)
		d.teardownSession(sess)
		return false
	}

	if next, ok := d.dispatcher.DrainNextTrack(); ok {
		d.writePending(sess, false) // gapless: no ramp-down on the old tail
		sess.reader.Close()
		d.startSession(control.StreamFileEvent{
			Path:    next.Path,
			SeekSec: next.SeekSec,
			Volume:  next.Volume,
		}, true)
		return true
	}

	d.writePending(sess, true) // genuine stop: ramp-down the true last packet
	sess.pending = nil

	for d.sink.HasRemainingSamples() {
		if d.cancel {
			break
		}
		time.Sleep(endOfStreamPollInterval)
	}

	d.sink.Pause()
	finalOffset := d.sink.SampleOffset()
	d.teardownSession(sess)
	if d.OnStopped != nil {
		d.OnStopped(finalOffset)
	}
	return false
}

func (d *Driver) completeTransition(sess *session) {
	sess.isTransition = false
	d.sink.ResetSampleOffset(sess.seekFrames * uint64(sess.reader.Spec().Channels))
	d.emitSongChange(sess.path)
}

func (d *Driver) teardownSession(sess *session) {
	if sess.reader != nil {
		sess.reader.Close()
	}
	if d.cur == sess {
		d.cur = nil
	}
}

// handleEvent applies one control event, if present, to the current
// session. Reused verbatim both during normal decoding and right
// after waking from pause, per the "handle-then-restore-pause"
// ordering.
func (d *Driver) handleEvent(e control.Event, ok bool) {
	if !ok {
		return
	}

	switch {
	case e.StreamFile != nil:
		d.cancelAndReset()
		d.startSession(*e.StreamFile, false)

	case e.LoopRegion != nil:
		d.applyLoopRegion(*e.LoopRegion)

	case e.ChangeDevice != nil:
		d.applyChangeDevice(*e.ChangeDevice)

	case e.Volume != nil:
		if d.cur != nil {
			d.cur.volume = e.Volume.Value
		}
		d.sink.SetVolume(e.Volume.Value)

	case e.Pause != nil:
		d.pauseDecoding()

	case e.Resume != nil:
		d.resumeDecoding()
	}
}

func (d *Driver) applyLoopRegion(e control.LoopRegionEvent) {
	if d.cur == nil {
		return
	}
	sess := d.cur
	rate := sess.reader.Spec().Rate

	seekFrames := sess.seekFrames
	if e.Enabled {
		sess.loopEnabled = true
		sess.loopStartFrames = uint64(e.StartSec * float64(rate))
		sess.loopEndFrames = uint64(e.EndSec * float64(rate))
		seekFrames = sess.loopStartFrames
	} else {
		// Best-effort continuation: resume linear playback from where
		// the loop region would next have wrapped, rather than
		// replaying exact elapsed-time bookkeeping (tracking true
		// elapsed frames across n loop iterations is out of scope).
		if sess.loopEnabled {
			seekFrames = sess.loopEndFrames
		}
		sess.loopEnabled = false
	}

	d.reloadSamePath(sess, seekFrames, true)
}

func (d *Driver) applyChangeDevice(e control.ChangeDeviceEvent) {
	if d.cur == nil {
		return
	}
	sess := d.cur

	deviceName := ""
	if e.Device != nil {
		deviceName = *e.Device
	}
	sess.deviceName = deviceName
	sess.deviceSet = e.Device != nil

	currentFrames := d.sink.SampleOffset() / uint64(sess.reader.Spec().Channels)
	d.reloadSamePath(sess, currentFrames, true)

	if d.OnDeviceChanged != nil {
		d.OnDeviceChanged(deviceName)
	}
	d.sink.Pause()
}

func (d *Driver) reloadSamePath(sess *session, seekFrames uint64, isReset bool) {
	path := sess.path
	volume := sess.volume
	deviceName := sess.deviceName

	d.cancelAndReset()
	sess.reader.Close()

	reader, err := trackreader.Open(path)
	if err != nil {
		slog.Error("decoderdriver: failed to reopen for reload", "path", path, "error", err)
		d.teardownSession(sess)
		return
	}

	sess.reader = reader
	sess.seekFrames = seekFrames
	sess.pending = nil
	sess.rampUpOnFirst = isReset
	sess.volume = volume
	sess.deviceName = deviceName

	_, _ = d.sink.Prepare(reader.Spec(), deviceName, reader.MaxFramesPerPacket())
	d.sink.Flush()
	d.sink.ResetSampleOffset(seekFrames * uint64(reader.Spec().Channels))
}

func (d *Driver) cancelAndReset() {
	d.cancel = true
	d.sink.Flush()
	d.cancel = false
}

func (d *Driver) pauseDecoding() {
	d.pauseMu.Lock()
	d.paused = true
	d.pauseMu.Unlock()
	d.sink.Pause()
	if d.OnPaused != nil {
		d.OnPaused()
	}
}

func (d *Driver) resumeDecoding() {
	d.wake()
	d.sink.Resume()
	if d.OnPlaying != nil {
		d.OnPlaying()
	}
}

func (d *Driver) wake() {
	d.pauseMu.Lock()
	d.paused = false
	d.pauseMu.Unlock()
	d.cond.Broadcast()
}

func (d *Driver) waitWhilePaused() {
	d.pauseMu.Lock()
	for d.paused {
		d.cond.Wait()
	}
	d.pauseMu.Unlock()
}

// float32BytesBestEffort is a placeholder byte encoding for the
// visualization publisher; any little-endian f32 layout is acceptable
// since the UI-side consumer is an external collaborator out of this
// engine's scope.
func float32BytesBestEffort(samples []float32) []byte {
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

// Spec is exposed for callers (e.g. the engine) that need to report
// the currently playing track's native format.
func (d *Driver) Spec() (types.SignalSpec, bool) {
	if d.cur == nil || d.cur.reader == nil {
		return types.SignalSpec{}, false
	}
	return d.cur.reader.Spec(), true
}
