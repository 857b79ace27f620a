// Package control implements the Control Dispatcher: a single FIFO of
// control events with at-most-once delivery and insertion-order
// preservation, plus a separate next-track queue that collapses
// multiple queued entries down to the latest one.
package control

import "context"

// StreamFileEvent begins a new session.
type StreamFileEvent struct {
	Path          string
	SeekSec       float64
	Volume        *float64 // nil keeps the current session's volume (1.0 when no session is loaded)
	OutputDevice  *string  // nil keeps the current session's device unless the settings store names one (the default device when neither applies)
}

// LoopRegionEvent enables, disables, or retargets a loop region on the
// currently playing session.
type LoopRegionEvent struct {
	Enabled bool
	StartSec float64
	EndSec   float64
}

// ChangeDeviceEvent switches the output device.
type ChangeDeviceEvent struct {
	Device *string // nil means "follow system default"
}

// VolumeEvent is a live gain change.
type VolumeEvent struct {
	Value float64
}

// PauseEvent requests the decode loop park on the pause gate.
type PauseEvent struct{}

// ResumeEvent requests the decode loop leave the pause gate.
type ResumeEvent struct{}

// Event is the union of everything that can arrive on the dispatcher.
// Exactly one of the typed fields is set.
type Event struct {
	StreamFile   *StreamFileEvent
	LoopRegion   *LoopRegionEvent
	ChangeDevice *ChangeDeviceEvent
	Volume       *VolumeEvent
	Pause        *PauseEvent
	Resume       *ResumeEvent
}

// Dispatcher is the single FIFO the decode loop drains, plus a
// separate collapsing queue for queued next-tracks.
type Dispatcher struct {
	events    chan Event
	nextTrack chan StreamFileEvent
	resumeFn  func()
}

// New creates a Dispatcher. capacity bounds the main event queue;
// callers that need backpressure-free delivery from the UI thread
// should size it generously (events are small and short-lived).
func New(capacity int) *Dispatcher {
	return &Dispatcher{
		events:    make(chan Event, capacity),
		nextTrack: make(chan StreamFileEvent, 1),
	}
}

// OnResume is invoked whenever a ChangeDevice command is sent, per the
// "device change while paused must wake the decode loop" rule in
// §4.5; wire it to the same resume path Resume() uses.
func (d *Dispatcher) OnResume(fn func()) {
	d.resumeFn = fn
}

// Send enqueues an event for the decode loop. Never blocks the caller
// beyond the channel's buffered capacity.
func (d *Dispatcher) Send(e Event) {
	d.events <- e
}

// StreamFile enqueues a new-session request.
func (d *Dispatcher) StreamFile(e StreamFileEvent) {
	d.Send(Event{StreamFile: &e})
}

// LoopRegion enqueues a loop-region change.
func (d *Dispatcher) LoopRegion(e LoopRegionEvent) {
	d.Send(Event{LoopRegion: &e})
}

// ChangeDevice enqueues a device change and wakes the decode loop if
// it is currently parked on the pause gate, so the command is
// observed before pause is restored.
func (d *Dispatcher) ChangeDevice(e ChangeDeviceEvent) {
	d.Send(Event{ChangeDevice: &e})
	if d.resumeFn != nil {
		d.resumeFn()
	}
}

// Volume enqueues a live gain change.
func (d *Dispatcher) Volume(v float64) {
	d.Send(Event{Volume: &VolumeEvent{Value: v}})
}

// Pause enqueues a pause request.
func (d *Dispatcher) Pause() {
	d.Send(Event{Pause: &PauseEvent{}})
}

// Resume enqueues a resume request.
func (d *Dispatcher) Resume() {
	d.Send(Event{Resume: &ResumeEvent{}})
}

// QueueNextTrack enqueues a track for the end-of-stream transition,
// replacing any previously queued (but not yet consumed) entry.
func (d *Dispatcher) QueueNextTrack(e StreamFileEvent) {
	for {
		select {
		case <-d.nextTrack:
			continue // drop the stale entry, keep draining
		default:
		}
		break
	}
	d.nextTrack <- e
}

// PollEvent returns the next queued event without blocking, or
// (Event{}, false) if the queue is empty.
func (d *Dispatcher) PollEvent() (Event, bool) {
	select {
	case e := <-d.events:
		return e, true
	default:
		return Event{}, false
	}
}

// Recv blocks until an event is available or ctx is done, returning
// (Event{}, false) in the latter case. This is the decode loop's sole
// suspension point while idle between sessions.
func (d *Dispatcher) Recv(ctx context.Context) (Event, bool) {
	select {
	case e := <-d.events:
		return e, true
	case <-ctx.Done():
		return Event{}, false
	}
}

// DrainNextTrack returns the latest queued next-track entry, if any,
// without blocking. Used only at end-of-stream.
func (d *Dispatcher) DrainNextTrack() (StreamFileEvent, bool) {
	select {
	case e := <-d.nextTrack:
		return e, true
	default:
		return StreamFileEvent{}, false
	}
}
