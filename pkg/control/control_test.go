package control

import "testing"

func TestPollEventPreservesInsertionOrder(t *testing.T) {
	d := New(8)
	d.Volume(0.5)
	d.Pause()
	d.Resume()

	e1, ok := d.PollEvent()
	if !ok || e1.Volume == nil || e1.Volume.Value != 0.5 {
		t.Fatalf("expected first event to be Volume, got %+v", e1)
	}
	e2, ok := d.PollEvent()
	if !ok || e2.Pause == nil {
		t.Fatalf("expected second event to be Pause, got %+v", e2)
	}
	e3, ok := d.PollEvent()
	if !ok || e3.Resume == nil {
		t.Fatalf("expected third event to be Resume, got %+v", e3)
	}
}

func TestPollEventEmptyReturnsFalse(t *testing.T) {
	d := New(1)
	if _, ok := d.PollEvent(); ok {
		t.Fatal("expected PollEvent on empty dispatcher to return false")
	}
}

func TestQueueNextTrackCollapsesToLatest(t *testing.T) {
	d := New(1)
	d.QueueNextTrack(StreamFileEvent{Path: "a.flac"})
	d.QueueNextTrack(StreamFileEvent{Path: "b.flac"})
	d.QueueNextTrack(StreamFileEvent{Path: "c.flac"})

	e, ok := d.DrainNextTrack()
	if !ok {
		t.Fatal("expected a queued next-track entry")
	}
	if e.Path != "c.flac" {
		t.Errorf("got %q, want latest entry c.flac", e.Path)
	}

	if _, ok := d.DrainNextTrack(); ok {
		t.Fatal("expected only one collapsed entry")
	}
}

func TestChangeDeviceWakesResumeHook(t *testing.T) {
	d := New(4)
	called := false
	d.OnResume(func() { called = true })

	dev := "USB DAC"
	d.ChangeDevice(ChangeDeviceEvent{Device: &dev})

	if !called {
		t.Fatal("expected ChangeDevice to invoke the resume hook")
	}
	e, ok := d.PollEvent()
	if !ok || e.ChangeDevice == nil || *e.ChangeDevice.Device != "USB DAC" {
		t.Fatalf("expected ChangeDevice event to be queued, got %+v", e)
	}
}
