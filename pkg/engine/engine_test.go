package engine

import (
	"testing"

	"github.com/drgolem/audiostreamer/pkg/devicecatalog"
	"github.com/drgolem/audiostreamer/pkg/types"
)

func TestGetDevicesReturnsCatalogDefaultAndList(t *testing.T) {
	def := devicecatalog.Device{Name: "default", Index: 0}
	usb := devicecatalog.Device{Name: "USB DAC", Index: 2}
	catalog := devicecatalog.NewWithDevices(def, []devicecatalog.Device{usb})

	e := New(catalog, types.SignalSpec{Rate: 44100, Channels: 2}, nil, nil, nil)

	devices, defaultDevice := e.GetDevices()
	if defaultDevice != def {
		t.Errorf("defaultDevice = %+v, want %+v", defaultDevice, def)
	}

	found := false
	for _, d := range devices {
		if d == usb {
			found = true
		}
	}
	if !found {
		t.Errorf("devices = %+v, want it to contain %+v", devices, usb)
	}
}

func TestStreamFileDoesNotPanicWithNilCollaborators(t *testing.T) {
	catalog := devicecatalog.New(devicecatalog.Device{Name: "default", Index: 0})
	e := New(catalog, types.SignalSpec{Rate: 44100, Channels: 2}, nil, nil, nil)

	// StreamFile only enqueues a command; it must never block the
	// caller even though nothing is draining the queue yet.
	e.StreamFile("track.mp3", 0, 1.0, nil)
	e.Pause()
	e.Resume()
	e.Volume(0.5)
}
