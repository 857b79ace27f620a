// Package devicecatalog resolves an output device name to a PortAudio
// device index. Full device enumeration (listing every device and its
// supported rate ranges) is an external collaborator's job and
// explicitly out of scope here; this package only does name-based
// lookup plus a best-effort rate-support check, matching the narrow
// "Device library" contract the sink and decoder driver rely on.
package devicecatalog

import (
	"fmt"
	"sync"
)

// Device identifies a PortAudio output device.
type Device struct {
	Name  string
	Index int
}

// Catalog resolves device names to Devices and reports whether a
// device can run at a given sample rate.
type Catalog interface {
	// Resolve looks up name. An empty name resolves to the default
	// device. Unknown non-empty names fall back to the default device
	// as well, matching the "follow system default" behavior the sink
	// needs when an explicit device disappears.
	Resolve(name string) (Device, error)

	// Default returns the system default output device.
	Default() (Device, error)

	// SupportsRate reports whether d can be opened at rate.
	SupportsRate(d Device, rate uint32) bool
}

// Lister is implemented by catalogs that can additionally report every
// device they know about, for the get_devices command. Kept separate
// from Catalog since name-based lookup alone satisfies the sink and
// decoder driver's needs.
type Lister interface {
	List() []Device
	DefaultDevice() Device
}

// staticCatalog is seeded with a fixed name→index table, since the
// PortAudio binding this engine builds on (github.com/drgolem/go-portaudio)
// does not expose an enumeration or per-device capability-range API —
// only opening a stream against a DeviceIndex. Registering a device
// updates the table at runtime (e.g. once a richer device library is
// wired in), without changing the Catalog contract callers depend on.
type staticCatalog struct {
	mu            sync.RWMutex
	byName        map[string]Device
	defaultDevice Device
}

// New creates a Catalog seeded with defaultDevice as both the fallback
// and the device returned for an empty name.
func New(defaultDevice Device) Catalog {
	return &staticCatalog{
		byName:        map[string]Device{defaultDevice.Name: defaultDevice},
		defaultDevice: defaultDevice,
	}
}

// NewWithDevices creates a Catalog seeded with defaultDevice plus a set
// of additional named devices (e.g. loaded from settings at startup).
func NewWithDevices(defaultDevice Device, named []Device) Catalog {
	c := &staticCatalog{
		byName:        map[string]Device{defaultDevice.Name: defaultDevice},
		defaultDevice: defaultDevice,
	}
	for _, d := range named {
		c.byName[d.Name] = d
	}
	return c
}

// Register adds or updates a named device in the catalog.
func (c *staticCatalog) Register(d Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[d.Name] = d
}

func (c *staticCatalog) Resolve(name string) (Device, error) {
	if name == "" {
		return c.Default()
	}

	c.mu.RLock()
	d, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	return c.Default()
}

func (c *staticCatalog) Default() (Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaultDevice.Name == "" {
		return Device{}, fmt.Errorf("devicecatalog: no default device configured")
	}
	return c.defaultDevice, nil
}

// List returns every device registered in the catalog, in no
// particular order.
func (c *staticCatalog) List() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Device, 0, len(c.byName))
	for _, d := range c.byName {
		out = append(out, d)
	}
	return out
}

// DefaultDevice returns the catalog's configured default device,
// zero-valued if none was configured.
func (c *staticCatalog) DefaultDevice() Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultDevice
}

// SupportsRate always reports true: the wrapped PortAudio binding has
// no per-device capability-range query, so the sink always reopens at
// the source rate. A failed open is returned as an error from the
// sink's Prepare; it does not fall back to the resampler.
func (c *staticCatalog) SupportsRate(_ Device, _ uint32) bool {
	return true
}
