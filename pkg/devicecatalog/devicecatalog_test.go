package devicecatalog

import "testing"

func TestResolveEmptyNameReturnsDefault(t *testing.T) {
	def := Device{Name: "Built-in Output", Index: 0}
	cat := New(def)

	d, err := cat.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") failed: %v", err)
	}
	if d != def {
		t.Errorf("got %+v, want default %+v", d, def)
	}
}

func TestResolveUnknownNameFallsBackToDefault(t *testing.T) {
	def := Device{Name: "Built-in Output", Index: 0}
	cat := New(def)

	d, err := cat.Resolve("Nonexistent USB DAC")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d != def {
		t.Errorf("got %+v, want default fallback %+v", d, def)
	}
}

func TestResolveKnownNameReturnsRegisteredDevice(t *testing.T) {
	def := Device{Name: "Built-in Output", Index: 0}
	usb := Device{Name: "USB DAC", Index: 2}
	cat := NewWithDevices(def, []Device{usb})

	d, err := cat.Resolve("USB DAC")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d != usb {
		t.Errorf("got %+v, want %+v", d, usb)
	}
}

func TestListIncludesDefaultAndRegisteredDevices(t *testing.T) {
	def := Device{Name: "Built-in Output", Index: 0}
	usb := Device{Name: "USB DAC", Index: 2}
	cat := NewWithDevices(def, []Device{usb}).(Lister)

	if cat.DefaultDevice() != def {
		t.Errorf("DefaultDevice() = %+v, want %+v", cat.DefaultDevice(), def)
	}

	devices := cat.List()
	if len(devices) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(devices))
	}
}
