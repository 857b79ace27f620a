package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileStoreMissingFileYieldsDefaults(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("NewFileStore should not fail on a missing file: %v", err)
	}
	p := store.Playback()
	if p.OutputDevice != "" || p.FollowSystemOutput {
		t.Errorf("got %+v, want zero value", p)
	}
}

func TestNewFileStoreReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "output_device = \"USB DAC\"\nfollow_system_output = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test settings file: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	p := store.Playback()
	if p.OutputDevice != "USB DAC" {
		t.Errorf("OutputDevice = %q, want USB DAC", p.OutputDevice)
	}
	if !p.FollowSystemOutput {
		t.Error("FollowSystemOutput = false, want true")
	}
}
