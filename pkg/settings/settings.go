// Package settings implements the engine's settings-store contract:
// `output_device: string?` and `follow_system_output: bool`, read on
// each session start. Backed by koanf with a TOML file provider,
// matching how the rest of the example corpus layers configuration
// (koanf + parsers/toml + providers/file) rather than a hand-rolled
// flat-file reader.
package settings

import (
	"fmt"
	"sync"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Playback holds the settings read at each session start.
type Playback struct {
	OutputDevice       string `koanf:"output_device"`
	FollowSystemOutput bool   `koanf:"follow_system_output"`
}

// Store exposes the settings the Decoder Driver consults when
// opening a session.
type Store interface {
	Playback() Playback
	Reload() error
}

// fileStore loads settings from a TOML file via koanf and caches the
// parsed result; Reload re-reads the file (e.g. after the UI writes a
// new preferred device).
type fileStore struct {
	mu   sync.RWMutex
	path string
	k    *koanf.Koanf
	cur  Playback
}

// NewFileStore loads settings from a TOML file at path. A missing
// file is not an error: Playback() returns the zero value (no
// preferred device, do not force system default) until one exists.
func NewFileStore(path string) (Store, error) {
	s := &fileStore{path: path, k: koanf.New(".")}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Reload() error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.path), toml.Parser()); err != nil {
		// Treat "no settings file yet" as defaults, not a fatal error.
		s.mu.Lock()
		s.k = k
		s.cur = Playback{}
		s.mu.Unlock()
		return nil
	}

	var p Playback
	if err := k.Unmarshal("", &p); err != nil {
		return fmt.Errorf("settings: unmarshal %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.k = k
	s.cur = p
	s.mu.Unlock()
	return nil
}

func (s *fileStore) Playback() Playback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}
