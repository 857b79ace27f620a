// Package metadata implements the narrow, pure, side-effect-free
// "path → metadata?" extractor contract the Decoder Driver uses to
// build the song_change event payload. ID3v2 tags are read with
// bogem/id3v2; files without usable tags (or non-ID3 formats) fall
// back to deriving a title from the file name.
package metadata

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Track describes the subset of tag data the engine surfaces to the
// UI in a song_change event.
type Track struct {
	Title  string
	Artist string
	Album  string
}

// Extractor resolves a file path to track metadata.
type Extractor interface {
	Extract(path string) (Track, error)
}

type id3Extractor struct{}

// New creates the default Extractor: ID3v2 tags with a filename-based
// fallback for files that have none.
func New() Extractor {
	return id3Extractor{}
}

func (id3Extractor) Extract(path string) (Track, error) {
	fallback := Track{Title: titleFromPath(path)}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		// Not an ID3-tagged file (or no tags at all) — the filename
		// fallback is still a usable title.
		return fallback, nil
	}
	defer tag.Close()

	track := Track{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
	}
	if track.Title == "" {
		track.Title = fallback.Title
	}

	return track, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
