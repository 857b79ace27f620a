package metadata

import "testing"

func TestTitleFromPathStripsExtension(t *testing.T) {
	cases := map[string]string{
		"/music/a.flac":          "a",
		"/music/Artist - Song.mp3": "Artist - Song",
		"track.wav":              "track",
	}
	for path, want := range cases {
		if got := titleFromPath(path); got != want {
			t.Errorf("titleFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestExtractFallsBackToFilenameForNonID3File(t *testing.T) {
	e := New()
	track, err := e.Extract("/nonexistent/My Track.flac")
	if err != nil {
		t.Fatalf("Extract should never fail, got: %v", err)
	}
	if track.Title != "My Track" {
		t.Errorf("Title = %q, want %q", track.Title, "My Track")
	}
}
