package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/drgolem/audiostreamer/pkg/devicecatalog"
	"github.com/drgolem/audiostreamer/pkg/engine"
	"github.com/drgolem/audiostreamer/pkg/metadata"
	"github.com/drgolem/audiostreamer/pkg/settings"
	"github.com/drgolem/audiostreamer/pkg/types"
	"github.com/drgolem/audiostreamer/pkg/visualizer"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

var (
	streamDeviceIdx   int
	streamDeviceName  string
	streamSeekSec     float64
	streamVolume      float64
	streamRate        int
	streamChannels    int
	streamSettings    string
	streamVisualizeOn string
	streamVerbose     bool
)

// streamCmd drives pkg/engine end to end, exercising the full
// control-dispatcher/decoder-driver/sink pipeline. Given more than one
// file, it queues the rest through the engine's real gapless next_track
// transition instead of reopening the stream between files.
var streamCmd = &cobra.Command{
	Use:   "stream <audio_file> [audio_file...]",
	Short: "Stream one or more audio files through the full playback engine",
	Long: `Stream plays one or more files through the engine's command/event
surface: Control Dispatcher, Decoder Driver, Resampler, Sample Ring
Buffer and Audio Sink, with optional live PCM visualization over
websocket and ID3 metadata extraction. Additional files are queued as
they play, so the engine's gapless next_track transition carries the
playlist across file boundaries instead of reopening the stream.

Examples:
  # Stream a file on the named device
  audiostreamer stream --device-name "USB DAC" music.flac

  # Stream starting 30 seconds in, at half volume
  audiostreamer stream --seek 30 --volume 0.5 music.mp3

  # Queue a playlist; each transition is gapless
  audiostreamer stream song1.mp3 song2.flac song3.wav

  # Publish decoded PCM for a UI visualizer
  audiostreamer stream --visualize :8089 music.wav`,
	Args: cobra.MinimumNArgs(1),
	Run:  runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().IntVar(&streamDeviceIdx, "device-index", 0, "Output device index registered in the catalog")
	streamCmd.Flags().StringVar(&streamDeviceName, "device-name", "default", "Output device name registered in the catalog")
	streamCmd.Flags().Float64Var(&streamSeekSec, "seek", 0, "Seek position in seconds (best-effort to packet boundary), applied to the first file only")
	streamCmd.Flags().Float64Var(&streamVolume, "volume", 1.0, "Initial volume (0.0-1.0)")
	streamCmd.Flags().IntVar(&streamRate, "rate", 44100, "Output sample rate")
	streamCmd.Flags().IntVar(&streamChannels, "channels", 2, "Output channel count")
	streamCmd.Flags().StringVar(&streamSettings, "settings", "", "Path to a TOML settings file (output_device, follow_system_output)")
	streamCmd.Flags().StringVar(&streamVisualizeOn, "visualize", "", "Address to serve the PCM visualizer websocket on (e.g. :8089); disabled when empty")
	streamCmd.Flags().BoolVarP(&streamVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runStream(cmd *cobra.Command, args []string) {
	files := args

	logLevel := slog.LevelInfo
	if streamVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	for _, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Error("File not found", "path", path)
			os.Exit(1)
		}
	}

	if err := portaudio.Initialize(); err != nil {
		slog.Error("Failed to initialize PortAudio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	catalog := devicecatalog.New(devicecatalog.Device{Name: streamDeviceName, Index: streamDeviceIdx})

	var store settings.Store
	if streamSettings != "" {
		s, err := settings.NewFileStore(streamSettings)
		if err != nil {
			slog.Error("Failed to load settings", "path", streamSettings, "error", err)
			os.Exit(1)
		}
		store = s
	}

	var pub visualizer.Publisher
	if streamVisualizeOn != "" {
		hub := visualizer.NewHub()
		go func() {
			slog.Info("Serving PCM visualizer", "addr", streamVisualizeOn)
			if err := http.ListenAndServe(streamVisualizeOn, hub); err != nil {
				slog.Error("Visualizer server stopped", "error", err)
			}
		}()
		pub = hub
	}

	e := engine.New(catalog, types.SignalSpec{Rate: uint32(streamRate), Channels: streamChannels}, metadata.New(), store, pub)
	defer e.Close()

	playlist := newPlaylistQueuer(e, files, streamVolume)
	wireEngineLogging(e, playlist)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var doneOnce sync.Once
	e.OnStopped = func(finalOffset uint64) {
		slog.Info("stopped", "final_sample_offset", finalOffset)
		doneOnce.Do(func() { close(done) })
	}

	statusDone := make(chan struct{})
	go logPlaybackStatus(e, statusDone)

	go e.Run(ctx)
	e.StreamFile(files[0], streamSeekSec, streamVolume, nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		slog.Info("Playback completed successfully")
	case sig := <-sigChan:
		slog.Info("Signal received, stopping", "signal", sig)
	}
	close(statusDone)
}

// playlistQueuer advances a multi-file playlist across the engine's
// single-slot next_track queue: each song_change event means the file
// it names has become audible, so the one after it is queued next.
type playlistQueuer struct {
	e      *engine.Engine
	files  []string
	volume float64

	mu   sync.Mutex
	next int // index into files of the next file to queue
}

func newPlaylistQueuer(e *engine.Engine, files []string, volume float64) *playlistQueuer {
	return &playlistQueuer{e: e, files: files, volume: volume, next: 1}
}

// queueNext queues the next not-yet-queued file, if any remain.
func (p *playlistQueuer) queueNext() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next >= len(p.files) {
		return
	}
	p.e.NextTrack(p.files[p.next], 0, p.volume)
	p.next++
}

func wireEngineLogging(e *engine.Engine, playlist *playlistQueuer) {
	e.OnFileSamples = func(total uint64) {
		slog.Info("file-samples", "total_frames", total)
	}
	e.OnSongChange = func(t metadata.Track) {
		slog.Info("song_change", "title", t.Title, "artist", t.Artist, "album", t.Album)
		playlist.queueNext()
	}
	e.OnAudioDeviceChanged = func(device string) {
		slog.Info("audio_device_changed", "device", device)
	}
	e.OnPlaying = func() {
		slog.Info("playing")
	}
	e.OnPaused = func() {
		slog.Info("paused")
	}
	e.OnSampleOffset = func(offset uint64) {
		slog.Debug("sample-offset", "sample_offset", offset)
	}
	e.OnWaveform = func(peaks []float32) {
		slog.Debug("waveform", "peaks", len(peaks))
	}
}

// logPlaybackStatus periodically logs the engine's PlaybackStatus,
// adapting the teacher's playlist-status ticker to the engine-backed
// command surface.
func logPlaybackStatus(monitor types.PlaybackMonitor, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := monitor.GetPlaybackStatus()
			playedSeconds := 0.0
			if status.SampleRate > 0 && status.Channels > 0 {
				playedSeconds = float64(status.PlayedSamples) / float64(status.SampleRate*status.Channels)
			}
			slog.Info("playback status",
				"file", status.FileName,
				"format", fmt.Sprintf("%dHz/%dch/%dbit", status.SampleRate, status.Channels, status.BitsPerSample),
				"played", time.Duration(playedSeconds*float64(time.Second)).Round(time.Millisecond),
				"buffered_samples", status.BufferedSamples,
				"elapsed", status.ElapsedTime.Round(time.Millisecond))
		case <-done:
			return
		}
	}
}
