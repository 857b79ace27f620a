package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audiostreamer",
	Short: "Real-time gapless audio playback engine",
	Long: `audiostreamer - a real-time audio playback engine built around a
lock-free SPSC sample ring buffer, with gapless track transitions, seek,
loop regions, live volume, device switching, waveform extraction, and
optional websocket PCM visualization.

Features:
  - Lock-free SPSC ring buffer with click-suppressed ramps on write
  - Gapless track-to-track transitions queued ahead of end-of-stream
  - Support for MP3, FLAC, WAV, and Ogg/Vorbis audio formats
  - Loop regions, seek, live volume, and output device switching
  - Cancellable waveform (RMS peaks) extraction
  - Optional live PCM fan-out to websocket subscribers

Commands:
  - stream: play one or more files, gapless, with status monitoring`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
