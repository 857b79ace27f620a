package mp3

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/imcarsen/go-mp3"
)

// bytesPerSample is fixed: go-mp3 always decodes to 16-bit signed PCM.
const bytesPerSample = 2

// channels is fixed: go-mp3 always decodes to interleaved stereo,
// upmixing mono sources.
const channels = 2

// Decoder wraps the pure-Go imcarsen/go-mp3 decoder to provide MP3
// decoding capabilities. Implements types.AudioDecoder interface.
//
// Unlike a cgo binding to libmpg123, this decoder has no system library
// dependency, so it keeps the whole module buildable with only `go build`.
type Decoder struct {
	file    *os.File
	decoder *gomp3.Decoder
	rate    int
}

// NewDecoder creates a new MP3 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// GetFormat returns the audio format (rate, channels, bits per sample).
func (d *Decoder) GetFormat() (int, int, int) {
	if d.decoder == nil {
		return 0, 0, 0
	}
	return d.rate, channels, bytesPerSample * 8
}

// DecodeSamples decodes the specified number of samples into the audio
// buffer. Returns the number of samples actually decoded (not bytes).
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	bytesWanted := samples * channels * bytesPerSample
	if len(audio) < bytesWanted {
		bytesWanted = len(audio) - (len(audio) % (channels * bytesPerSample))
	}

	total := 0
	for total < bytesWanted {
		n, err := d.decoder.Read(audio[total:bytesWanted])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return total / (channels * bytesPerSample), fmt.Errorf("mp3 decode error: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return total / (channels * bytesPerSample), nil
}

// Open opens and initializes an MP3 file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	decoder, err := gomp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	d.file = file
	d.decoder = decoder
	d.rate = decoder.SampleRate()

	return nil
}

// Close closes the decoder and releases resources.
func (d *Decoder) Close() error {
	d.decoder = nil
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// Rate returns the sample rate in Hz.
func (d *Decoder) Rate() int {
	return d.rate
}

// Channels returns the number of audio channels (always 2 for go-mp3).
func (d *Decoder) Channels() int {
	return channels
}

// Encoding returns the bits per sample, for consistency with the other
// decoders.
func (d *Decoder) Encoding() int {
	return bytesPerSample * 8
}
