package flac

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goflac "github.com/drgolem/go-flac/flac"
)

// Decoder wraps the go-flac decoder to provide FLAC decoding capabilities.
// Implements types.AudioDecoder interface.
type Decoder struct {
	decoder  *goflac.FlacDecoder
	rate     int
	channels int
	bps      int // bits per sample

	totalSamples      uint64
	totalSamplesKnown bool
}

// NewDecoder creates a new FLAC decoder
// Uses 16-bit output by default
func NewDecoder() *Decoder {
	return &Decoder{}
}

// GetFormat returns the audio format (rate, channels, bits per sample)
func (d *Decoder) GetFormat() (int, int, int) {
	return d.rate, d.channels, d.bps
}

// DecodeSamples decodes the specified number of samples into the audio buffer
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	// Decode PCM data from FLAC
	n, err := d.decoder.DecodeSamples(samples, audio)
	return n, err
}

// Open opens and initializes a FLAC file for decoding
func (d *Decoder) Open(fileName string) error {
	// Create new decoder with 16-bit output by default
	// This can be adjusted to 24 or 32 if needed
	decoder, err := goflac.NewFlacFrameDecoder(16)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	// Open the FLAC file
	err = decoder.Open(fileName)
	if err != nil {
		decoder.Delete()
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	// Get audio format
	rate, channels, bps := decoder.GetFormat()

	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	d.bps = bps

	d.totalSamples, d.totalSamplesKnown = readSTREAMINFOTotalSamples(fileName)

	return nil
}

// Close closes the decoder and releases resources
func (d *Decoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

// Rate returns the sample rate in Hz
func (d *Decoder) Rate() int {
	return d.rate
}

// Channels returns the number of audio channels
func (d *Decoder) Channels() int {
	return d.channels
}

// Encoding returns the bits per sample (for consistency with MP3 decoder)
func (d *Decoder) Encoding() int {
	return d.bps
}

// BitsPerSample returns the bits per sample
func (d *Decoder) BitsPerSample() int {
	return d.bps
}

// TotalFrames returns the track's total frame count, parsed from the
// STREAMINFO metadata block's total_samples field. Implements
// trackreader's totalFramesSource interface; FLAC's container header
// makes this available up front, unlike go-flac's own decode-oriented
// API (Open/GetFormat/DecodeSamples), which never surfaces it.
func (d *Decoder) TotalFrames() (uint64, bool) {
	return d.totalSamples, d.totalSamplesKnown
}

// readSTREAMINFOTotalSamples scans fileName's first metadata block on
// a dedicated file handle (independent of goflac's own decoder state)
// and extracts the total_samples field, per the FLAC format: a 4-byte
// "fLaC" marker, then a metadata block header (1 byte type + 3 byte
// big-endian length) whose body, for the mandatory-first STREAMINFO
// block, packs sample rate (20 bits), channels-1 (3 bits), bits per
// sample-1 (5 bits) and total_samples (36 bits) into bytes 10-17.
func readSTREAMINFOTotalSamples(fileName string) (uint64, bool) {
	f, err := os.Open(fileName)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var marker [4]byte
	if _, err := io.ReadFull(f, marker[:]); err != nil || string(marker[:]) != "fLaC" {
		return 0, false
	}

	var blockHeader [4]byte
	if _, err := io.ReadFull(f, blockHeader[:]); err != nil {
		return 0, false
	}
	blockType := blockHeader[0] & 0x7F
	blockLen := int(blockHeader[1])<<16 | int(blockHeader[2])<<8 | int(blockHeader[3])
	const streamInfoType = 0
	const streamInfoLen = 34
	if blockType != streamInfoType || blockLen < streamInfoLen {
		return 0, false
	}

	streamInfo := make([]byte, blockLen)
	if _, err := io.ReadFull(f, streamInfo); err != nil {
		return 0, false
	}

	packed := binary.BigEndian.Uint64(streamInfo[10:18])
	const totalSamplesMask = 1<<36 - 1
	totalSamples := packed & totalSamplesMask
	if totalSamples == 0 {
		return 0, false // encoder declined to write a sample count
	}
	return totalSamples, true
}
