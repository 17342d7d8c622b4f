//go:build !cgo || nolc3

// ABOUTME: LC3 stub when liblc3 is not linked
// ABOUTME: Keeps the lc3 backend name registered and reports it unavailable
package decode

import (
	"errors"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

var errLC3Unavailable = errors.New("lc3 support not enabled (build with cgo and liblc3, without -tags nolc3)")

// LC3Decoder (stub)
type LC3Decoder struct{}

// NewLC3 creates a new LC3 decoder
func NewLC3() Decoder {
	return &LC3Decoder{}
}

// Configure always fails without liblc3
func (d *LC3Decoder) Configure(sampleRate int, duration audio.FrameDuration, octetsPerFrame int) error {
	return errLC3Unavailable
}

// SamplesPerFrame returns zero
func (d *LC3Decoder) SamplesPerFrame() int {
	return 0
}

// Decode always fails without liblc3
func (d *LC3Decoder) Decode(payload []byte, badFrame bool, out []int16, stride int) (bool, error) {
	return false, errLC3Unavailable
}

// Close releases resources
func (d *LC3Decoder) Close() error {
	return nil
}
