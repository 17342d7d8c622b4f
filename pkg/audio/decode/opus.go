// ABOUTME: Opus frame decoder
// ABOUTME: Decodes 10 ms Opus frames with libopus packet loss concealment
package decode

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusDecoder decodes mono Opus frames. Opus has no 7.5 ms frame size,
// so only 10 ms broadcasts can use it.
type OpusDecoder struct {
	decoder *opus.Decoder
	samples int
	pcm     []int16
}

// NewOpus creates a new Opus decoder
func NewOpus() Decoder {
	return &OpusDecoder{}
}

// Configure creates the underlying libopus decoder. Opus frames vary in
// length, so octetsPerFrame is not checked.
func (d *OpusDecoder) Configure(sampleRate int, duration audio.FrameDuration, octetsPerFrame int) error {
	if duration != audio.FrameDuration10000us {
		return fmt.Errorf("opus decoder does not support %s frames", duration)
	}
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return fmt.Errorf("opus decoder does not support %d Hz", sampleRate)
	}

	dec, err := opus.NewDecoder(sampleRate, 1)
	if err != nil {
		return fmt.Errorf("failed to create opus decoder: %w", err)
	}

	d.decoder = dec
	d.samples = duration.SamplesPerFrame(sampleRate)
	d.pcm = make([]int16, d.samples)
	return nil
}

// SamplesPerFrame returns the per-channel sample count of one frame
func (d *OpusDecoder) SamplesPerFrame() int {
	return d.samples
}

// Decode converts one Opus frame into out at the given stride
func (d *OpusDecoder) Decode(payload []byte, badFrame bool, out []int16, stride int) (bool, error) {
	if d.decoder == nil {
		return false, fmt.Errorf("opus decoder not configured")
	}
	if err := checkOutput(out, stride, d.samples); err != nil {
		return false, err
	}

	detected := false
	if payload == nil || badFrame {
		if err := d.decoder.DecodePLC(d.pcm); err != nil {
			return false, fmt.Errorf("opus plc failed: %w", err)
		}
	} else {
		n, err := d.decoder.Decode(payload, d.pcm)
		if err != nil {
			log.Printf("Opus decode failed, concealing: %v", err)
			if err := d.decoder.DecodePLC(d.pcm); err != nil {
				return true, fmt.Errorf("opus plc failed: %w", err)
			}
			detected = true
		} else {
			for i := n; i < d.samples; i++ {
				d.pcm[i] = 0
			}
		}
	}

	for i, s := range d.pcm {
		out[i*stride] = s
	}
	return detected, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	d.decoder = nil
	return nil
}
