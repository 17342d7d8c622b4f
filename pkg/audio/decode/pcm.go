// ABOUTME: PCM frame decoder
// ABOUTME: Passes 16-bit little-endian frames through with fade-out concealment
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// PCMDecoder treats every SDU as one frame of 16-bit little-endian samples.
// Concealment repeats the last good frame, halving it on every lost frame.
type PCMDecoder struct {
	samples int
	last    []int16
	lossRun int
}

// NewPCM creates a new PCM decoder
func NewPCM() Decoder {
	return &PCMDecoder{}
}

// Configure sizes the decoder for one frame. The announced frame length
// must hold exactly one 16-bit sample per frame position.
func (d *PCMDecoder) Configure(sampleRate int, duration audio.FrameDuration, octetsPerFrame int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	samples := duration.SamplesPerFrame(sampleRate)
	if octetsPerFrame != samples*audio.BytesPerSample {
		return fmt.Errorf("pcm needs %d octets per %s frame at %d Hz, got %d",
			samples*audio.BytesPerSample, duration, sampleRate, octetsPerFrame)
	}
	d.samples = samples
	d.last = make([]int16, d.samples)
	d.lossRun = 0
	return nil
}

// SamplesPerFrame returns the per-channel sample count of one frame
func (d *PCMDecoder) SamplesPerFrame() int {
	return d.samples
}

// Decode converts one frame into out at the given stride
func (d *PCMDecoder) Decode(payload []byte, badFrame bool, out []int16, stride int) (bool, error) {
	if d.samples == 0 {
		return false, fmt.Errorf("pcm decoder not configured")
	}
	if err := checkOutput(out, stride, d.samples); err != nil {
		return false, err
	}

	if payload == nil || badFrame {
		d.conceal(out, stride)
		return false, nil
	}

	n := audio.ReadInt16LE(d.last, payload)
	short := n < d.samples
	for i := n; i < d.samples; i++ {
		d.last[i] = 0
	}
	d.lossRun = 0

	for i, s := range d.last {
		out[i*stride] = s
	}
	return short, nil
}

// conceal repeats the previous frame at half the previous gain
func (d *PCMDecoder) conceal(out []int16, stride int) {
	d.lossRun++
	shift := d.lossRun
	if shift > 15 {
		shift = 15
	}
	for i, s := range d.last {
		out[i*stride] = s >> shift
	}
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
