// ABOUTME: Audio output interface definition
// ABOUTME: Common pull-mode interface for audio playback backends
package output

import (
	"errors"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// ErrFormatChange is returned by outputs that cannot follow a new channel
// count or sample rate once opened
var ErrFormatChange = errors.New("output: format change not supported")

// Callback fills buf with interleaved 16-bit samples. It is invoked by the
// output whenever the device needs len(buf)/channels more frames.
type Callback func(buf []int16)

// Output represents an audio output device that pulls samples on demand
type Output interface {
	// Init prepares the device for the given format
	Init(channels, sampleRate int, cb Callback) error

	// StartStream starts pulling samples through the callback
	StartStream() error

	// StopStream pauses the callback
	StopStream() error

	// Close releases output resources
	Close() error
}

// callbackReader adapts a Callback to an io.Reader of little-endian bytes
type callbackReader struct {
	channels int
	cb       Callback
	pcm      []int16
}

func newCallbackReader(channels int, cb Callback) *callbackReader {
	return &callbackReader{channels: channels, cb: cb}
}

// Read fills p with whole frames only
func (r *callbackReader) Read(p []byte) (int, error) {
	frameBytes := r.channels * audio.BytesPerSample
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	samples := frames * r.channels
	if cap(r.pcm) < samples {
		r.pcm = make([]int16, samples)
	}
	pcm := r.pcm[:samples]
	r.cb(pcm)

	audio.PutInt16LE(p, pcm)
	return samples * audio.BytesPerSample, nil
}
