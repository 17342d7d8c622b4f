// ABOUTME: Audio type definitions
// ABOUTME: Defines frame durations, stream formats and 16-bit PCM helpers
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// BytesPerSample is the size of one interleaved 16-bit PCM sample
const BytesPerSample = 2

// FrameDuration is one of the two codec frame durations a broadcast can use
type FrameDuration int

const (
	FrameDuration7500us FrameDuration = iota
	FrameDuration10000us
)

// Duration returns the exact frame length
func (d FrameDuration) Duration() time.Duration {
	if d == FrameDuration7500us {
		return 7500 * time.Microsecond
	}
	return 10 * time.Millisecond
}

// SamplesPerFrame returns the per-channel sample count of one frame at sampleRate
func (d FrameDuration) SamplesPerFrame(sampleRate int) int {
	return int(int64(sampleRate) * int64(d.Duration()) / int64(time.Second))
}

func (d FrameDuration) String() string {
	if d == FrameDuration7500us {
		return "7.5ms"
	}
	return "10ms"
}

// Format describes the decoded audio stream handed to an output
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	Duration   FrameDuration
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %s", f.Codec, f.SampleRate, f.Channels, f.Duration)
}

// PutInt16LE writes samples as little-endian bytes into dst, which must hold
// len(samples)*BytesPerSample bytes
func PutInt16LE(dst []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}
}

// ReadInt16LE decodes little-endian bytes into dst and returns the sample count
func ReadInt16LE(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*BytesPerSample:]))
	}
	return n
}
