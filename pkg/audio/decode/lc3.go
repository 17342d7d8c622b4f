//go:build cgo && !nolc3

// ABOUTME: LC3 frame decoder bound to liblc3 through cgo
// ABOUTME: Decodes 7.5 ms and 10 ms LC3 frames with the codec's own concealment
package decode

/*
#cgo pkg-config: lc3
#include <stdlib.h>
#include <lc3.h>
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// LC3 frame size limits from the codec specification
const (
	lc3MinFrameBytes = 20
	lc3MaxFrameBytes = 400
)

// LC3Decoder decodes one LC3 stream. The decoder state lives in C memory
// owned by the decoder until Close.
type LC3Decoder struct {
	mem     unsafe.Pointer
	dec     C.lc3_decoder_t
	samples int
}

// NewLC3 creates a new LC3 decoder
func NewLC3() Decoder {
	return &LC3Decoder{}
}

// Configure sets up the liblc3 decoder for one stream
func (d *LC3Decoder) Configure(sampleRate int, duration audio.FrameDuration, octetsPerFrame int) error {
	dtUS := C.int(duration.Duration() / time.Microsecond)
	srHz := C.int(sampleRate)

	samples := int(C.lc3_frame_samples(dtUS, srHz))
	if samples <= 0 {
		return fmt.Errorf("lc3 does not support %s frames at %d Hz", duration, sampleRate)
	}
	if octetsPerFrame < lc3MinFrameBytes || octetsPerFrame > lc3MaxFrameBytes {
		return fmt.Errorf("lc3 frame of %d octets outside %d..%d", octetsPerFrame, lc3MinFrameBytes, lc3MaxFrameBytes)
	}

	d.release()
	size := C.lc3_decoder_size(dtUS, srHz)
	if size == 0 {
		return fmt.Errorf("lc3 decoder size unavailable for %s at %d Hz", duration, sampleRate)
	}
	mem := C.malloc(C.size_t(size))
	if mem == nil {
		return fmt.Errorf("failed to allocate lc3 decoder")
	}
	dec := C.lc3_setup_decoder(dtUS, srHz, 0, mem)
	if dec == nil {
		C.free(mem)
		return fmt.Errorf("failed to set up lc3 decoder")
	}

	d.mem = mem
	d.dec = dec
	d.samples = samples
	return nil
}

// SamplesPerFrame returns the per-channel sample count of one frame
func (d *LC3Decoder) SamplesPerFrame() int {
	return d.samples
}

// Decode converts one LC3 frame into out at the given stride. liblc3
// conceals on its own when handed no payload or a corrupt one.
func (d *LC3Decoder) Decode(payload []byte, badFrame bool, out []int16, stride int) (bool, error) {
	if d.dec == nil {
		return false, fmt.Errorf("lc3 decoder not configured")
	}
	if err := checkOutput(out, stride, d.samples); err != nil {
		return false, err
	}

	var in unsafe.Pointer
	nbytes := 0
	if !badFrame && len(payload) > 0 {
		if len(payload) > lc3MaxFrameBytes {
			payload = payload[:lc3MaxFrameBytes]
		}
		in = unsafe.Pointer(&payload[0])
		nbytes = len(payload)
	}

	ret := C.lc3_decode(d.dec, in, C.int(nbytes), C.enum_lc3_pcm_format(C.LC3_PCM_FORMAT_S16),
		unsafe.Pointer(&out[0]), C.int(stride))
	if ret < 0 {
		return false, fmt.Errorf("lc3 decode rejected a %d octet frame", nbytes)
	}
	// 1 means liblc3 ran concealment; only a frame we supplied counts as detected
	return ret == 1 && in != nil, nil
}

// Close releases the decoder's C memory
func (d *LC3Decoder) Close() error {
	d.release()
	return nil
}

func (d *LC3Decoder) release() {
	if d.mem != nil {
		C.free(d.mem)
	}
	d.mem = nil
	d.dec = nil
	d.samples = 0
}
