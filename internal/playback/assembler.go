// ABOUTME: Cross-channel frame assembler feeding the playback ring
// ABOUTME: Commits a frame only once every channel has PCM for it
package playback

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// Stats are the assembler's running counters. Received and Dropped count
// per-channel samples, one frame adding SamplesPerFrame.
type Stats struct {
	Received  uint64
	Dropped   uint64
	Underruns uint64
	Committed uint64
}

// Assembler collects one decoded frame per channel into an interleaved
// buffer and moves complete frames into the ring
type Assembler struct {
	ring            *Ring
	channels        int
	samplesPerFrame int

	frame     []int16
	frameData []byte
	pullData  []byte
	ready     []bool

	stats    Stats
	underrun bool

	// OnFrame sees every completed interleaved frame, including frames the
	// ring then rejects
	OnFrame func(frame []int16)
	// OnDrop is told the per-channel sample count of every frame the ring
	// rejected
	OnDrop func(samples int)
	// OnUnderrun is told about transitions into and out of underrun
	OnUnderrun func(active bool)
}

// NewAssembler creates an assembler for channels streams of samplesPerFrame
// samples each, writing into ring
func NewAssembler(ring *Ring, channels, samplesPerFrame int) (*Assembler, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if samplesPerFrame < 1 {
		return nil, fmt.Errorf("invalid samples per frame: %d", samplesPerFrame)
	}
	frameBytes := channels * samplesPerFrame * audio.BytesPerSample
	if ring.Cap() < frameBytes {
		return nil, fmt.Errorf("ring of %d bytes cannot hold a %d byte frame", ring.Cap(), frameBytes)
	}

	return &Assembler{
		ring:            ring,
		channels:        channels,
		samplesPerFrame: samplesPerFrame,
		frame:           make([]int16, channels*samplesPerFrame),
		frameData:       make([]byte, frameBytes),
		ready:           make([]bool, channels),
	}, nil
}

// Channels returns the number of interleaved channels
func (a *Assembler) Channels() int {
	return a.channels
}

// SamplesPerFrame returns the per-channel frame length
func (a *Assembler) SamplesPerFrame() int {
	return a.samplesPerFrame
}

// Slot returns the output slice for channel ch. Samples go to every
// Channels()-th element starting at index 0. It returns nil for an invalid
// channel.
func (a *Assembler) Slot(ch int) []int16 {
	if ch < 0 || ch >= a.channels {
		return nil
	}
	return a.frame[ch:]
}

// Ready marks channel ch's slot filled. Once every channel is ready the
// frame is committed and all slots are cleared. It reports whether this
// call committed a frame to the ring.
func (a *Assembler) Ready(ch int) (bool, error) {
	if ch < 0 || ch >= a.channels {
		return false, fmt.Errorf("channel %d out of range 0..%d", ch, a.channels-1)
	}
	a.ready[ch] = true

	for _, r := range a.ready {
		if !r {
			return false, nil
		}
	}
	for i := range a.ready {
		a.ready[i] = false
	}
	return a.commit(), nil
}

// Pending reports whether channel ch has PCM waiting for the other channels
func (a *Assembler) Pending(ch int) bool {
	if ch < 0 || ch >= a.channels {
		return false
	}
	return a.ready[ch]
}

func (a *Assembler) commit() bool {
	samples := a.samplesPerFrame
	a.stats.Received += uint64(samples)
	if a.OnFrame != nil {
		a.OnFrame(a.frame)
	}

	audio.PutInt16LE(a.frameData, a.frame)
	if !a.ring.Write(a.frameData) {
		a.stats.Dropped += uint64(samples)
		if a.OnDrop != nil {
			a.OnDrop(samples)
		}
		return false
	}

	a.stats.Committed++
	return true
}

// Pull fills buf from the ring. If less than a full request is buffered the
// whole of buf is silence and nothing is consumed.
func (a *Assembler) Pull(buf []int16) {
	need := len(buf) * audio.BytesPerSample
	if a.ring.Available() < need {
		for i := range buf {
			buf[i] = 0
		}
		a.setUnderrun(true)
		return
	}
	a.setUnderrun(false)

	if cap(a.pullData) < need {
		a.pullData = make([]byte, need)
	}
	p := a.pullData[:need]
	a.ring.Read(p)
	audio.ReadInt16LE(buf, p)
}

func (a *Assembler) setUnderrun(active bool) {
	if a.underrun == active {
		return
	}
	a.underrun = active
	if active {
		a.stats.Underruns++
		log.Printf("Playback buffer underrun, playing silence")
	} else {
		log.Printf("Playback buffer recovered, %d bytes buffered", a.ring.Available())
	}
	if a.OnUnderrun != nil {
		a.OnUnderrun(active)
	}
}

// Underrun reports whether the last pull ran dry
func (a *Assembler) Underrun() bool {
	return a.underrun
}

// Stats returns the running counters
func (a *Assembler) Stats() Stats {
	return a.stats
}

// Reset clears pending slots, buffered audio and the underrun state
func (a *Assembler) Reset() {
	for i := range a.ready {
		a.ready[i] = false
	}
	for i := range a.frame {
		a.frame[i] = 0
	}
	a.ring.Reset()
	a.underrun = false
}
