// ABOUTME: Audio output wrapper that runs the pull callback on the run loop
// ABOUTME: Plays silence when the loop cannot answer within the output period
package app

import (
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/internal/runloop"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio/output"
)

// loopOutput forwards every pull to the loop goroutine so the sink's
// assembler is only touched there
type loopOutput struct {
	output.Output
	loop    *runloop.Loop
	timeout time.Duration
}

// Init installs a callback that marshals onto the loop
func (o *loopOutput) Init(channels, sampleRate int, cb output.Callback) error {
	var tmp []int16
	return o.Output.Init(channels, sampleRate, func(buf []int16) {
		if len(tmp) != len(buf) {
			tmp = make([]int16, len(buf))
		}
		pcm := tmp
		if o.loop.CallTimeout(func() { cb(pcm) }, o.timeout) {
			copy(buf, pcm)
			return
		}
		// The late call still writes into pcm
		tmp = nil
		for i := range buf {
			buf[i] = 0
		}
	})
}
