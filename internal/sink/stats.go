// ABOUTME: Once-per-second receive statistics and status snapshots
// ABOUTME: Reports frame rates per channel and playback buffer drops
package sink

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/internal/playback"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/leaudio"
)

const statsInterval = time.Second

type statsReporter struct {
	last     time.Time
	received uint64
	dropped  uint64
}

func (r *statsReporter) reset(now time.Time, asm *playback.Assembler) {
	r.last = now
	r.received = 0
	r.dropped = 0
	if asm != nil {
		st := asm.Stats()
		r.received = st.Received
		r.dropped = st.Dropped
	}
}

// reportStats logs frame counts once a second
func (s *Sink) reportStats(now time.Time) {
	if now.Sub(s.stats.last) < statsInterval {
		return
	}
	s.stats.last = now

	sess := s.session
	perChannel := make([]string, len(sess.channels))
	for i, ch := range sess.channels {
		perChannel[i] = fmt.Sprint(ch.framesThisSecond)
		ch.framesThisSecond = 0
	}

	st := s.assembler.Stats()
	received := st.Received - s.stats.received
	dropped := st.Dropped - s.stats.dropped
	s.stats.received = st.Received
	s.stats.dropped = st.Dropped
	s.opts.Metrics.Samples(int(received), int(dropped))

	log.Printf("Frames: %4d - %s frames per second, dropped %d of %d",
		sess.Frames/uint64(len(sess.channels)), strings.Join(perChannel, " "), dropped, received)
}

// Status is a snapshot of the sink for display
type Status struct {
	State              State
	AlternateRequested bool

	HaveSession bool
	SessionID   string
	Source      Source

	HaveConfig   bool
	Config       leaudio.AudioConfig
	Decoder      string
	PlaybackRate int

	Frames    uint64
	Concealed uint64
	Playback  playback.Stats
	Underrun  bool
}

// Status returns a snapshot of the current state and counters
func (s *Sink) Status() Status {
	st := Status{
		State:              s.state,
		AlternateRequested: s.alternateRequested,
	}

	sess := s.session
	if sess == nil {
		return st
	}
	st.HaveSession = true
	st.SessionID = sess.ID.String()
	st.Source = sess.Source
	st.HaveConfig = sess.HaveBASE
	st.Config = sess.Config
	st.Decoder = sess.Decoder
	st.PlaybackRate = sess.PlaybackRate
	st.Frames = sess.Frames
	st.Concealed = sess.Concealed

	if s.assembler != nil {
		st.Playback = s.assembler.Stats()
		st.Underrun = s.assembler.Underrun()
	}
	return st
}
