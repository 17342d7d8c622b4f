// ABOUTME: Per-channel packet handling and loss concealment
// ABOUTME: Decodes received frames and synthesizes frames when packets stop arriving
package sink

import (
	"log"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/leaudio"
)

// firstConcealDelay is how long after a packet the next one is declared
// lost: one and a half frames
func firstConcealDelay(frame time.Duration) time.Duration {
	return frame * 3 / 2
}

// onPacket decodes a received frame unless concealment already covered its
// sequence number
func (s *Sink) onPacket(ch *channel, pkt leaudio.ISOPacket, now time.Time) {
	sess := s.session

	if ch.received && leaudio.SeqDelta(pkt.Sequence, ch.lastSeq) < 1 {
		log.Printf("Dropping delayed packet. Current sequence number %d, last received or generated by PLC: %d",
			pkt.Sequence, ch.lastSeq)
		s.opts.Metrics.PacketStale()
		return
	}
	ch.received = true

	s.decodeInto(ch, pkt.SDU, pkt.PacketStatus != 0)
	sess.Frames++
	ch.framesThisSecond++
	s.opts.Metrics.FrameDecoded(ch.index)

	s.armConcealment(ch, firstConcealDelay(sess.Config.FrameDuration.Duration()))

	ch.lastSeq = pkt.Sequence
	ch.lastTime = now
	s.reportStats(now)
}

// armConcealment replaces the channel's timer with one firing after d
func (s *Sink) armConcealment(ch *channel, d time.Duration) {
	ch.timer.Stop()
	ch.timer = s.opts.Scheduler.AfterFunc(d, func() { s.onConcealTimeout(ch) })
}

// onConcealTimeout synthesizes the missing frame and keeps concealing one
// frame duration at a time until a packet arrives
func (s *Sink) onConcealTimeout(ch *channel) {
	sess := s.session
	frame := sess.Config.FrameDuration.Duration()

	s.armConcealment(ch, frame)

	ch.lastSeq++
	ch.lastTime = ch.lastTime.Add(frame)
	s.decodeInto(ch, nil, true)
	sess.Concealed++
	s.opts.Metrics.FrameConcealed(ch.index)
}

// decodeInto decodes into the channel's slot and hands it to the assembler
func (s *Sink) decodeInto(ch *channel, payload []byte, badFrame bool) {
	slot := s.assembler.Slot(ch.index)
	if _, err := ch.decoder.Decode(payload, badFrame, slot, s.assembler.Channels()); err != nil {
		log.Printf("Decode failed on channel %d: %v", ch.index, err)
	}
	if _, err := s.assembler.Ready(ch.index); err != nil {
		log.Printf("Frame assembly failed: %v", err)
	}
}
