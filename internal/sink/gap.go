// ABOUTME: Gap reporting for diagnosing packet loss
// ABOUTME: Prints every missing sequence number instead of playing audio
package sink

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/internal/metrics"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/leaudio"
)

const (
	packetPrefixLen = 10

	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

type gapReporter struct {
	w       io.Writer
	metrics *metrics.Metrics
	missing uint64
}

func newGapReporter(w io.Writer, m *metrics.Metrics) *gapReporter {
	return &gapReporter{w: w, metrics: m}
}

// observe checks pkt against the last packet seen on ch. Times are printed
// in milliseconds since start.
func (g *gapReporter) observe(ch *channel, pkt leaudio.ISOPacket, now, start time.Time) {
	prefix := pkt.SDU
	if len(prefix) > packetPrefixLen {
		prefix = prefix[:packetPrefixLen]
	}

	if ch.received {
		if delta := leaudio.SeqDelta(pkt.Sequence, ch.lastSeq); delta != 1 {
			g.report(ch, pkt.Sequence, delta, prefix, now.Sub(start), ch.lastTime.Sub(start))
		}
	}

	ch.received = true
	ch.lastSeq = pkt.Sequence
	ch.lastTime = now
	ch.prefix = append(ch.prefix[:0], prefix...)
}

// report prints the previous packet, every missing sequence number and the
// current packet
func (g *gapReporter) report(ch *channel, seq uint16, delta int16, prefix []byte, at, lastAt time.Duration) {
	fmt.Fprintf(g.w, "\n%04x %10d %d %s\n", ch.lastSeq, lastAt.Milliseconds(), ch.index, hex.EncodeToString(ch.prefix))

	if delta > 1 {
		fmt.Fprint(g.w, ansiRed)
		for missing := ch.lastSeq + 1; missing != seq; missing++ {
			fmt.Fprintf(g.w, "%04x            %d MISSING\n", missing, ch.index)
		}
		fmt.Fprint(g.w, ansiReset)
		g.missing += uint64(delta - 1)
		g.metrics.Missing(int(delta - 1))
	}

	fmt.Fprintf(g.w, "%04x %10d %d %s\n", seq, at.Milliseconds(), ch.index, hex.EncodeToString(prefix))
}
