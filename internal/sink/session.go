// ABOUTME: Per-session state of a synchronized broadcast
// ABOUTME: Matched source, audio configuration and per-stream channels
package sink

import (
	"strings"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/internal/hci"
	"github.com/Resonate-Protocol/leaudio-sink/internal/runloop"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio/decode"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/leaudio"
	"github.com/google/uuid"
)

// Name prefixes that change how a source is handled
const (
	vendorFallbackPrefix = "NRF5340"
	ptsPrefix            = "PTS-"
	countPrefix          = "COUNT"
)

// Source is a broadcast source matched from an extended advertisement
type Source struct {
	Address     hci.Address
	AddressType uint8
	SID         uint8
	Name        string
	BroadcastID uint32

	// PTSMode plays two-stream broadcasts at rate/streams
	PTSMode bool
	// CountMode reports sequence gaps instead of playing audio
	CountMode bool
	// VendorFallback sources never send a BASE; a fixed config is used
	VendorFallback bool
}

// matchSource decides whether an advertisement is a broadcast worth
// syncing to
func matchSource(rep hci.AdvReport) (Source, bool) {
	ann := leaudio.ParseAnnouncement(rep.Data)
	src := Source{
		Address:        rep.Address,
		AddressType:    rep.AddressType,
		SID:            rep.SID,
		Name:           ann.Name,
		BroadcastID:    ann.BroadcastID,
		VendorFallback: strings.HasPrefix(ann.Name, vendorFallbackPrefix),
	}
	if !ann.BroadcastAudio && !src.VendorFallback {
		return src, false
	}
	src.PTSMode = strings.HasPrefix(ann.Name, ptsPrefix)
	src.CountMode = strings.HasPrefix(ann.Name, countPrefix)
	return src, true
}

// channel is the receive state of one broadcast stream
type channel struct {
	index   int
	handle  uint16
	decoder decode.Decoder

	lastSeq  uint16
	received bool
	lastTime time.Time
	timer    *runloop.Timer

	// last packet prefix kept for gap reports
	prefix []byte

	framesThisSecond int
}

// Session is everything known about the broadcast being followed. A new
// Session replaces the old one on every restart.
type Session struct {
	ID     uuid.UUID
	Source Source

	Config      leaudio.AudioConfig
	HaveBASE    bool
	HaveBIGInfo bool
	SyncHandle  uint16
	// PeriodicSynced is set once the periodic train is followed
	PeriodicSynced bool
	BIGInfo        hci.BIGInfoReport

	Decoder      string
	PlaybackRate int
	Started      time.Time

	Frames    uint64
	Concealed uint64

	channels []*channel
}

func newSession(src Source) *Session {
	return &Session{
		ID:     uuid.New(),
		Source: src,
	}
}

// ready reports whether both the configuration and the group info are known
func (s *Session) ready() bool {
	return s.HaveBASE && s.HaveBIGInfo
}

// channelFor maps a stream connection handle to its channel
func (s *Session) channelFor(handle uint16) (*channel, bool) {
	for _, ch := range s.channels {
		if ch.handle == handle {
			return ch, true
		}
	}
	return nil, false
}
