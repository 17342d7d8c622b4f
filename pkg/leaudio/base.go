// ABOUTME: Basic Audio Announcement (BASE) decoder
// ABOUTME: Parses the group/subgroup/BIS levels carried in periodic advertising
package leaudio

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// BASE is the decoded codec configuration announcement of a broadcast
type BASE struct {
	PresentationDelay uint32 // microseconds
	Subgroups         []Subgroup
}

// Subgroup is level 2 of the BASE
type Subgroup struct {
	CodecID  [codecIDLen]byte
	Config   CodecConfig
	Metadata []byte
	BIS      []BIS
}

// BIS is level 3 of the BASE. Its codec configuration is kept raw.
type BIS struct {
	Index  uint8
	Config []byte
}

// CodecConfig holds the recognised codec specific configuration LTVs
type CodecConfig struct {
	SamplingFrequencyHz int
	FrameDuration       audio.FrameDuration
	OctetsPerFrame      int
	ChannelAllocation   uint32

	HasSamplingFrequency bool
	HasFrameDuration     bool
	HasOctetsPerFrame    bool
	HasChannelAllocation bool
}

// AudioConfig is what the sink needs to decode and play a broadcast
type AudioConfig struct {
	SampleRateHz      int
	FrameDuration     audio.FrameDuration
	OctetsPerFrame    int
	NumBIS            int
	NumSubgroups      int
	PresentationDelay time.Duration
}

func (c AudioConfig) String() string {
	return fmt.Sprintf("%d bis, %d Hz, %s frames, %d octets/frame",
		c.NumBIS, c.SampleRateHz, c.FrameDuration, c.OctetsPerFrame)
}

// DefaultAudioConfig is used for sources that never announce a BASE:
// one stream, 48 kHz, 10 ms frames, 120 octets per frame
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRateHz:   48000,
		FrameDuration:  audio.FrameDuration10000us,
		OctetsPerFrame: 120,
		NumBIS:         1,
	}
}

// FindBASE looks for Basic Audio Announcement service data in a periodic
// advertising payload. found is false when the payload carries no BASE.
func FindBASE(adData []byte) (base *BASE, found bool, err error) {
	structures, err := ParseAD(adData)
	if err != nil {
		return nil, false, fmt.Errorf("periodic advertising data: %w", err)
	}
	for _, s := range structures {
		uuid, payload, ok := s.ServiceData16()
		if !ok || uuid != UUIDBasicAudioAnnouncement {
			continue
		}
		base, err := DecodeBASE(payload)
		if err != nil {
			return nil, true, err
		}
		return base, true, nil
	}
	return nil, false, nil
}

// DecodeBASE parses a BASE (the service data following the 0x1851 UUID).
// Every declared length is checked against the remaining buffer; a field
// that would overrun it aborts decoding with ErrTruncated.
func DecodeBASE(data []byte) (*BASE, error) {
	r := reader{buf: data}

	delay, err := r.u24("presentation delay")
	if err != nil {
		return nil, err
	}
	numSubgroups, err := r.u8("subgroup count")
	if err != nil {
		return nil, err
	}

	base := &BASE{
		PresentationDelay: delay,
		Subgroups:         make([]Subgroup, 0, numSubgroups),
	}

	for i := 0; i < int(numSubgroups); i++ {
		sg, err := decodeSubgroup(&r)
		if err != nil {
			return nil, fmt.Errorf("subgroup %d: %w", i, err)
		}
		base.Subgroups = append(base.Subgroups, sg)
	}

	return base, nil
}

func decodeSubgroup(r *reader) (Subgroup, error) {
	var sg Subgroup

	numBIS, err := r.u8("bis count")
	if err != nil {
		return sg, err
	}
	codecID, err := r.bytes(codecIDLen, "codec id")
	if err != nil {
		return sg, err
	}
	copy(sg.CodecID[:], codecID)

	cfgLen, err := r.u8("codec config length")
	if err != nil {
		return sg, err
	}
	cfg, err := r.bytes(int(cfgLen), "codec config")
	if err != nil {
		return sg, err
	}
	if sg.Config, err = decodeCodecConfig(cfg); err != nil {
		return sg, err
	}

	metaLen, err := r.u8("metadata length")
	if err != nil {
		return sg, err
	}
	if sg.Metadata, err = r.bytes(int(metaLen), "metadata"); err != nil {
		return sg, err
	}

	sg.BIS = make([]BIS, 0, numBIS)
	for k := 0; k < int(numBIS); k++ {
		index, err := r.u8("bis index")
		if err != nil {
			return sg, fmt.Errorf("bis %d: %w", k, err)
		}
		l, err := r.u8("bis codec config length")
		if err != nil {
			return sg, fmt.Errorf("bis %d: %w", k, err)
		}
		c, err := r.bytes(int(l), "bis codec config")
		if err != nil {
			return sg, fmt.Errorf("bis %d: %w", k, err)
		}
		sg.BIS = append(sg.BIS, BIS{Index: index, Config: c})
	}

	return sg, nil
}

// decodeCodecConfig walks the LTV entries of a codec specific configuration.
// Unknown types are skipped by their declared length.
func decodeCodecConfig(data []byte) (CodecConfig, error) {
	var cfg CodecConfig
	r := reader{buf: data}

	for r.remaining() > 0 {
		length, _ := r.u8("ltv length")
		if length == 0 {
			continue
		}
		body, err := r.bytes(int(length), "ltv")
		if err != nil {
			return cfg, err
		}
		ltvType, value := body[0], body[1:]

		switch ltvType {
		case LTVSamplingFrequency:
			if len(value) < 1 {
				return cfg, fmt.Errorf("sampling frequency ltv is empty: %w", ErrInvalid)
			}
			hz, ok := SamplingFrequencyHz(value[0])
			if !ok {
				return cfg, fmt.Errorf("sampling frequency index %d: %w", value[0], ErrInvalid)
			}
			cfg.SamplingFrequencyHz = hz
			cfg.HasSamplingFrequency = true

		case LTVFrameDuration:
			if len(value) < 1 {
				return cfg, fmt.Errorf("frame duration ltv is empty: %w", ErrInvalid)
			}
			switch value[0] {
			case 0:
				cfg.FrameDuration = audio.FrameDuration7500us
			case 1:
				cfg.FrameDuration = audio.FrameDuration10000us
			default:
				return cfg, fmt.Errorf("frame duration selector %d: %w", value[0], ErrInvalid)
			}
			cfg.HasFrameDuration = true

		case LTVAudioChannelAllocation:
			if len(value) < 4 {
				return cfg, fmt.Errorf("channel allocation ltv has %d bytes: %w", len(value), ErrInvalid)
			}
			cfg.ChannelAllocation = uint32(value[0]) | uint32(value[1])<<8 |
				uint32(value[2])<<16 | uint32(value[3])<<24
			cfg.HasChannelAllocation = true

		case LTVOctetsPerCodecFrame:
			if len(value) < 2 {
				return cfg, fmt.Errorf("octets per frame ltv has %d bytes: %w", len(value), ErrInvalid)
			}
			cfg.OctetsPerFrame = int(uint16(value[0]) | uint16(value[1])<<8)
			cfg.HasOctetsPerFrame = true
		}
	}

	return cfg, nil
}

// AudioConfig folds the subgroups into the configuration the sink plays.
// Later subgroups override earlier ones and the stream count comes from the
// last subgroup. More than MaxBIS streams are clamped to MaxBIS.
func (b *BASE) AudioConfig() (AudioConfig, error) {
	cfg := AudioConfig{
		NumSubgroups:      len(b.Subgroups),
		PresentationDelay: time.Duration(b.PresentationDelay) * time.Microsecond,
	}
	if len(b.Subgroups) == 0 {
		return cfg, fmt.Errorf("no subgroups: %w", ErrInvalid)
	}

	var haveRate, haveDuration bool
	for _, sg := range b.Subgroups {
		cfg.NumBIS = len(sg.BIS)
		if sg.Config.HasSamplingFrequency {
			cfg.SampleRateHz = sg.Config.SamplingFrequencyHz
			haveRate = true
		}
		if sg.Config.HasFrameDuration {
			cfg.FrameDuration = sg.Config.FrameDuration
			haveDuration = true
		}
		if sg.Config.HasOctetsPerFrame {
			cfg.OctetsPerFrame = sg.Config.OctetsPerFrame
		}
	}

	if !haveRate || !haveDuration {
		return cfg, fmt.Errorf("sampling frequency or frame duration missing: %w", ErrInvalid)
	}
	if cfg.NumBIS == 0 {
		return cfg, fmt.Errorf("no streams: %w", ErrInvalid)
	}
	if cfg.NumBIS > MaxBIS {
		cfg.NumBIS = MaxBIS
	}
	return cfg, nil
}
