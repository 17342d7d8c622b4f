// ABOUTME: Advertising data (AD) structure parsing
// ABOUTME: Splits advertising payloads into type/data elements with bounds checks
package leaudio

import "bytes"

// ADStructure is one length-prefixed element of an advertising payload
type ADStructure struct {
	Type uint8
	Data []byte
}

// ParseAD splits an advertising payload into its AD structures. A zero
// length byte marks the start of padding and ends the payload.
func ParseAD(data []byte) ([]ADStructure, error) {
	r := reader{buf: data}
	var out []ADStructure
	for r.remaining() > 0 {
		length, _ := r.u8("ad length")
		if length == 0 {
			break
		}
		body, err := r.bytes(int(length), "ad structure")
		if err != nil {
			return out, err
		}
		out = append(out, ADStructure{Type: body[0], Data: body[1:]})
	}
	return out, nil
}

// ServiceData16 returns the UUID and payload of a 16-bit service data element
func (s ADStructure) ServiceData16() (uint16, []byte, bool) {
	if s.Type != ADTypeServiceData16 || len(s.Data) < 2 {
		return 0, nil, false
	}
	return uint16(s.Data[0]) | uint16(s.Data[1])<<8, s.Data[2:], true
}

// LocalName returns the shortened or complete local name
func (s ADStructure) LocalName() (string, bool) {
	if s.Type != ADTypeShortenedLocalName && s.Type != ADTypeCompleteLocalName {
		return "", false
	}
	name := s.Data
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name), true
}

// Announcement summarises what an extended advertising report offers
type Announcement struct {
	Name           string
	BroadcastAudio bool
	BroadcastID    uint32
	HasBroadcastID bool
}

// ParseAnnouncement scans an extended advertising payload for a broadcast
// audio announcement and the advertised name. Malformed trailing data keeps
// whatever was parsed before it.
func ParseAnnouncement(data []byte) Announcement {
	var a Announcement
	structures, _ := ParseAD(data)
	for _, s := range structures {
		if uuid, payload, ok := s.ServiceData16(); ok {
			if uuid == UUIDBroadcastAudioAnnouncement {
				a.BroadcastAudio = true
				if len(payload) >= 3 {
					a.BroadcastID = uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16
					a.HasBroadcastID = true
				}
			}
			continue
		}
		if name, ok := s.LocalName(); ok {
			a.Name = name
		}
	}
	return a
}
