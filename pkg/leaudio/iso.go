// ABOUTME: Isochronous data packet decoder
// ABOUTME: Splits an HCI ISO data packet into header fields and SDU payload
package leaudio

import "fmt"

// Packet boundary flag values of the ISO data header
const (
	PBFirstFragment = 0
	PBContinuation  = 1
	PBComplete      = 2
	PBLastFragment  = 3
)

// ISOPacket is one decoded HCI ISO data packet
type ISOPacket struct {
	Handle       uint16
	PBFlag       uint8
	HasTimestamp bool
	Timestamp    uint32
	Sequence     uint16
	SDULength    uint16
	PacketStatus uint8
	SDU          []byte
}

// DecodeISO parses an HCI ISO data packet (without the H4 indicator).
// SDU aliases data.
func DecodeISO(data []byte) (ISOPacket, error) {
	var p ISOPacket
	r := reader{buf: data}

	header, err := r.u16("iso header")
	if err != nil {
		return p, err
	}
	p.Handle = header & 0x0fff
	p.PBFlag = uint8(header>>12) & 0x03
	p.HasTimestamp = (header>>14)&0x01 == 1

	loadLen, err := r.u16("iso data load length")
	if err != nil {
		return p, err
	}
	load, err := r.bytes(int(loadLen), "iso data load")
	if err != nil {
		return p, err
	}

	if p.PBFlag == PBContinuation || p.PBFlag == PBLastFragment {
		return p, fmt.Errorf("handle 0x%03x pb %d: %w", p.Handle, p.PBFlag, ErrFragmented)
	}

	lr := reader{buf: load}
	if p.HasTimestamp {
		if p.Timestamp, err = lr.u32("iso timestamp"); err != nil {
			return p, err
		}
	}
	if p.Sequence, err = lr.u16("iso sequence number"); err != nil {
		return p, err
	}
	sduHeader, err := lr.u16("iso sdu header")
	if err != nil {
		return p, err
	}
	p.SDULength = sduHeader & 0x3fff
	p.PacketStatus = uint8(sduHeader >> 14)

	n := int(p.SDULength)
	if p.PBFlag == PBFirstFragment && n > lr.remaining() {
		n = lr.remaining()
	}
	if p.SDU, err = lr.bytes(n, "iso sdu"); err != nil {
		return p, err
	}
	return p, nil
}
