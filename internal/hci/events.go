// ABOUTME: HCI event parsing into typed events
// ABOUTME: Covers the LE meta subevents a broadcast sink consumes
package hci

import (
	"encoding/binary"
	"fmt"
)

// Event is one parsed HCI event
type Event interface {
	eventName() string
}

// ControllerReady reports that the controller finished its reset
type ControllerReady struct{}

// HardwareError reports a controller failure
type HardwareError struct {
	Code uint8
}

// CommandComplete reports completion of a command other than reset
type CommandComplete struct {
	Opcode uint16
	Status uint8
}

// CommandStatus reports that a command was accepted or refused
type CommandStatus struct {
	Opcode uint16
	Status uint8
}

// AdvReport is one report from an LE Extended Advertising Report event
type AdvReport struct {
	EventType   uint16
	AddressType uint8
	Address     Address
	SID         uint8
	TxPower     int8
	RSSI        int8
	PAInterval  uint16
	Data        []byte
}

// PeriodicSyncEstablished reports the outcome of a periodic sync request
type PeriodicSyncEstablished struct {
	Status      uint8
	SyncHandle  uint16
	SID         uint8
	AddressType uint8
	Address     Address
	Interval    uint16
}

// PeriodicAdvReport carries one periodic advertising payload
type PeriodicAdvReport struct {
	SyncHandle uint16
	TxPower    int8
	RSSI       int8
	DataStatus uint8
	Data       []byte
}

// Complete reports whether the payload arrived whole
func (r PeriodicAdvReport) Complete() bool {
	return r.DataStatus == DataComplete
}

// BIGInfoReport describes a broadcast group seen on a periodic train
type BIGInfoReport struct {
	SyncHandle  uint16
	NumBIS      uint8
	NSE         uint8
	ISOInterval uint16
	BN          uint8
	PTO         uint8
	IRC         uint8
	MaxPDU      uint16
	SDUInterval uint32
	MaxSDU      uint16
	PHY         uint8
	Framing     uint8
	Encrypted   bool
}

// BIGSyncCreated reports a successful group sync with stream handles in
// BIS index order
type BIGSyncCreated struct {
	BIGHandle   uint8
	Latency     uint32
	NSE         uint8
	BN          uint8
	PTO         uint8
	IRC         uint8
	MaxPDU      uint16
	ISOInterval uint16
	Handles     []uint16
}

// BIGSyncFailed reports a group sync attempt that ended with an error
type BIGSyncFailed struct {
	BIGHandle uint8
	Status    uint8
}

// BIGSyncLost reports loss of an established group sync
type BIGSyncLost struct {
	BIGHandle uint8
	Reason    uint8
}

func (ControllerReady) eventName() string         { return "controller ready" }
func (HardwareError) eventName() string           { return "hardware error" }
func (CommandComplete) eventName() string         { return "command complete" }
func (CommandStatus) eventName() string           { return "command status" }
func (AdvReport) eventName() string               { return "extended advertising report" }
func (PeriodicSyncEstablished) eventName() string { return "periodic sync established" }
func (PeriodicAdvReport) eventName() string       { return "periodic advertising report" }
func (BIGInfoReport) eventName() string           { return "big info report" }
func (BIGSyncCreated) eventName() string          { return "big sync created" }
func (BIGSyncFailed) eventName() string           { return "big sync failed" }
func (BIGSyncLost) eventName() string             { return "big sync lost" }

// EventName returns a human-readable event name for logs
func EventName(ev Event) string {
	return ev.eventName()
}

// ParseEvent parses an HCI event packet starting at the event code.
// Unhandled events yield no events and no error. Payload slices in the
// result are copies and outlive data.
func ParseEvent(data []byte) ([]Event, error) {
	r := fields{buf: data}
	code := r.u8()
	length := int(r.u8())
	if r.err != nil {
		return nil, r.err
	}
	if length > r.remaining() {
		return nil, fmt.Errorf("event 0x%02x declares %d bytes, has %d: %w", code, length, r.remaining(), ErrShortPacket)
	}
	params := fields{buf: data[2 : 2+length]}

	switch code {
	case EventCommandComplete:
		params.u8() // allowed command packets
		opcode := params.u16()
		status := params.u8()
		if params.err != nil {
			return nil, fmt.Errorf("command complete: %w", params.err)
		}
		if opcode == OpReset && status == 0 {
			return []Event{ControllerReady{}}, nil
		}
		return []Event{CommandComplete{Opcode: opcode, Status: status}}, nil

	case EventCommandStatus:
		status := params.u8()
		params.u8()
		opcode := params.u16()
		if params.err != nil {
			return nil, fmt.Errorf("command status: %w", params.err)
		}
		return []Event{CommandStatus{Opcode: opcode, Status: status}}, nil

	case EventHardwareError:
		hwCode := params.u8()
		if params.err != nil {
			return nil, fmt.Errorf("hardware error: %w", params.err)
		}
		return []Event{HardwareError{Code: hwCode}}, nil

	case EventLEMeta:
		return parseLEMeta(&params)
	}
	return nil, nil
}

func parseLEMeta(r *fields) ([]Event, error) {
	sub := r.u8()
	if r.err != nil {
		return nil, fmt.Errorf("le meta: %w", r.err)
	}

	var events []Event
	switch sub {
	case SubeventExtendedAdvReport:
		count := int(r.u8())
		for i := 0; i < count && r.err == nil; i++ {
			var rep AdvReport
			rep.EventType = r.u16()
			rep.AddressType = r.u8()
			rep.Address = r.addr()
			r.u8() // primary phy
			r.u8() // secondary phy
			rep.SID = r.u8()
			rep.TxPower = int8(r.u8())
			rep.RSSI = int8(r.u8())
			rep.PAInterval = r.u16()
			r.u8()   // direct address type
			r.addr() // direct address
			rep.Data = r.copyBytes(int(r.u8()))
			if r.err == nil {
				events = append(events, rep)
			}
		}

	case SubeventPeriodicSyncEstablished:
		var ev PeriodicSyncEstablished
		ev.Status = r.u8()
		ev.SyncHandle = r.u16()
		ev.SID = r.u8()
		ev.AddressType = r.u8()
		ev.Address = r.addr()
		r.u8() // phy
		ev.Interval = r.u16()
		events = append(events, ev)

	case SubeventPeriodicAdvReport:
		var ev PeriodicAdvReport
		ev.SyncHandle = r.u16()
		ev.TxPower = int8(r.u8())
		ev.RSSI = int8(r.u8())
		r.u8() // cte type
		ev.DataStatus = r.u8()
		ev.Data = r.copyBytes(int(r.u8()))
		events = append(events, ev)

	case SubeventBIGSyncEstablished:
		status := r.u8()
		handle := r.u8()
		if status != 0 {
			events = append(events, BIGSyncFailed{BIGHandle: handle, Status: status})
			break
		}
		ev := BIGSyncCreated{BIGHandle: handle}
		ev.Latency = r.u24()
		ev.NSE = r.u8()
		ev.BN = r.u8()
		ev.PTO = r.u8()
		ev.IRC = r.u8()
		ev.MaxPDU = r.u16()
		ev.ISOInterval = r.u16()
		n := int(r.u8())
		for i := 0; i < n && r.err == nil; i++ {
			ev.Handles = append(ev.Handles, r.u16()&0x0fff)
		}
		events = append(events, ev)

	case SubeventBIGSyncLost:
		var ev BIGSyncLost
		ev.BIGHandle = r.u8()
		ev.Reason = r.u8()
		events = append(events, ev)

	case SubeventBIGInfoAdvReport:
		var ev BIGInfoReport
		ev.SyncHandle = r.u16()
		ev.NumBIS = r.u8()
		ev.NSE = r.u8()
		ev.ISOInterval = r.u16()
		ev.BN = r.u8()
		ev.PTO = r.u8()
		ev.IRC = r.u8()
		ev.MaxPDU = r.u16()
		ev.SDUInterval = r.u24()
		ev.MaxSDU = r.u16()
		ev.PHY = r.u8()
		ev.Framing = r.u8()
		ev.Encrypted = r.u8() != 0
		events = append(events, ev)

	default:
		return nil, nil
	}

	if r.err != nil {
		return nil, fmt.Errorf("le meta subevent 0x%02x: %w", sub, r.err)
	}
	return events, nil
}

// fields reads little-endian values and latches the first short read
type fields struct {
	buf []byte
	off int
	err error
}

func (f *fields) remaining() int {
	return len(f.buf) - f.off
}

func (f *fields) take(n int) []byte {
	if f.err != nil {
		return nil
	}
	if n > f.remaining() {
		f.err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, f.off, f.remaining(), ErrShortPacket)
		return nil
	}
	b := f.buf[f.off : f.off+n]
	f.off += n
	return b
}

func (f *fields) u8() uint8 {
	b := f.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (f *fields) u16() uint16 {
	b := f.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (f *fields) u24() uint32 {
	b := f.take(3)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (f *fields) addr() Address {
	var a Address
	copy(a[:], f.take(6))
	return a
}

func (f *fields) copyBytes(n int) []byte {
	b := f.take(n)
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
