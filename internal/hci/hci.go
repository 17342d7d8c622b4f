// ABOUTME: HCI packet framing constants and shared types
// ABOUTME: Packet indicators, opcodes, event codes and device addresses
package hci

import (
	"errors"
	"fmt"
)

// H4 packet indicators
const (
	PacketCommand = 0x01
	PacketACL     = 0x02
	PacketEvent   = 0x04
	PacketISO     = 0x05
)

// Event codes
const (
	EventCommandComplete = 0x0e
	EventCommandStatus   = 0x0f
	EventHardwareError   = 0x10
	EventLEMeta          = 0x3e
)

// LE meta subevent codes
const (
	SubeventExtendedAdvReport       = 0x0d
	SubeventPeriodicSyncEstablished = 0x0e
	SubeventPeriodicAdvReport       = 0x0f
	SubeventBIGSyncEstablished      = 0x1d
	SubeventBIGSyncLost             = 0x1e
	SubeventBIGInfoAdvReport        = 0x22
)

// Command opcodes
const (
	OpReset                         = 0x0c03
	OpLEAddDeviceToAcceptList       = 0x2011
	OpLESetExtendedScanParameters   = 0x2041
	OpLESetExtendedScanEnable       = 0x2042
	OpLEPeriodicAdvCreateSync       = 0x2044
	OpLEPeriodicAdvCreateSyncCancel = 0x2045
	OpLEPeriodicAdvTerminateSync    = 0x2046
	OpLEAddDeviceToPeriodicAdvList  = 0x2047
	OpLEClearPeriodicAdvList        = 0x2049
	OpLEBIGCreateSync               = 0x206b
	OpLEBIGTerminateSync            = 0x206c
)

// Periodic advertising report data status values
const (
	DataComplete   = 0x00
	DataIncomplete = 0x01
	DataTruncated  = 0x02
)

var (
	// ErrShortPacket is returned when a packet is shorter than its fields
	ErrShortPacket = errors.New("hci: short packet")

	// ErrNotConnected is returned when sending without a bridge connection
	ErrNotConnected = errors.New("hci: not connected")
)

// Address is a device address in over-the-air (little-endian) byte order
type Address [6]byte

// String formats the address most significant byte first
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

// ParseAddress parses a colon-separated address, most significant byte first
func ParseAddress(s string) (Address, error) {
	var a Address
	var b [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x", &b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	for i := range b {
		a[5-i] = b[i]
	}
	return a, nil
}

// Controller accepts commands for the local radio
type Controller interface {
	// Send queues one command; completion arrives later as an event
	Send(cmd Command) error

	// PowerOff shuts the radio down and releases the transport
	PowerOff() error
}
