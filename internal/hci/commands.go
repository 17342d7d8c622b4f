// ABOUTME: HCI command encoding for scanning and broadcast sync
// ABOUTME: Builds the LE commands a broadcast sink sends to its controller
package hci

import (
	"encoding/binary"
	"fmt"
)

// Command is one encoded HCI command
type Command struct {
	Opcode uint16
	Params []byte
}

// Packet returns the H4 command packet
func (c Command) Packet() []byte {
	pkt := make([]byte, 4+len(c.Params))
	pkt[0] = PacketCommand
	binary.LittleEndian.PutUint16(pkt[1:3], c.Opcode)
	pkt[3] = byte(len(c.Params))
	copy(pkt[4:], c.Params)
	return pkt
}

// String names the command for logs
func (c Command) String() string {
	if name, ok := commandNames[c.Opcode]; ok {
		return name
	}
	return fmt.Sprintf("opcode 0x%04x", c.Opcode)
}

var commandNames = map[uint16]string{
	OpReset:                         "Reset",
	OpLEAddDeviceToAcceptList:       "LE Add Device To Filter Accept List",
	OpLESetExtendedScanParameters:   "LE Set Extended Scan Parameters",
	OpLESetExtendedScanEnable:       "LE Set Extended Scan Enable",
	OpLEPeriodicAdvCreateSync:       "LE Periodic Advertising Create Sync",
	OpLEPeriodicAdvCreateSyncCancel: "LE Periodic Advertising Create Sync Cancel",
	OpLEPeriodicAdvTerminateSync:    "LE Periodic Advertising Terminate Sync",
	OpLEAddDeviceToPeriodicAdvList:  "LE Add Device To Periodic Advertiser List",
	OpLEClearPeriodicAdvList:        "LE Clear Periodic Advertiser List",
	OpLEBIGCreateSync:               "LE BIG Create Sync",
	OpLEBIGTerminateSync:            "LE BIG Terminate Sync",
}

// Scan types
const (
	ScanPassive = 0x00
	ScanActive  = 0x01
)

// Scanning filter policies
const (
	FilterAcceptAll  = 0x00
	FilterAcceptList = 0x01
)

// ScanParams configures extended scanning on the 1M PHY. Interval and
// window are in 0.625 ms units.
type ScanParams struct {
	ScanType     uint8
	Interval     uint16
	Window       uint16
	FilterPolicy uint8
}

// Reset resets the controller
func Reset() Command {
	return Command{Opcode: OpReset}
}

// SetExtendedScanParameters configures scanning
func SetExtendedScanParameters(p ScanParams) Command {
	params := []byte{
		0x00,           // public own address
		p.FilterPolicy, // scanning filter policy
		0x01,           // 1M phy only
		p.ScanType,
		0, 0, 0, 0,
	}
	binary.LittleEndian.PutUint16(params[4:6], p.Interval)
	binary.LittleEndian.PutUint16(params[6:8], p.Window)
	return Command{Opcode: OpLESetExtendedScanParameters, Params: params}
}

// SetExtendedScanEnable starts or stops scanning without duplicate filtering
func SetExtendedScanEnable(enable bool) Command {
	params := make([]byte, 6)
	if enable {
		params[0] = 1
	}
	return Command{Opcode: OpLESetExtendedScanEnable, Params: params}
}

// AddDeviceToAcceptList adds a device to the filter accept list
func AddDeviceToAcceptList(addrType uint8, addr Address) Command {
	params := make([]byte, 7)
	params[0] = addrType
	copy(params[1:], addr[:])
	return Command{Opcode: OpLEAddDeviceToAcceptList, Params: params}
}

// ClearPeriodicAdvertiserList empties the periodic advertiser list
func ClearPeriodicAdvertiserList() Command {
	return Command{Opcode: OpLEClearPeriodicAdvList}
}

// AddDeviceToPeriodicAdvertiserList adds one advertising set
func AddDeviceToPeriodicAdvertiserList(addrType uint8, addr Address, sid uint8) Command {
	params := make([]byte, 8)
	params[0] = addrType
	copy(params[1:7], addr[:])
	params[7] = sid
	return Command{Opcode: OpLEAddDeviceToPeriodicAdvList, Params: params}
}

// PeriodicSyncParams configures LE Periodic Advertising Create Sync.
// Timeout is in 10 ms units.
type PeriodicSyncParams struct {
	Options     uint8
	SID         uint8
	AddressType uint8
	Address     Address
	Skip        uint16
	Timeout     uint16
}

// PeriodicSyncUseList selects the periodic advertiser list in Options
const PeriodicSyncUseList = 0x01

// PeriodicAdvCreateSync starts synchronizing to a periodic train
func PeriodicAdvCreateSync(p PeriodicSyncParams) Command {
	params := make([]byte, 14)
	params[0] = p.Options
	params[1] = p.SID
	params[2] = p.AddressType
	copy(params[3:9], p.Address[:])
	binary.LittleEndian.PutUint16(params[9:11], p.Skip)
	binary.LittleEndian.PutUint16(params[11:13], p.Timeout)
	params[13] = 0 // sync to all cte types
	return Command{Opcode: OpLEPeriodicAdvCreateSync, Params: params}
}

// PeriodicAdvCreateSyncCancel abandons a pending create sync
func PeriodicAdvCreateSyncCancel() Command {
	return Command{Opcode: OpLEPeriodicAdvCreateSyncCancel}
}

// PeriodicAdvTerminateSync stops following an established periodic train
func PeriodicAdvTerminateSync(syncHandle uint16) Command {
	params := make([]byte, 2)
	binary.LittleEndian.PutUint16(params, syncHandle)
	return Command{Opcode: OpLEPeriodicAdvTerminateSync, Params: params}
}

// BIGSyncParams configures LE BIG Create Sync. Timeout is in 10 ms units;
// BIS indices are 1-based.
type BIGSyncParams struct {
	BIGHandle     uint8
	SyncHandle    uint16
	Encrypted     bool
	BroadcastCode [16]byte
	MSE           uint8
	Timeout       uint16
	BIS           []uint8
}

// BIGCreateSync requests synchronization to a broadcast group
func BIGCreateSync(p BIGSyncParams) Command {
	params := make([]byte, 24+len(p.BIS))
	params[0] = p.BIGHandle
	binary.LittleEndian.PutUint16(params[1:3], p.SyncHandle)
	if p.Encrypted {
		params[3] = 1
	}
	copy(params[4:20], p.BroadcastCode[:])
	params[20] = p.MSE
	binary.LittleEndian.PutUint16(params[21:23], p.Timeout)
	params[23] = uint8(len(p.BIS))
	copy(params[24:], p.BIS)
	return Command{Opcode: OpLEBIGCreateSync, Params: params}
}

// BIGTerminateSync leaves a broadcast group
func BIGTerminateSync(bigHandle uint8) Command {
	return Command{Opcode: OpLEBIGTerminateSync, Params: []byte{bigHandle}}
}
