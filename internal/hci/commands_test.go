// ABOUTME: Tests for HCI command encoding
// ABOUTME: Checks opcodes and parameter layouts byte by byte
package hci

import (
	"bytes"
	"testing"
)

func TestCommandPacket(t *testing.T) {
	pkt := BIGTerminateSync(1).Packet()
	want := []byte{PacketCommand, 0x6c, 0x20, 0x01, 0x01}
	if !bytes.Equal(pkt, want) {
		t.Errorf("expected % x, got % x", want, pkt)
	}

	if got := Reset().Packet(); !bytes.Equal(got, []byte{0x01, 0x03, 0x0c, 0x00}) {
		t.Errorf("unexpected reset packet % x", got)
	}
}

func TestSetExtendedScanParameters(t *testing.T) {
	cmd := SetExtendedScanParameters(ScanParams{
		ScanType:     ScanPassive,
		Interval:     0x30,
		Window:       0x30,
		FilterPolicy: FilterAcceptList,
	})
	want := []byte{0x00, 0x01, 0x01, 0x00, 0x30, 0x00, 0x30, 0x00}
	if cmd.Opcode != OpLESetExtendedScanParameters || !bytes.Equal(cmd.Params, want) {
		t.Errorf("unexpected %s % x", cmd, cmd.Params)
	}
}

func TestSetExtendedScanEnable(t *testing.T) {
	if p := SetExtendedScanEnable(true).Params; p[0] != 1 || len(p) != 6 {
		t.Errorf("unexpected enable params % x", p)
	}
	if p := SetExtendedScanEnable(false).Params; p[0] != 0 {
		t.Errorf("unexpected disable params % x", p)
	}
}

func TestListCommands(t *testing.T) {
	addr := Address{1, 2, 3, 4, 5, 6}

	accept := AddDeviceToAcceptList(1, addr)
	if accept.Opcode != OpLEAddDeviceToAcceptList || !bytes.Equal(accept.Params, []byte{1, 1, 2, 3, 4, 5, 6}) {
		t.Errorf("unexpected accept list command % x", accept.Params)
	}

	periodic := AddDeviceToPeriodicAdvertiserList(1, addr, 9)
	if periodic.Opcode != OpLEAddDeviceToPeriodicAdvList || !bytes.Equal(periodic.Params, []byte{1, 1, 2, 3, 4, 5, 6, 9}) {
		t.Errorf("unexpected periodic list command % x", periodic.Params)
	}

	if clear := ClearPeriodicAdvertiserList(); clear.Opcode != OpLEClearPeriodicAdvList || len(clear.Params) != 0 {
		t.Errorf("unexpected clear command %+v", clear)
	}
}

func TestPeriodicAdvCreateSync(t *testing.T) {
	cmd := PeriodicAdvCreateSync(PeriodicSyncParams{
		Options:     PeriodicSyncUseList,
		SID:         2,
		AddressType: 1,
		Address:     Address{1, 2, 3, 4, 5, 6},
		Timeout:     1000,
	})
	want := []byte{0x01, 0x02, 0x01, 1, 2, 3, 4, 5, 6, 0x00, 0x00, 0xe8, 0x03, 0x00}
	if !bytes.Equal(cmd.Params, want) {
		t.Errorf("expected % x, got % x", want, cmd.Params)
	}
}

func TestBIGCreateSync(t *testing.T) {
	cmd := BIGCreateSync(BIGSyncParams{
		BIGHandle:  1,
		SyncHandle: 0x0040,
		Timeout:    100,
		BIS:        []uint8{1, 2},
	})
	if cmd.Opcode != OpLEBIGCreateSync {
		t.Fatalf("unexpected opcode 0x%04x", cmd.Opcode)
	}
	p := cmd.Params
	if len(p) != 26 {
		t.Fatalf("expected 26 parameter bytes, got %d", len(p))
	}
	if p[0] != 1 || p[1] != 0x40 || p[2] != 0 || p[3] != 0 {
		t.Errorf("unexpected header % x", p[:4])
	}
	if !bytes.Equal(p[4:20], make([]byte, 16)) {
		t.Errorf("broadcast code should be zero, got % x", p[4:20])
	}
	if p[21] != 100 || p[22] != 0 || p[23] != 2 || p[24] != 1 || p[25] != 2 {
		t.Errorf("unexpected tail % x", p[20:])
	}
}

func TestCommandString(t *testing.T) {
	if s := Reset().String(); s != "Reset" {
		t.Errorf("unexpected name %q", s)
	}
	if s := (Command{Opcode: 0x1234}).String(); s != "opcode 0x1234" {
		t.Errorf("unexpected name %q", s)
	}
}

func TestPeriodicAdvSyncTeardown(t *testing.T) {
	if got := PeriodicAdvCreateSyncCancel().Packet(); !bytes.Equal(got, []byte{PacketCommand, 0x45, 0x20, 0x00}) {
		t.Errorf("unexpected create sync cancel packet % x", got)
	}

	cmd := PeriodicAdvTerminateSync(0x0040)
	want := []byte{PacketCommand, 0x46, 0x20, 0x02, 0x40, 0x00}
	if got := cmd.Packet(); !bytes.Equal(got, want) {
		t.Errorf("expected % x, got % x", want, got)
	}
	if cmd.String() != "LE Periodic Advertising Terminate Sync" {
		t.Errorf("unexpected name %q", cmd.String())
	}
}
