// ABOUTME: Tests for the ISO data packet decoder
// ABOUTME: Covers timestamp handling, zero length SDUs and bounds checks
package leaudio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isoPacket builds an HCI ISO data packet for a complete SDU
func isoPacket(handle uint16, ts *uint32, seq uint16, status uint8, sdu []byte) []byte {
	var load []byte
	header := handle | PBComplete<<12
	if ts != nil {
		header |= 1 << 14
		load = append(load, byte(*ts), byte(*ts>>8), byte(*ts>>16), byte(*ts>>24))
	}
	sduHeader := uint16(len(sdu)) | uint16(status)<<14
	load = append(load, byte(seq), byte(seq>>8), byte(sduHeader), byte(sduHeader>>8))
	load = append(load, sdu...)

	out := []byte{byte(header), byte(header >> 8), byte(len(load)), byte(len(load) >> 8)}
	return append(out, load...)
}

func TestDecodeISOWithoutTimestamp(t *testing.T) {
	sdu := []byte{1, 2, 3, 4, 5}
	p, err := DecodeISO(isoPacket(0x0060, nil, 0x1234, 0, sdu))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0060), p.Handle)
	assert.Equal(t, uint8(PBComplete), p.PBFlag)
	assert.False(t, p.HasTimestamp)
	assert.Equal(t, uint16(0x1234), p.Sequence)
	assert.Equal(t, uint16(5), p.SDULength)
	assert.Equal(t, uint8(0), p.PacketStatus)
	assert.Equal(t, sdu, p.SDU)
}

func TestDecodeISOWithTimestamp(t *testing.T) {
	ts := uint32(0xdeadbeef)
	p, err := DecodeISO(isoPacket(0x0fff, &ts, 7, 2, []byte{9, 9}))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0fff), p.Handle)
	assert.True(t, p.HasTimestamp)
	assert.Equal(t, ts, p.Timestamp)
	assert.Equal(t, uint16(7), p.Sequence)
	assert.Equal(t, uint8(2), p.PacketStatus)
	assert.Equal(t, []byte{9, 9}, p.SDU)
}

func TestDecodeISOZeroLengthSDU(t *testing.T) {
	p, err := DecodeISO(isoPacket(0x0061, nil, 3, 0, nil))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), p.SDULength)
	assert.Empty(t, p.SDU)
}

func TestDecodeISOTruncated(t *testing.T) {
	full := isoPacket(0x0060, nil, 1, 0, []byte{1, 2, 3})
	for n := 0; n < len(full); n++ {
		_, err := DecodeISO(full[:n])
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, ErrTruncated), "length %d: %v", n, err)
	}
}

func TestDecodeISOSDULengthOverrun(t *testing.T) {
	data := isoPacket(0x0060, nil, 1, 0, []byte{1, 2, 3})
	// claim a 100 byte SDU inside a 3 byte payload
	data[6] = 100
	_, err := DecodeISO(data)
	assert.True(t, errors.Is(err, ErrTruncated), "%v", err)
}

func TestDecodeISOContinuationFragment(t *testing.T) {
	data := isoPacket(0x0060, nil, 1, 0, []byte{1})
	data[1] = (data[1] &^ 0x30) | PBContinuation<<4
	_, err := DecodeISO(data)
	assert.True(t, errors.Is(err, ErrFragmented), "%v", err)
}
