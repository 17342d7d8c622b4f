// ABOUTME: Tests for the cross-channel frame assembler
// ABOUTME: Covers alignment, overflow accounting and underrun transitions
package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillSlot(a *Assembler, ch int, value int16) {
	slot := a.Slot(ch)
	for i := 0; i < a.SamplesPerFrame(); i++ {
		slot[i*a.Channels()] = value
	}
}

func TestAssemblerWaitsForAllChannels(t *testing.T) {
	a, err := NewAssembler(NewRing(64), 2, 4)
	require.NoError(t, err)

	fillSlot(a, 0, 100)
	committed, err := a.Ready(0)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.True(t, a.Pending(0))
	assert.Equal(t, 0, a.ring.Available(), "one channel alone must not enqueue audio")

	fillSlot(a, 1, -100)
	committed, err = a.Ready(1)
	require.NoError(t, err)
	assert.True(t, committed)
	assert.False(t, a.Pending(0))
	assert.False(t, a.Pending(1))
	assert.Equal(t, 16, a.ring.Available())

	buf := make([]int16, 8)
	a.Pull(buf)
	assert.Equal(t, []int16{100, -100, 100, -100, 100, -100, 100, -100}, buf)
}

func TestAssemblerRepeatedReadyDoesNotCommit(t *testing.T) {
	a, err := NewAssembler(NewRing(64), 2, 4)
	require.NoError(t, err)

	a.Ready(0)
	committed, _ := a.Ready(0)
	assert.False(t, committed)
	assert.Equal(t, 0, a.ring.Available())
}

func TestAssemblerOverflowDropsNewFrame(t *testing.T) {
	// Room for exactly one stereo frame of 4 samples
	a, err := NewAssembler(NewRing(16), 2, 4)
	require.NoError(t, err)

	var dropped int
	a.OnDrop = func(samples int) { dropped += samples }

	fillSlot(a, 0, 1)
	fillSlot(a, 1, 2)
	a.Ready(0)
	committed, _ := a.Ready(1)
	require.True(t, committed)

	fillSlot(a, 0, 3)
	fillSlot(a, 1, 4)
	a.Ready(0)
	committed, _ = a.Ready(1)
	assert.False(t, committed)

	stats := a.Stats()
	// Counted per channel: two frames of 4 samples, one dropped
	assert.Equal(t, uint64(4), stats.Dropped)
	assert.Equal(t, uint64(8), stats.Received)
	assert.Equal(t, 4, dropped)

	// The first frame is untouched
	buf := make([]int16, 8)
	a.Pull(buf)
	assert.Equal(t, []int16{1, 2, 1, 2, 1, 2, 1, 2}, buf)
}

func TestAssemblerUnderrunTransitions(t *testing.T) {
	a, err := NewAssembler(NewRing(32), 1, 4)
	require.NoError(t, err)

	var transitions []bool
	a.OnUnderrun = func(active bool) { transitions = append(transitions, active) }

	buf := []int16{9, 9, 9, 9}
	a.Pull(buf)
	assert.Equal(t, []int16{0, 0, 0, 0}, buf)
	a.Pull(buf)
	assert.True(t, a.Underrun())

	fillSlot(a, 0, 5)
	a.Ready(0)
	a.Pull(buf)
	assert.Equal(t, []int16{5, 5, 5, 5}, buf)
	assert.False(t, a.Underrun())

	assert.Equal(t, []bool{true, false}, transitions)
	assert.Equal(t, uint64(1), a.Stats().Underruns)
}

func TestAssemblerPartialBufferIsNotConsumed(t *testing.T) {
	a, err := NewAssembler(NewRing(32), 1, 2)
	require.NoError(t, err)

	fillSlot(a, 0, 7)
	a.Ready(0)

	buf := make([]int16, 4)
	a.Pull(buf)
	assert.Equal(t, []int16{0, 0, 0, 0}, buf)
	assert.Equal(t, 4, a.ring.Available())
}

func TestAssemblerOnFrameSeesDroppedFrames(t *testing.T) {
	// Room for one mono frame of 2 samples
	a, err := NewAssembler(NewRing(4), 1, 2)
	require.NoError(t, err)

	var seen [][]int16
	a.OnFrame = func(frame []int16) {
		seen = append(seen, append([]int16(nil), frame...))
	}
	fillSlot(a, 0, 3)
	a.Ready(0)
	fillSlot(a, 0, 4)
	committed, _ := a.Ready(0)
	assert.False(t, committed)

	require.Len(t, seen, 2)
	assert.Equal(t, []int16{3, 3}, seen[0])
	assert.Equal(t, []int16{4, 4}, seen[1])
	assert.Equal(t, uint64(1), a.Stats().Committed)
}

func TestAssemblerInvalidChannel(t *testing.T) {
	a, err := NewAssembler(NewRing(32), 1, 2)
	require.NoError(t, err)

	assert.Nil(t, a.Slot(1))
	assert.Nil(t, a.Slot(-1))
	_, err = a.Ready(2)
	assert.Error(t, err)
}

func TestNewAssemblerValidation(t *testing.T) {
	_, err := NewAssembler(NewRing(32), 0, 2)
	assert.Error(t, err)
	_, err = NewAssembler(NewRing(32), 1, 0)
	assert.Error(t, err)
	_, err = NewAssembler(NewRing(3), 1, 2)
	assert.Error(t, err)
}

func TestAssemblerReset(t *testing.T) {
	a, err := NewAssembler(NewRing(32), 2, 2)
	require.NoError(t, err)

	fillSlot(a, 0, 1)
	a.Ready(0)
	a.Reset()
	assert.False(t, a.Pending(0))

	// After reset channel 1 alone must not commit
	committed, _ := a.Ready(1)
	assert.False(t, committed)
}
