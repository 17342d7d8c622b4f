// ABOUTME: Audio output interface tests
// ABOUTME: Verifies Output implementations and the pull adapter
package output

import (
	"errors"
	"testing"
	"time"

	"github.com/ebitengine/oto/v3"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestMalgoImplementsOutput(t *testing.T) {
	var _ Output = (*Malgo)(nil)
}

func TestNullImplementsOutput(t *testing.T) {
	var _ Output = (*Null)(nil)
}

func TestNewOto(t *testing.T) {
	out := NewOto(0)
	if out == nil {
		t.Fatal("NewOto returned nil")
	}
	if err := out.StartStream(); err == nil {
		t.Error("expected StartStream to fail before Init")
	}
}

func TestCallbackReaderWholeFrames(t *testing.T) {
	var requested int
	r := newCallbackReader(2, func(buf []int16) {
		requested = len(buf)
		for i := range buf {
			buf[i] = int16(i + 1)
		}
	})

	// 10 bytes is two stereo frames plus a partial one
	p := make([]byte, 10)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 8 {
		t.Errorf("expected 8 bytes, got %d", n)
	}
	if requested != 4 {
		t.Errorf("expected 4 samples requested, got %d", requested)
	}
	if p[0] != 1 || p[1] != 0 || p[6] != 4 {
		t.Errorf("unexpected bytes %v", p)
	}
}

func TestCallbackReaderTooSmall(t *testing.T) {
	called := false
	r := newCallbackReader(2, func(buf []int16) { called = true })

	n, err := r.Read(make([]byte, 3))
	if err != nil || n != 0 {
		t.Errorf("expected 0, nil, got %d, %v", n, err)
	}
	if called {
		t.Error("callback should not run for less than a frame")
	}
}

func TestNullPulls(t *testing.T) {
	out := NewNull(time.Millisecond)

	sizes := make(chan int, 100)
	if err := out.Init(2, 48000, func(buf []int16) {
		select {
		case sizes <- len(buf):
		default:
		}
	}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := out.StartStream(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case n := <-sizes:
		// 1 ms at 48 kHz stereo
		if n != 96 {
			t.Errorf("expected 96 samples per pull, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pull within 2s")
	}

	if err := out.StopStream(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	pulls := out.Pulls()
	time.Sleep(10 * time.Millisecond)
	if out.Pulls() != pulls {
		t.Error("callback ran after StopStream returned")
	}
	if err := out.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

func TestNullInitErrors(t *testing.T) {
	out := NewNull(0)
	if err := out.Init(0, 48000, func([]int16) {}); err == nil {
		t.Error("expected error for zero channels")
	}
	if err := out.StartStream(); err == nil {
		t.Error("expected StartStream to fail before Init")
	}
}

func TestOtoRejectsFormatChange(t *testing.T) {
	// An already opened context at 48 kHz mono
	o := &Oto{otoCtx: &oto.Context{}, sampleRate: 48000, channels: 1}

	err := o.Init(2, 48000, func(buf []int16) {})
	if !errors.Is(err, ErrFormatChange) {
		t.Errorf("expected ErrFormatChange for a channel change, got %v", err)
	}
	err = o.Init(1, 24000, func(buf []int16) {})
	if !errors.Is(err, ErrFormatChange) {
		t.Errorf("expected ErrFormatChange for a rate change, got %v", err)
	}
	if o.player != nil {
		t.Error("no player should be created on a rejected format")
	}
}

func TestNewMalgo(t *testing.T) {
	out := NewMalgo(10 * time.Millisecond)
	if err := out.StartStream(); err == nil {
		t.Error("expected StartStream to fail before Init")
	}
	if err := out.StopStream(); err != nil {
		t.Errorf("StopStream before Init should be a no-op: %v", err)
	}
	if err := out.Init(0, 48000, func(buf []int16) {}); err == nil {
		t.Error("expected error for zero channels")
	}
	if err := out.Close(); err != nil {
		t.Errorf("Close before Init failed: %v", err)
	}
}

func TestMalgoDataCallback(t *testing.T) {
	m := &Malgo{}

	// No session yet: silence
	p := []byte{1, 2, 3, 4}
	m.dataCallback(p)
	for i, b := range p {
		if b != 0 {
			t.Fatalf("byte %d not silenced: %v", i, p)
		}
	}

	m.reader.Store(newCallbackReader(2, func(buf []int16) {
		for i := range buf {
			buf[i] = int16(i + 1)
		}
	}))
	p = make([]byte, 8)
	m.dataCallback(p)
	if p[0] != 1 || p[2] != 2 || p[6] != 4 {
		t.Errorf("unexpected pulled bytes %v", p)
	}
}
