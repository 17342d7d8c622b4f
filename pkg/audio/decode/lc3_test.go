//go:build cgo && !nolc3

// ABOUTME: Tests for LC3 decoder
// ABOUTME: Tests configuration limits, strided concealment and corrupt frames
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

func TestLC3Configure(t *testing.T) {
	tests := []struct {
		rate     int
		duration audio.FrameDuration
		samples  int
	}{
		{48000, audio.FrameDuration10000us, 480},
		{48000, audio.FrameDuration7500us, 360},
		{16000, audio.FrameDuration10000us, 160},
		{8000, audio.FrameDuration7500us, 60},
	}

	for _, tt := range tests {
		decoder := NewLC3()
		if err := decoder.Configure(tt.rate, tt.duration, 120); err != nil {
			t.Fatalf("configure %d Hz %s failed: %v", tt.rate, tt.duration, err)
		}
		if decoder.SamplesPerFrame() != tt.samples {
			t.Errorf("%d Hz %s: expected %d samples, got %d", tt.rate, tt.duration, tt.samples, decoder.SamplesPerFrame())
		}
		decoder.Close()
	}
}

func TestLC3ConfigureRejects(t *testing.T) {
	decoder := NewLC3()
	if err := decoder.Configure(44100, audio.FrameDuration10000us, 120); err == nil {
		t.Error("expected error for 44.1 kHz")
	}
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 10); err == nil {
		t.Error("expected error for 10 octet frames")
	}
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 401); err == nil {
		t.Error("expected error for 401 octet frames")
	}
}

func TestLC3ConcealStrided(t *testing.T) {
	decoder := NewLC3()
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 120); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	defer decoder.Close()

	out := make([]int16, 960)
	for i := range out {
		out[i] = 7
	}
	detected, err := decoder.Decode(nil, true, out, 2)
	if err != nil {
		t.Fatalf("conceal failed: %v", err)
	}
	if detected {
		t.Error("a requested concealment frame is not a detected bad frame")
	}
	for i := 1; i < len(out); i += 2 {
		if out[i] != 7 {
			t.Fatalf("slot %d of the other channel was written", i)
		}
	}
}

func TestLC3DecodeArbitraryFrame(t *testing.T) {
	decoder := NewLC3()
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 120); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	defer decoder.Close()

	frame := make([]byte, 120)
	for i := range frame {
		frame[i] = byte(i * 37)
	}
	out := make([]int16, 480)
	if _, err := decoder.Decode(frame, false, out, 1); err != nil {
		t.Errorf("decode failed: %v", err)
	}
}

func TestLC3DecodeErrors(t *testing.T) {
	unconfigured := NewLC3()
	if _, err := unconfigured.Decode(nil, true, make([]int16, 480), 1); err == nil {
		t.Error("expected error from unconfigured decoder")
	}

	decoder := NewLC3()
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 120); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if _, err := decoder.Decode(nil, true, make([]int16, 100), 1); err == nil {
		t.Error("expected error for undersized output")
	}
	if err := decoder.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if _, err := decoder.Decode(nil, true, make([]int16, 480), 1); err == nil {
		t.Error("expected error after close")
	}
}
