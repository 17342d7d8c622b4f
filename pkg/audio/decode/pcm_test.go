// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests strided decoding, short frames and concealment fade
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

func newConfiguredPCM(t *testing.T) Decoder {
	t.Helper()
	decoder := NewPCM()
	// 8 kHz at 10 ms gives 80 samples
	if err := decoder.Configure(8000, audio.FrameDuration10000us, 160); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	return decoder
}

func TestPCMConfigureRequiresSixteenBitFrames(t *testing.T) {
	decoder := NewPCM()
	// 48 kHz at 10 ms is 480 samples, a 120 octet frame cannot carry them
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 120); err == nil {
		t.Error("expected error for 120 octet frames at 48 kHz")
	}
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 960); err != nil {
		t.Errorf("expected 960 octet frames to be accepted: %v", err)
	}
	if err := decoder.Configure(8000, audio.FrameDuration7500us, 120); err != nil {
		t.Errorf("expected 120 octet 7.5 ms frames at 8 kHz to be accepted: %v", err)
	}
}

func frameBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*audio.BytesPerSample)
	audio.PutInt16LE(buf, samples)
	return buf
}

func TestPCMSamplesPerFrame(t *testing.T) {
	decoder := newConfiguredPCM(t)
	if decoder.SamplesPerFrame() != 80 {
		t.Errorf("expected 80 samples per frame, got %d", decoder.SamplesPerFrame())
	}
}

func TestPCMDecodeStrided(t *testing.T) {
	decoder := newConfiguredPCM(t)

	samples := make([]int16, 80)
	for i := range samples {
		samples[i] = int16(i * 10)
	}

	// Interleave into the second slot of a stereo frame
	out := make([]int16, 160)
	detected, err := decoder.Decode(frameBytes(samples), false, out[1:], 2)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if detected {
		t.Error("expected no bad frame detection for a full frame")
	}

	for i := 0; i < 80; i++ {
		if out[i*2] != 0 {
			t.Fatalf("left sample %d was written: %d", i, out[i*2])
		}
		if out[i*2+1] != samples[i] {
			t.Fatalf("right sample %d: expected %d, got %d", i, samples[i], out[i*2+1])
		}
	}
}

func TestPCMDecodeShortFrame(t *testing.T) {
	decoder := newConfiguredPCM(t)

	out := make([]int16, 80)
	detected, err := decoder.Decode(frameBytes([]int16{1, 2, 3}), false, out, 1)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !detected {
		t.Error("expected short frame to be reported")
	}
	if out[2] != 3 || out[3] != 0 || out[79] != 0 {
		t.Errorf("unexpected samples %v", out[:5])
	}
}

func TestPCMConcealmentFades(t *testing.T) {
	decoder := newConfiguredPCM(t)

	samples := make([]int16, 80)
	for i := range samples {
		samples[i] = 1000
	}
	out := make([]int16, 80)
	if _, err := decoder.Decode(frameBytes(samples), false, out, 1); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	expected := []int16{500, 250, 125}
	for i, want := range expected {
		if _, err := decoder.Decode(nil, true, out, 1); err != nil {
			t.Fatalf("conceal %d failed: %v", i, err)
		}
		if out[0] != want {
			t.Errorf("conceal %d: expected %d, got %d", i, want, out[0])
		}
	}

	// A good frame resets the fade
	if _, err := decoder.Decode(frameBytes(samples), false, out, 1); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, err := decoder.Decode(nil, true, out, 1); err != nil {
		t.Fatalf("conceal failed: %v", err)
	}
	if out[0] != 500 {
		t.Errorf("expected fade to restart at 500, got %d", out[0])
	}
}

func TestPCMDecodeErrors(t *testing.T) {
	unconfigured := NewPCM()
	if _, err := unconfigured.Decode([]byte{0, 0}, false, make([]int16, 10), 1); err == nil {
		t.Error("expected error from unconfigured decoder")
	}

	decoder := newConfiguredPCM(t)
	if _, err := decoder.Decode(nil, true, make([]int16, 10), 1); err == nil {
		t.Error("expected error for undersized output")
	}
	if _, err := decoder.Decode(nil, true, make([]int16, 80), 0); err == nil {
		t.Error("expected error for zero stride")
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"lc3", "pcm", "opus"} {
		decoder, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if decoder == nil {
			t.Fatalf("New(%q) returned nil decoder", name)
		}
	}

	if _, err := New("lc3-missing"); err == nil {
		t.Error("expected error for unknown codec")
	}

	Register("pcm-test", NewPCM)
	found := false
	for _, name := range Names() {
		if name == "pcm-test" {
			found = true
		}
	}
	if !found {
		t.Error("expected registered backend to be listed")
	}
}
