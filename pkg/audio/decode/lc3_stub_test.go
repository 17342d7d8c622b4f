//go:build !cgo || nolc3

// ABOUTME: Tests for the LC3 stub
// ABOUTME: Verifies the backend reports itself unavailable
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

func TestLC3StubUnavailable(t *testing.T) {
	decoder, err := New("lc3")
	if err != nil {
		t.Fatalf("lc3 should stay registered: %v", err)
	}
	if err := decoder.Configure(48000, audio.FrameDuration10000us, 120); err == nil {
		t.Error("expected stub configure to fail")
	}
}
