// ABOUTME: Playback buffering package documentation
// ABOUTME: Describes the byte ring and the cross-channel assembler
// Package playback holds the receive-side jitter buffer: a byte ring and
// the assembler that interleaves per-channel frames into it and serves the
// audio output's pull callback.
package playback
