// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines FrameDuration, Format and 16-bit PCM conversions
// Package audio provides the audio types shared by the broadcast sink.
//
// This package defines:
//   - FrameDuration: the 7.5 ms and 10 ms codec frame lengths
//   - Format: the decoded stream handed to an output device
//
// PCM travels through the receive pipeline as interleaved int16 samples and
// is stored in the playback buffer as little-endian bytes.
//
// Example:
//
//	d := audio.FrameDuration10000us
//	n := d.SamplesPerFrame(48000) // 480
package audio
