// ABOUTME: Audio decoder package for broadcast codec frames
// ABOUTME: Provides the Decoder interface plus LC3, PCM and Opus backends
// Package decode provides the frame decoders a broadcast sink can use.
//
// Supports: LC3 (liblc3), PCM (16-bit little-endian frames) and Opus
// (10 ms frames only)
//
// Every Decoder handles exactly one stream and writes its samples at a
// caller-chosen stride, so several streams can be interleaved into a single
// frame buffer. Calling Decode with a nil payload produces a concealment
// frame.
//
// Example:
//
//	decoder, err := decode.New("lc3")
//	err = decoder.Configure(48000, audio.FrameDuration10000us, 120)
//	_, err = decoder.Decode(sdu, false, frame[channel:], numChannels)
package decode
