// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-mode Output interface with oto, malgo and null backends
// Package output provides audio playback interfaces.
//
// Outputs pull audio: once started, the device asks the callback for the
// next block of interleaved 16-bit samples whenever it needs more. The
// callback must always fill the whole block, writing silence on underrun.
//
// Backends:
//   - Oto: plays through the system audio device via ebitengine/oto; one
//     format per process, a change returns ErrFormatChange
//   - Malgo: plays through miniaudio via gen2brain/malgo and reopens its
//     device when the format changes
//   - Null: discards audio at real-time pace, for headless receivers
//
// Example:
//
//	out := output.NewOto(0)
//	err := out.Init(2, 48000, pull)
//	err = out.StartStream()
package output
