// ABOUTME: LE Audio broadcast wire formats
// ABOUTME: Provides BASE, AD structure and ISO packet decoders plus sequence math
// Package leaudio decodes the wire formats a broadcast audio sink consumes.
//
// It provides:
//   - ParseAD / ParseAnnouncement: advertising data structures
//   - FindBASE / DecodeBASE: the nested Basic Audio Announcement
//   - DecodeISO: HCI isochronous data packets
//   - SeqDelta: wraparound-safe 16-bit sequence comparison
//
// All decoders are stateless and never read past the buffer they are given.
//
// Example:
//
//	base, found, err := leaudio.FindBASE(periodicAdvertisingData)
//	if found && err == nil {
//	    cfg, err := base.AudioConfig()
//	}
package leaudio
