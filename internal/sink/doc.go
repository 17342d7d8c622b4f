// ABOUTME: Broadcast sink package documentation
// ABOUTME: Describes the receive state machine and its collaborators
// Package sink implements the receive side of an LE Audio broadcast.
//
// A Sink scans for a Broadcast Audio Announcement, synchronizes to the
// source's periodic advertising train until both the BASE and the BIGInfo
// are known, then syncs to the BIG and decodes one stream per channel.
// Missing frames are concealed on a per-channel timer: the first one and a
// half frames after the last packet, then once per frame. Decoded frames
// are interleaved by a playback.Assembler once every channel has produced
// one.
//
// All Sink methods, timer callbacks and the output pull run on a single
// runloop goroutine; nothing in the package locks.
package sink
