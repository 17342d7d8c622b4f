// ABOUTME: ISO sequence number arithmetic
// ABOUTME: Compares 16-bit sequence numbers across wraparound
package leaudio

// SeqDelta returns the signed distance from b to a on the 16-bit sequence
// number circle. Sequence numbers must only be compared through it.
func SeqDelta(a, b uint16) int16 {
	return int16(a - b)
}

// SeqAfter reports whether a is strictly newer than b
func SeqAfter(a, b uint16) bool {
	return SeqDelta(a, b) > 0
}
