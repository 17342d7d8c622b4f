// ABOUTME: Fixed-capacity circular byte buffer for decoded PCM
// ABOUTME: Single writer and single reader on the same goroutine, no locking
package playback

// Ring is a circular byte store. A write that does not fit is rejected as a
// whole; the caller decides how to account for it.
type Ring struct {
	buffer   []byte
	readPos  int
	writePos int
	count    int
}

// NewRing creates a ring buffer holding capacity bytes
func NewRing(capacity int) *Ring {
	return &Ring{buffer: make([]byte, capacity)}
}

// Write appends p if it fits entirely and reports whether it did
func (r *Ring) Write(p []byte) bool {
	if len(p) > r.Free() {
		return false
	}
	if len(p) == 0 {
		return true
	}

	n := copy(r.buffer[r.writePos:], p)
	if n < len(p) {
		copy(r.buffer, p[n:])
	}
	r.writePos = (r.writePos + len(p)) % len(r.buffer)
	r.count += len(p)
	return true
}

// Read copies up to len(p) bytes out of the buffer
func (r *Ring) Read(p []byte) int {
	want := len(p)
	if want > r.count {
		want = r.count
	}
	if want == 0 {
		return 0
	}

	n := copy(p[:want], r.buffer[r.readPos:])
	if n < want {
		copy(p[n:want], r.buffer)
	}
	r.readPos = (r.readPos + want) % len(r.buffer)
	r.count -= want
	return want
}

// Available returns the number of bytes ready to read
func (r *Ring) Available() int {
	return r.count
}

// Free returns the number of bytes that can still be written
func (r *Ring) Free() int {
	return len(r.buffer) - r.count
}

// Cap returns the buffer capacity in bytes
func (r *Ring) Cap() int {
	return len(r.buffer)
}

// Reset discards all buffered bytes
func (r *Ring) Reset() {
	r.readPos = 0
	r.writePos = 0
	r.count = 0
}
