// ABOUTME: Bounds-checked little-endian reader
// ABOUTME: Backs the BASE decoder without reading past the buffer
package leaudio

import "fmt"

// reader walks a little-endian buffer and refuses to read past its end
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) need(n int, what string) error {
	if n < 0 || r.remaining() < n {
		return fmt.Errorf("%s at offset %d needs %d bytes, %d left: %w",
			what, r.off, n, r.remaining(), ErrTruncated)
	}
	return nil
}

func (r *reader) u8(what string) (uint8, error) {
	if err := r.need(1, what); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16(what string) (uint16, error) {
	if err := r.need(2, what); err != nil {
		return 0, err
	}
	v := uint16(r.buf[r.off]) | uint16(r.buf[r.off+1])<<8
	r.off += 2
	return v, nil
}

func (r *reader) u24(what string) (uint32, error) {
	if err := r.need(3, what); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.off]) | uint32(r.buf[r.off+1])<<8 | uint32(r.buf[r.off+2])<<16
	r.off += 3
	return v, nil
}

func (r *reader) u32(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.off]) | uint32(r.buf[r.off+1])<<8 |
		uint32(r.buf[r.off+2])<<16 | uint32(r.buf[r.off+3])<<24
	r.off += 4
	return v, nil
}

// bytes returns a sub-slice of the next n bytes without copying
func (r *reader) bytes(n int, what string) ([]byte, error) {
	if err := r.need(n, what); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return v, nil
}
