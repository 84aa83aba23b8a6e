// Package bitio provides an MSB-first bit stream writer and reader.
//
// It exists for the compact sketch codec, whose sparse records are not
// byte-aligned: each record is a p-bit register index followed by a 6-bit
// value, packed back to back. Bits are written into each byte starting at
// the most significant position, so the first bit written lands in bit 7 of
// the first byte.
package bitio

import "errors"

// ErrOutOfBits is returned by Reader.ReadBits when fewer bits remain in the
// stream than were requested.
var ErrOutOfBits = errors.New("bitio: read past end of stream")

// Writer accumulates bits into a byte slice, MSB-first.
// The zero value is ready to use.
type Writer struct {
	buf   []byte
	nbits uint
}

// WriteBits appends the width low-order bits of v to the stream, most
// significant bit first. width must be in [0, 64].
func (w *Writer) WriteBits(v uint64, width uint) {
	for width > 0 {
		if w.nbits%8 == 0 {
			w.buf = append(w.buf, 0)
		}

		// Number of bits that still fit in the current byte.
		free := 8 - w.nbits%8
		n := width
		if n > free {
			n = free
		}

		// Take the n most significant of the remaining bits and place
		// them against the current byte's write position.
		chunk := byte(v>>(width-n)) & (1<<n - 1)
		w.buf[len(w.buf)-1] |= chunk << (free - n)

		w.nbits += n
		width -= n
	}
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() int {
	return int(w.nbits)
}

// Bytes returns the written stream. Any unused bits in the final byte are
// zero. The returned slice is owned by the Writer until the next WriteBits.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes bits from a byte slice, MSB-first. It is the counterpart
// to Writer and reads back exactly the bit sequence that was written.
type Reader struct {
	data []byte
	pos  uint // absolute bit position
}

// NewReader returns a Reader over data. The Reader does not copy data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bits left in the stream.
func (r *Reader) Remaining() uint {
	return uint(len(r.data))*8 - r.pos
}

// ReadBits consumes the next width bits and returns them in the low-order
// bits of the result. width must be in [0, 64].
func (r *Reader) ReadBits(width uint) (uint64, error) {
	if width > r.Remaining() {
		return 0, ErrOutOfBits
	}

	var v uint64
	for width > 0 {
		avail := 8 - r.pos%8
		n := width
		if n > avail {
			n = avail
		}

		b := r.data[r.pos/8]
		chunk := (b >> (avail - n)) & (1<<n - 1)
		v = v<<n | uint64(chunk)

		r.pos += n
		width -= n
	}
	return v, nil
}
