package hyperloglog

import (
	"fmt"
	"sort"

	"hll.lopezb.com/internal/bitio"
)

// The compact codec for the generic Sketch.
//
// A serialized sketch is a single header byte followed by the body:
//
//	+--------+--------------------------------+
//	| header | sparse records / dense fields  |
//	+--------+--------------------------------+
//
// The header's high nibble selects the body format (0 = sparse, 1 = dense)
// and the low nibble stores p-8, which covers the whole precision range in
// four bits.
//
// The sparse body is a sequence of fixed-width (p+6)-bit records, each a
// p-bit register index followed by a 6-bit value, packed MSB-first with no
// count field. The decoder simply pulls records while at least p+6 bits
// remain, so the encoder keeps between 1 and 8 trailing zero bits: the
// usual byte-alignment remainder, or one full zero byte when the records
// happen to end exactly on a byte boundary. A record is at least 14 bits,
// so up to 8 padding bits can never be misread as another record. An empty
// sketch is just the header byte.
//
// The dense body lists all 2^p registers as 6-bit fields in index order.
// 6 * 2^p is a multiple of 8 for every supported p, so the dense body is
// naturally byte-aligned and its length is exact.
const (
	formatSparse = 0x0
	formatDense  = 0x1
)

// Serialize encodes the sketch, choosing the sparse body iff it is
// strictly smaller than the dense one.
func (s *Sketch) Serialize() []byte {
	header := byte(formatSparse<<4 | (s.precision - MinPrecision))

	recordBits := int(s.precision) + 6
	denseBits := 6 << s.precision

	if recordBits*len(s.regs) >= denseBits {
		return s.serializeDense()
	}
	if len(s.regs) == 0 {
		return []byte{header}
	}

	// Emit records in ascending index order so equal sketches serialize
	// to equal bytes.
	idxs := make([]uint16, 0, len(s.regs))
	for idx := range s.regs {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	var w bitio.Writer
	for _, idx := range idxs {
		w.WriteBits(uint64(idx), uint(s.precision))
		w.WriteBits(uint64(s.regs[idx]), 6)
	}

	body := w.Bytes()
	if w.BitLen()%8 == 0 {
		// The records end exactly on a byte boundary; add a full byte
		// of padding so the trailing padding is never empty.
		body = append(body, 0)
	}

	out := make([]byte, 0, 1+len(body))
	out = append(out, header)
	return append(out, body...)
}

func (s *Sketch) serializeDense() []byte {
	header := byte(formatDense<<4 | (s.precision - MinPrecision))

	var w bitio.Writer
	for idx := 0; idx < 1<<s.precision; idx++ {
		w.WriteBits(uint64(s.regs[uint16(idx)]), 6)
	}

	body := w.Bytes()
	out := make([]byte, 0, 1+len(body))
	out = append(out, header)
	return append(out, body...)
}

// Deserialize decodes a buffer produced by Serialize into a Sketch using
// the default hash function. It returns an error wrapping ErrMalformed if
// the header is unrecognized or the body is truncated or corrupted.
func Deserialize(data []byte) (*Sketch, error) {
	return DeserializeWithHash(data, nil)
}

// DeserializeWithHash is Deserialize for sketches whose items were hashed
// with a non-default Hash32. The hash is not part of the wire format, so
// the caller must supply the same function the sketch was built with for
// subsequent Adds to be meaningful.
func DeserializeWithHash(data []byte, hash Hash32) (*Sketch, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrMalformed)
	}
	if hash == nil {
		hash = XXHash32
	}

	format := data[0] >> 4
	precision := data[0]&0x0F + MinPrecision
	if precision > MaxPrecision {
		return nil, fmt.Errorf("%w: precision %d out of range", ErrMalformed, precision)
	}

	var (
		regs registers
		err  error
	)
	switch format {
	case formatSparse:
		regs, err = decodeSparseBody(precision, data[1:])
	case formatDense:
		regs, err = decodeDenseBody(precision, data[1:])
	default:
		return nil, fmt.Errorf("%w: unknown format nibble %#x", ErrMalformed, format)
	}
	if err != nil {
		return nil, err
	}

	return &Sketch{precision: precision, hash: hash, regs: regs}, nil
}

func decodeSparseBody(precision uint8, body []byte) (registers, error) {
	regs := make(registers)

	r := bitio.NewReader(body)
	recordBits := uint(precision) + 6
	for r.Remaining() >= recordBits {
		idx, _ := r.ReadBits(uint(precision))
		val, _ := r.ReadBits(6)

		// A populated register is never zero; a zero value means the
		// record stream is corrupt.
		if val == 0 {
			return nil, fmt.Errorf("%w: zero-valued sparse record", ErrMalformed)
		}
		regs[uint16(idx)] = uint8(val)
	}
	return regs, nil
}

func decodeDenseBody(precision uint8, body []byte) (registers, error) {
	want := (6 << precision) / 8
	if len(body) != want {
		return nil, fmt.Errorf("%w: dense body is %d bytes, want %d", ErrMalformed, len(body), want)
	}

	regs := make(registers)

	r := bitio.NewReader(body)
	for idx := 0; idx < 1<<precision; idx++ {
		val, _ := r.ReadBits(6)
		if val != 0 {
			regs[uint16(idx)] = uint8(val)
		}
	}
	return regs, nil
}
