package hyperloglog

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// sparseOps builds a sparse opcode stream by hand, independently of the
// encoder under test.
type sparseOps struct{ buf []byte }

func (o *sparseOps) zeros(n int) {
	for n > redisSparseZeroMaxLen {
		run := n
		if run > redisSparseXZeroMaxLen {
			run = redisSparseXZeroMaxLen
		}
		o.buf = append(o.buf, 0x40|byte((run-1)>>8), byte(run-1))
		n -= run
	}
	if n > 0 {
		o.buf = append(o.buf, byte(n-1))
	}
}

func (o *sparseOps) val(v uint8, run int) {
	o.buf = append(o.buf, 0x80|(v-1)<<2|byte(run-1))
}

// TestRedisHeader verifies the fixed 16-byte header layout.
func TestRedisHeader(t *testing.T) {
	data := NewRedis().AddString("x").Serialize()

	if string(data[:4]) != "HYLL" {
		t.Errorf("magic = %q, want HYLL", data[:4])
	}
	if data[4] != redisEncSparse {
		t.Errorf("encoding byte = %d, want sparse (1)", data[4])
	}
	for i := 5; i < 15; i++ {
		if data[i] != 0 {
			t.Errorf("header byte %d = %#x, want 0", i, data[i])
		}
	}
	if data[15] != 0x80 {
		t.Errorf("header byte 15 = %#x, want the 0x80 stale marker", data[15])
	}
}

// TestRedisSerializeEmpty verifies an empty sketch encodes as one XZERO
// run covering the whole register space: 16-byte header plus 2 bytes.
func TestRedisSerializeEmpty(t *testing.T) {
	data := NewRedis().Serialize()

	want := append(redisHeader(redisEncSparse), 0x40|0x3F, 0xFF) // len-1 = 16383
	if !bytes.Equal(data, want) {
		t.Fatalf("got % x, want % x", data, want)
	}

	back, err := DeserializeRedis(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.RegisterCount() != 0 || back.Cardinality() != 0 {
		t.Error("empty sketch did not round-trip")
	}
}

// TestRedisSerializeHello pins the documented single-item buffer down to
// its exact 21 bytes: header, an XZERO run up to the item's register, one
// VAL opcode, and an XZERO run for the rest. The constants derive from
// the reference hash of "hello" (0x0F656F01EECFE400): the high 14 bits
// give register 985, the low 50 bits have 10 trailing zeros giving rank
// 11. They are hard-coded, not recomputed, so a hash or opcode regression
// cannot cancel itself out here.
func TestRedisSerializeHello(t *testing.T) {
	want := []byte{
		'H', 'Y', 'L', 'L', // magic
		0x01,                                                       // sparse encoding
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // unused + zero cardinality
		0x80,       // cache stale marker
		0x43, 0xD8, // XZERO: 985 empty registers
		0xA8,       // VAL: rank 11, run 1
		0x7C, 0x25, // XZERO: 15398 empty registers
	}

	got := NewRedis().AddString("hello").Serialize()
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	back, err := DeserializeRedis(got)
	if err != nil {
		t.Fatal(err)
	}
	if back.RegisterCount() != 1 || back.regs[985] != 11 {
		t.Errorf("decoded registers = %v, want register 985 holding 11", back.regs)
	}
}

// TestRedisSparseCoalescing verifies adjacent equal registers collapse
// into shared VAL opcodes, four registers per opcode at most.
func TestRedisSparseCoalescing(t *testing.T) {
	s := &RedisSketch{regs: registers{
		10: 3, 11: 3, 12: 3, 13: 3, 14: 3, // five in a row: VAL(3,4) + VAL(3,1)
		20: 7,
	}}

	var want sparseOps
	want.buf = redisHeader(redisEncSparse)
	want.zeros(10)
	want.val(3, 4)
	want.val(3, 1)
	want.zeros(5)
	want.val(7, 1)
	want.zeros(redisRegisters - 21)

	if got := s.Serialize(); !bytes.Equal(got, want.buf) {
		t.Fatalf("got % x, want % x", got, want.buf)
	}
}

// TestRedisSparseFallbackToDense verifies the two dense triggers: a value
// that VAL cannot carry, and an oversized population.
func TestRedisSparseFallbackToDense(t *testing.T) {
	t.Run("value above 32", func(t *testing.T) {
		s := &RedisSketch{regs: registers{100: 33}}

		data := s.Serialize()
		if data[4] != redisEncDense {
			t.Fatalf("encoding byte = %d, want dense", data[4])
		}

		back, err := DeserializeRedis(data)
		if err != nil {
			t.Fatal(err)
		}
		if !back.Equal(s) {
			t.Error("sketch did not round-trip through dense")
		}
	})

	t.Run("too many registers", func(t *testing.T) {
		regs := make(registers)
		for i := 0; i < redisSparseMaxRegisters+1; i++ {
			regs[uint16(i*3)] = 1
		}
		s := &RedisSketch{regs: regs}

		if data := s.Serialize(); data[4] != redisEncDense {
			t.Errorf("encoding byte = %d, want dense", data[4])
		}
	})
}

// TestRedisDensePacking pins the 4-registers-into-3-bytes layout down to
// exact byte values.
func TestRedisDensePacking(t *testing.T) {
	// Registers 0..3 hold 0b000001..0b000100; forced dense via a rank
	// above 32 parked at the end of the register space.
	s := &RedisSketch{regs: registers{
		0: 1, 1: 2, 2: 3, 3: 4,
		redisRegisters - 1: 51,
	}}

	data := s.Serialize()
	if data[4] != redisEncDense {
		t.Fatalf("expected dense encoding")
	}

	body := data[redisHeaderSize:]
	if len(body) != redisDenseSize {
		t.Fatalf("dense body is %d bytes, want %d", len(body), redisDenseSize)
	}

	// byte0 = [reg1 low 2][reg0]; byte1 = [reg2 low 4][reg1 high 4];
	// byte2 = [reg3][reg2 high 2].
	want := []byte{
		0b10_000001, // reg1 = 000010, low two bits 10, reg0 = 000001
		0b0011_0000, // reg2 = 000011, low four bits 0011, reg1 high four 0000
		0b000100_00, // reg3 = 000100, reg2 high two bits 00
	}
	if !bytes.Equal(body[:3], want) {
		t.Fatalf("got %08b, want %08b", body[:3], want)
	}

	// Last group: reg16383 = 51 = 0b110011 sits in the top of byte2.
	last := body[len(body)-3:]
	if last[2] != 0b110011_00 {
		t.Errorf("final byte = %08b, want 11001100", last[2])
	}

	back, err := DeserializeRedis(data)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(s) {
		t.Error("sketch did not round-trip through dense packing")
	}
}

// TestRedisRoundTripBothFormats drives decode(encode(s)) == s across both
// wire encodings by varying population size.
func TestRedisRoundTripBothFormats(t *testing.T) {
	for _, tc := range []struct {
		name  string
		items int
		enc   byte
	}{
		{"sparse", 500, redisEncSparse},
		{"dense", 5000, redisEncDense},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewRedis()
			for i := 0; i < tc.items; i++ {
				s = s.AddString(fmt.Sprintf("item-%d", i))
			}

			data := s.Serialize()
			if data[4] != tc.enc {
				t.Fatalf("encoding byte = %d, want %d", data[4], tc.enc)
			}

			back, err := DeserializeRedis(data)
			if err != nil {
				t.Fatal(err)
			}
			if !back.Equal(s) {
				t.Error("sketch did not round-trip")
			}
			if back.Cardinality() != s.Cardinality() {
				t.Errorf("cardinality changed across round-trip: %d != %d",
					back.Cardinality(), s.Cardinality())
			}
		})
	}
}

// TestDeserializeRedisMalformed tables the decode failure modes of the
// wire format.
func TestDeserializeRedisMalformed(t *testing.T) {
	valid := NewRedis().AddString("x").Serialize()

	badMagic := append([]byte{}, valid...)
	copy(badMagic, "NOPE")

	badEnc := append([]byte{}, valid...)
	badEnc[4] = 7

	truncatedXZero := append(redisHeader(redisEncSparse), 0x40) // XZERO missing its second byte

	// ZERO(64) opcodes past the end of the register space.
	overflow := redisHeader(redisEncSparse)
	for i := 0; i < 300; i++ {
		overflow = append(overflow, 0x3F)
	}

	// Opcodes that stop short of covering all 16384 positions.
	short := append(redisHeader(redisEncSparse), 0x3F)

	shortDense := append(redisHeader(redisEncDense), make([]byte, redisDenseSize-1)...)

	cases := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"short header", valid[:10]},
		{"bad magic", badMagic},
		{"unknown encoding byte", badEnc},
		{"truncated XZERO", truncatedXZero},
		{"register space overflow", overflow},
		{"incomplete register coverage", short},
		{"truncated dense body", shortDense},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DeserializeRedis(tc.data); !errors.Is(err, ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
		})
	}
}

// TestRedisSerializeDeterministic verifies equal sketches produce equal
// wire bytes regardless of insertion order.
func TestRedisSerializeDeterministic(t *testing.T) {
	a := NewRedis().AddString("x").AddString("y").AddString("z")
	b := NewRedis().AddString("z").AddString("y").AddString("x")

	if !bytes.Equal(a.Serialize(), b.Serialize()) {
		t.Error("equal sketches serialized to different bytes")
	}
}
