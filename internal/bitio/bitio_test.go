package bitio

import (
	"bytes"
	"errors"
	"testing"
)

// TestWriteBits verifies the MSB-first packing against hand-computed byte
// patterns.
func TestWriteBits(t *testing.T) {
	t.Run("single byte", func(t *testing.T) {
		var w Writer
		w.WriteBits(0b1011, 4)
		w.WriteBits(0b0010, 4)

		if !bytes.Equal(w.Bytes(), []byte{0b1011_0010}) {
			t.Fatalf("unexpected bytes: %08b", w.Bytes())
		}
		if w.BitLen() != 8 {
			t.Errorf("BitLen = %d, want 8", w.BitLen())
		}
	})

	t.Run("field spanning a byte boundary", func(t *testing.T) {
		var w Writer
		w.WriteBits(0b111, 3)
		w.WriteBits(0b0000001101, 10) // crosses into the second byte

		// Stream: 111 0000001 | 101 (then zero padding)
		want := []byte{0b1110_0000, 0b0110_1000}
		if !bytes.Equal(w.Bytes(), want) {
			t.Fatalf("got %08b, want %08b", w.Bytes(), want)
		}
		if w.BitLen() != 13 {
			t.Errorf("BitLen = %d, want 13", w.BitLen())
		}
	})

	t.Run("unused trailing bits are zero", func(t *testing.T) {
		var w Writer
		w.WriteBits(1, 1)
		if w.Bytes()[0] != 0b1000_0000 {
			t.Fatalf("got %08b, want 10000000", w.Bytes()[0])
		}
	})
}

// TestRoundTrip writes a mixed sequence of field widths and reads it back.
func TestRoundTrip(t *testing.T) {
	type field struct {
		value uint64
		width uint
	}
	fields := []field{
		{0x3FFF, 14},
		{0, 6},
		{1, 1},
		{0xABCDEF, 24},
		{0x1FFFFFFFFFFFFF, 53},
		{5, 3},
	}

	var w Writer
	for _, f := range fields {
		w.WriteBits(f.value, f.width)
	}

	r := NewReader(w.Bytes())
	for i, f := range fields {
		got, err := r.ReadBits(f.width)
		if err != nil {
			t.Fatalf("field %d: unexpected error: %v", i, err)
		}
		if got != f.value {
			t.Errorf("field %d: got %#x, want %#x", i, got, f.value)
		}
	}
}

// TestReaderRemaining verifies the remaining-bit accounting that codec stop
// conditions depend on.
func TestReaderRemaining(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x00})

	if r.Remaining() != 16 {
		t.Fatalf("Remaining = %d, want 16", r.Remaining())
	}
	if _, err := r.ReadBits(5); err != nil {
		t.Fatal(err)
	}
	if r.Remaining() != 11 {
		t.Errorf("Remaining = %d, want 11", r.Remaining())
	}
}

// TestReadPastEnd verifies that over-reading fails with ErrOutOfBits and
// does not consume anything.
func TestReadPastEnd(t *testing.T) {
	r := NewReader([]byte{0xAA})

	if _, err := r.ReadBits(9); !errors.Is(err, ErrOutOfBits) {
		t.Fatalf("expected ErrOutOfBits, got %v", err)
	}

	// The failed read must not have advanced the position.
	got, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xAA {
		t.Errorf("got %#x, want 0xAA", got)
	}
}
