package bitio

import (
	"errors"
	"testing"
)

func TestWriterReaderBitsMSBFirst(t *testing.T) {
	chunks := []struct {
		n int
		v uint64
	}{
		{9, 0b101010100},
		{8, 0b10101010},
		{7, 0b0101010},
		{6, 0b111100},
		{5, 0b00001},
		{4, 0b1100},
	}

	w := NewWriter(MSBFirst)
	for _, c := range chunks {
		w.WriteBits(c.n, c.v)
	}
	data := w.Bytes()

	r := NewReader(data, MSBFirst)
	for i, c := range chunks {
		got, err := r.ReadBits(c.n)
		if err != nil {
			t.Fatalf("chunk %d: ReadBits error: %v", i, err)
		}
		if got != c.v {
			t.Errorf("chunk %d: got %b, want %b", i, got, c.v)
		}
	}
}

func TestWriterReaderBitsLSBFirst(t *testing.T) {
	chunks := []struct {
		n int
		v uint64
	}{
		{9, 0b101010100},
		{8, 0b10101010},
		{7, 0b0101010},
		{6, 0b111100},
		{5, 0b00001},
		{4, 0b1100},
	}

	w := NewWriter(LSBFirst)
	for _, c := range chunks {
		w.WriteBits(c.n, c.v)
	}
	data := w.Bytes()

	r := NewReader(data, LSBFirst)
	for i, c := range chunks {
		got, err := r.ReadBits(c.n)
		if err != nil {
			t.Fatalf("chunk %d: ReadBits error: %v", i, err)
		}
		if got != c.v {
			t.Errorf("chunk %d: got %b, want %b", i, got, c.v)
		}
	}
}

func TestByteViewRoundTrip(t *testing.T) {
	w := NewWriter(MSBFirst)
	w.WriteBits(3, 0b101)
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	data := w.Bytes()

	r := NewReader(data, MSBFirst)
	if _, err := r.ReadBits(3); err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	if v, err := r.ReadU8(); err != nil || v != 0xAB {
		t.Errorf("ReadU8 = %x, %v, want 0xAB", v, err)
	}
	if v, err := r.ReadU16(); err != nil || v != 0x1234 {
		t.Errorf("ReadU16 = %x, %v, want 0x1234", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Errorf("ReadU32 = %x, %v, want 0xDEADBEEF", v, err)
	}
	if v, err := r.ReadU64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %x, %v, want 0x0102030405060708", v, err)
	}
}

func TestLEB128RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 256, 1_234_567_890, ^uint64(0)}

	w := NewWriter(MSBFirst)
	for _, v := range values {
		w.WriteLEB128(v)
	}
	data := w.Bytes()

	r := NewReader(data, MSBFirst)
	for i, want := range values {
		got, err := r.ReadLEB128()
		if err != nil {
			t.Fatalf("value %d: ReadLEB128 error: %v", i, err)
		}
		if got != want {
			t.Errorf("value %d: got %d, want %d", i, got, want)
		}
	}
	if !r.Exhausted() {
		t.Errorf("reader not exhausted after reading all values")
	}
}

func TestLEB128ByteCount(t *testing.T) {
	tests := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
	}
	for _, tt := range tests {
		w := NewWriter(MSBFirst)
		w.WriteLEB128(tt.v)
		if got := len(w.Bytes()); got != tt.want {
			t.Errorf("LEB128(%d) length = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestTruncation(t *testing.T) {
	w := NewWriter(MSBFirst)
	w.WriteU32(0xAABBCCDD)
	w.WriteBits(5, 0b10101)
	full := w.Bytes()

	for n := 0; n < len(full); n++ {
		r := NewReader(full[:n], MSBFirst)
		_, err1 := r.ReadU32()
		_, err2 := r.ReadBits(5)
		if err1 == nil && err2 == nil {
			// Only the full-length prefix may succeed fully; anything
			// shorter must fail somewhere.
			if n < len(full) {
				t.Errorf("n=%d: expected NotEnoughData, got none", n)
			}
			continue
		}
		if !errors.Is(err1, ErrNotEnoughData) && !errors.Is(err2, ErrNotEnoughData) {
			t.Errorf("n=%d: got errors %v / %v, want ErrNotEnoughData", n, err1, err2)
		}
	}
}

func TestDebugMarkerRoundTrip(t *testing.T) {
	w := NewWriter(MSBFirst)
	w.SetDebug(true)
	w.WriteMarker("SCOPE")
	w.WriteU8(42)
	data := w.Bytes()

	r := NewReader(data, MSBFirst)
	r.SetDebug(true)
	if err := r.ReadMarker("SCOPE"); err != nil {
		t.Fatalf("ReadMarker: %v", err)
	}
	if v, err := r.ReadU8(); err != nil || v != 42 {
		t.Errorf("ReadU8 = %d, %v, want 42", v, err)
	}
}

func TestDebugMarkerStrippedWhenDisabled(t *testing.T) {
	w := NewWriter(MSBFirst)
	w.WriteMarker("SCOPE") // no-op, debug disabled
	w.WriteU8(7)
	data := w.Bytes()
	if len(data) != 1 {
		t.Fatalf("expected marker to be stripped, got %d bytes", len(data))
	}
}
