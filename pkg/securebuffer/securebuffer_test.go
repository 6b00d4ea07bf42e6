package securebuffer

import (
	"bytes"
	"testing"
)

func TestNewZeroFilled(t *testing.T) {
	b := New(16)
	if b.Count() != 16 {
		t.Fatalf("Count() = %d, want 16", b.Count())
	}
	for i, v := range b.Bytes() {
		if v != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, v)
		}
	}
}

func TestNewFromBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	b := NewFromBytes(src)
	src[0] = 0xff
	if b.Bytes()[0] != 1 {
		t.Fatalf("NewFromBytes aliased the source slice")
	}
}

func TestNewFromString(t *testing.T) {
	b := NewFromString("hi", false)
	if !bytes.Equal(b.Bytes(), []byte("hi")) {
		t.Fatalf("got %q, want %q", b.Bytes(), "hi")
	}

	bNT := NewFromString("hi", true)
	want := []byte{'h', 'i', 0}
	if !bytes.Equal(bNT.Bytes(), want) {
		t.Fatalf("got %v, want %v", bNT.Bytes(), want)
	}
}

func TestAppend(t *testing.T) {
	a := NewFromBytes([]byte{1, 2})
	b := NewFromBytes([]byte{3, 4})
	a.Append(b)
	if !bytes.Equal(a.Bytes(), []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v", a.Bytes())
	}
}

func TestRemoveUntil(t *testing.T) {
	a := NewFromBytes([]byte{1, 2, 3, 4, 5})
	a.RemoveUntil(2)
	if !bytes.Equal(a.Bytes(), []byte{3, 4, 5}) {
		t.Fatalf("got %v", a.Bytes())
	}

	a.RemoveUntil(100)
	if a.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after over-length RemoveUntil", a.Count())
	}
}

func TestSlice(t *testing.T) {
	a := NewFromBytes([]byte{1, 2, 3, 4, 5})
	s := a.Slice(1, 3)
	if !bytes.Equal(s.Bytes(), []byte{2, 3, 4}) {
		t.Fatalf("got %v", s.Bytes())
	}
	// Must be a copy, not a view.
	s.Bytes()[0] = 0xff
	if a.Bytes()[1] != 2 {
		t.Fatalf("Slice aliased the source buffer")
	}
}

func TestUint16(t *testing.T) {
	a := NewFromBytes([]byte{0x01, 0x02, 0x03, 0x04})
	if got := a.Uint16LE(0); got != 0x0201 {
		t.Fatalf("Uint16LE = %#x, want 0x0201", got)
	}
	if got := a.Uint16BE(0); got != 0x0102 {
		t.Fatalf("Uint16BE = %#x, want 0x0102", got)
	}
}

func TestCString(t *testing.T) {
	a := NewFromBytes([]byte{'o', 'v', 'p', 'n', 0, 'x'})
	if got := a.CString(0); got != "ovpn" {
		t.Fatalf("CString = %q, want %q", got, "ovpn")
	}
}

func TestEqual(t *testing.T) {
	a := NewFromBytes([]byte{1, 2, 3})
	if !a.Equal([]byte{1, 2, 3}) {
		t.Fatalf("Equal returned false for identical contents")
	}
	if a.Equal([]byte{1, 2, 4}) {
		t.Fatalf("Equal returned true for differing contents")
	}
	if a.Equal([]byte{1, 2}) {
		t.Fatalf("Equal returned true for differing lengths")
	}
}

func TestHexDump(t *testing.T) {
	a := NewFromBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	if got := a.HexDump(); got != "deadbeef" {
		t.Fatalf("HexDump() = %q, want %q", got, "deadbeef")
	}
}

// TestReleaseScrubsStorage is the Go analogue of the spec's shim-allocator
// zeroing property: the slice backing the buffer must contain no non-zero
// byte that was present before Release.
func TestReleaseScrubsStorage(t *testing.T) {
	a := NewFromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	backing := a.Bytes() // retain a reference to the underlying array

	a.Release()

	for i, v := range backing {
		if v != 0 {
			t.Fatalf("backing storage byte %d = %#x after Release, want 0", i, v)
		}
	}
	if a.Count() != 0 {
		t.Fatalf("Count() = %d after Release, want 0", a.Count())
	}
}

func TestZeroWithoutRelease(t *testing.T) {
	a := NewFromBytes([]byte{9, 9, 9})
	a.Zero()
	for _, v := range a.Bytes() {
		if v != 0 {
			t.Fatalf("byte = %#x after Zero, want 0", v)
		}
	}
	if a.Count() != 3 {
		t.Fatalf("Zero() must not change Count(), got %d", a.Count())
	}
}
