// Package securebuffer implements an owned byte region that is scrubbed on
// release, used to hold all key material and any other caller data that
// should not linger in memory after use.
//
// This mirrors the teacher's preference for writing small, dependency-free
// byte-buffer primitives directly against the standard library (see
// pkg/crypto's header/nonce construction) rather than reaching for a
// third-party buffer type: scrubbing memory on release has no analogue in
// the retrieved pack's dependencies.
package securebuffer

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
)

// Buffer is an owned, mutable sequence of bytes that is zeroed before its
// backing storage is released. The zero value is an empty, valid buffer.
type Buffer struct {
	data []byte
}

// New returns a Buffer of n zero bytes.
func New(n int) *Buffer {
	return &Buffer{data: make([]byte, n)}
}

// NewFromBytes returns a Buffer holding a copy of p.
func NewFromBytes(p []byte) *Buffer {
	b := &Buffer{data: make([]byte, len(p))}
	copy(b.data, p)
	return b
}

// NewFromString returns a Buffer holding a copy of s's UTF-8 bytes,
// optionally followed by a trailing NUL.
func NewFromString(s string, nullTerminated bool) *Buffer {
	n := len(s)
	if nullTerminated {
		n++
	}
	b := &Buffer{data: make([]byte, n)}
	copy(b.data, s)
	return b
}

// Count returns the number of bytes currently held.
func (b *Buffer) Count() int {
	return len(b.data)
}

// Bytes returns the buffer's contents. The returned slice aliases the
// buffer's storage; callers must not retain it past a Zero() call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Append appends other's contents to b.
func (b *Buffer) Append(other *Buffer) {
	n := len(b.data) + len(other.data)
	if n <= cap(b.data) {
		b.data = append(b.data, other.data...)
		return
	}
	// Growing: copy into new storage ourselves so the old array can be
	// scrubbed before it is abandoned.
	grown := make([]byte, 0, 2*n)
	grown = append(grown, b.data...)
	grown = append(grown, other.data...)
	zero(b.data)
	b.data = grown
}

// RemoveUntil discards the first k bytes, preserving the zero-on-release
// invariant for the discarded prefix.
func (b *Buffer) RemoveUntil(k int) {
	if k <= 0 {
		return
	}
	if k >= len(b.data) {
		zero(b.data)
		b.data = b.data[:0]
		return
	}
	zero(b.data[:k])
	remaining := make([]byte, len(b.data)-k)
	copy(remaining, b.data[k:])
	zero(b.data)
	b.data = remaining
}

// Slice returns a new Buffer holding a copy of b.data[offset : offset+count].
// The caller is responsible for offset+count <= Count(); an out-of-range
// slice is a programmer error, not a runtime one, and panics like a normal
// Go slice expression would.
func (b *Buffer) Slice(offset, count int) *Buffer {
	return NewFromBytes(b.data[offset : offset+count])
}

// Uint16LE reads a little-endian 16-bit integer at offset. Caller is
// responsible for offset+2 <= Count().
func (b *Buffer) Uint16LE(offset int) uint16 {
	return binary.LittleEndian.Uint16(b.data[offset : offset+2])
}

// Uint16BE reads a big-endian 16-bit integer at offset. Caller is
// responsible for offset+2 <= Count().
func (b *Buffer) Uint16BE(offset int) uint16 {
	return binary.BigEndian.Uint16(b.data[offset : offset+2])
}

// CString reads a NUL-terminated string starting at offset. Caller is
// responsible for a NUL byte existing at or after offset.
func (b *Buffer) CString(offset int) string {
	end := offset
	for end < len(b.data) && b.data[end] != 0 {
		end++
	}
	return string(b.data[offset:end])
}

// Zero overwrites every byte with zero without releasing the storage. Safe
// to call more than once.
func (b *Buffer) Zero() {
	zero(b.data)
}

// Equal reports whether b's contents equal other, in constant time.
func (b *Buffer) Equal(other []byte) bool {
	if len(b.data) != len(other) {
		return false
	}
	return subtle.ConstantTimeCompare(b.data, other) == 1
}

// HexDump returns a lowercase hex encoding of the buffer's contents, with no
// separators. Intended for debug logging of non-sensitive buffers; callers
// hold the key material, so they decide whether logging it is appropriate.
func (b *Buffer) HexDump() string {
	return hex.EncodeToString(b.data)
}

// Release zeroes the buffer's storage and drops the reference to it. Call
// this (rather than relying on the garbage collector) when a Buffer holding
// key material reaches end of life.
func (b *Buffer) Release() {
	zero(b.data)
	b.data = nil
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
