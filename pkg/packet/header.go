// Package packet implements the pure, allocation-light framing functions for
// the wire packet header: opcode/key encoding for the one-byte short header
// and the four-byte DataV2 header that additionally multiplexes a 24-bit
// peer id.
//
// This is grounded on the teacher's pkg/message/header.go: bit-packed flags
// assembled and parsed with encoding/binary, Encode/Decode pairs, no I/O.
package packet

import "encoding/binary"

// Opcode identifies the kind of packet a header describes.
type Opcode uint8

const (
	SoftResetV1       Opcode = 3
	ControlV1         Opcode = 4
	AckV1             Opcode = 5
	DataV1            Opcode = 6
	HardResetClientV2 Opcode = 7
	HardResetServerV2 Opcode = 8
	DataV2            Opcode = 9
	Unknown           Opcode = 0xff
)

// knownOpcodes lists every opcode ParseShort recognizes; anything
// else decodes to Unknown.
var knownOpcodes = map[Opcode]bool{
	SoftResetV1:       true,
	ControlV1:         true,
	AckV1:             true,
	DataV1:            true,
	HardResetClientV2: true,
	HardResetServerV2: true,
	DataV2:            true,
}

// ShortHeaderSize is the width of the one-byte header.
const ShortHeaderSize = 1

// DataV2HeaderSize is the width of the four-byte DataV2 header (one opcode
// byte followed by a 24-bit big-endian peer id).
const DataV2HeaderSize = 4

// HeaderShort builds the one-byte header: (opcode<<3) | (key&0b111).
func HeaderShort(op Opcode, key uint8) byte {
	return (byte(op) << 3) | (key & 0b111)
}

// ParseShort decodes a one-byte header into its opcode and key. An opcode
// value outside the defined set decodes to Unknown.
func ParseShort(b byte) (Opcode, uint8) {
	op := Opcode(b >> 3)
	key := b & 0b111
	if !knownOpcodes[op] {
		op = Unknown
	}
	return op, key
}

// HeaderDataV2 builds the four-byte DataV2 header: one byte
// (DataV2<<3)|(key&0b111), followed by the low 24 bits of peerID in
// network (big-endian) byte order.
func HeaderDataV2(key uint8, peerID uint32) [DataV2HeaderSize]byte {
	var out [DataV2HeaderSize]byte
	out[0] = HeaderShort(DataV2, key)
	out[1] = byte(peerID >> 16)
	out[2] = byte(peerID >> 8)
	out[3] = byte(peerID)
	return out
}

// ParseDataV2PeerID reads the 24-bit peer id from bytes[0:4] (a full DataV2
// header); bytes[0] is ignored here (callers use ParseShort on it for the
// opcode/key). Caller is responsible for len(bytes) >= 4.
func ParseDataV2PeerID(bytes []byte) uint32 {
	return uint32(bytes[1])<<16 | uint32(bytes[2])<<8 | uint32(bytes[3])
}

// WithHeader returns a short header byte followed by sessionID, if non-nil.
func WithHeader(op Opcode, key uint8, sessionID []byte) []byte {
	out := make([]byte, ShortHeaderSize+len(sessionID))
	out[0] = HeaderShort(op, key)
	copy(out[ShortHeaderSize:], sessionID)
	return out
}

// WithHeaderDataV2 returns a four-byte DataV2 header followed by sessionID,
// if non-nil.
func WithHeaderDataV2(key uint8, peerID uint32, sessionID []byte) []byte {
	hdr := HeaderDataV2(key, peerID)
	out := make([]byte, DataV2HeaderSize+len(sessionID))
	copy(out, hdr[:])
	copy(out[DataV2HeaderSize:], sessionID)
	return out
}

// uint24BE is a small helper kept for symmetry with the teacher's
// encoding/binary-based header helpers, used by tests to cross-check
// HeaderDataV2 against a generic big-endian encoder.
func uint24BE(v uint32) [3]byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	var out [3]byte
	copy(out[:], buf[1:])
	return out
}
