package packet

// PingSentinel is the fixed 16-byte keepalive payload (named
// DataPacketPingData in the Objective-C core this spec distills). When a
// decrypted packet's payload equals it byte-for-byte, the data path consumes
// it and reports liveness via a keepalive flag instead of surfacing it as
// data.
var PingSentinel = []byte{
	0x2a, 0x18, 0x7b, 0xf3, 0x64, 0x1e, 0xb4, 0xcb,
	0x07, 0xed, 0x2d, 0x0a, 0x98, 0x1f, 0xc7, 0x48,
}
