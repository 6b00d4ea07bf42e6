// Package datapath implements the bidirectional packet pipeline that
// bridges packet framing (pkg/packet), the configured authenticated
// encryption construction (pkg/crypto), and replay detection
// (pkg/replay).
//
// Grounded on the teacher's pkg/session.SecureContext: one encrypter, one
// decrypter, an outbound counter and an inbound reception state owned
// together, with Encrypt/Decrypt methods that thread packets through the
// codec and update the counter/reception state as a side effect. Unlike
// SecureContext's single mutex, the send and receive paths here use
// independent locks: the data path's send state (packet counter, send
// scratch buffer) and receive state (decrypter, replay window, receive
// scratch buffer) are disjoint, so the two directions may run
// concurrently on separate goroutines without contending on each other's
// lock.
package datapath

import (
	"github.com/pion/logging"

	"github.com/pia-foss/tunnel-core/pkg/crypto"
	"github.com/pia-foss/tunnel-core/pkg/packet"
	"github.com/pia-foss/tunnel-core/pkg/replay"
	"github.com/pia-foss/tunnel-core/pkg/securebuffer"
	"github.com/pia-foss/tunnel-core/pkg/tunerr"

	"sync"
)

const defaultMaxPacketID uint32 = 0xFFFFFFFF

// Config constructs a DataPath.
type Config struct {
	Encrypter            crypto.Encrypter
	Decrypter            crypto.Decrypter
	MaxPackets           int  // batch bound; 0 means unbounded
	UsesReplayProtection bool
	ReplayWindowBits     uint32 // defaults to 128 when UsesReplayProtection is set and this is 0

	// LoggerFactory creates the data path's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// DataPath is the thread-safe bidirectional packet pipeline. Send-direction
// calls (EncryptPackets) and receive-direction calls (DecryptPackets) may
// run concurrently from two different goroutines; concurrent calls within
// the same direction are not supported and must be serialized by the
// caller.
type DataPath struct {
	encrypter  crypto.Encrypter
	decrypter  crypto.Decrypter
	maxPackets int

	log logging.LeveledLogger

	// peerID/havePeerID are shared configuration read by both directions
	// but written only by SetPeerID; guarded by their own lock so neither
	// direction's mutex has to account for the other.
	cfgMu      sync.Mutex
	peerID     uint32
	havePeerID bool

	sendMu       sync.Mutex
	nextPacketID uint32
	maxPacketID  uint32
	sendScratch  *securebuffer.Buffer

	recvMu       sync.Mutex
	replayWindow *replay.Window
	recvScratch  *securebuffer.Buffer
}

// New constructs a DataPath from cfg.
func New(cfg Config) *DataPath {
	dp := &DataPath{
		encrypter:    cfg.Encrypter,
		decrypter:    cfg.Decrypter,
		maxPackets:   cfg.MaxPackets,
		maxPacketID:  defaultMaxPacketID,
		nextPacketID: 1,
		sendScratch:  securebuffer.New(0),
		recvScratch:  securebuffer.New(0),
	}
	if cfg.LoggerFactory != nil {
		dp.log = cfg.LoggerFactory.NewLogger("datapath")
	}
	if cfg.UsesReplayProtection {
		bits := cfg.ReplayWindowBits
		if bits == 0 {
			bits = 128
		}
		dp.replayWindow = replay.New(bits)
	}
	return dp
}

// SetPeerID installs a 24-bit peer id, switching outgoing framing to the
// four-byte DataV2 header and requiring it on incoming packets.
func (dp *DataPath) SetPeerID(peerID uint32) {
	dp.cfgMu.Lock()
	dp.peerID = peerID & 0x00FFFFFF
	dp.havePeerID = true
	dp.cfgMu.Unlock()
}

// SetMaxPacketID overrides the default cap (0xFFFFFFFF) on outgoing packet
// ids.
func (dp *DataPath) SetMaxPacketID(max uint32) {
	dp.sendMu.Lock()
	dp.maxPacketID = max
	dp.sendMu.Unlock()
}

// EncryptPackets assembles and encrypts each payload in payloads under the
// given key-id (0..7), advancing the packet-id counter once per payload.
//
// On overflow (the counter would exceed the configured maximum) the whole
// batch is aborted with tunerr.DataPathOverflow; packets already produced
// are still returned alongside the error.
func (dp *DataPath) EncryptPackets(payloads [][]byte, key uint8) ([][]byte, error) {
	dp.sendMu.Lock()
	defer dp.sendMu.Unlock()

	if dp.maxPackets > 0 && len(payloads) > dp.maxPackets {
		if dp.log != nil {
			dp.log.Warnf("batch of %d payloads truncated to max_packets=%d", len(payloads), dp.maxPackets)
		}
		payloads = payloads[:dp.maxPackets]
	}

	havePeerID, peerID := dp.peerIDConfig()

	out := make([][]byte, 0, len(payloads))
	for _, payload := range payloads {
		// nextPacketID starts at 1, so 0 means the counter wrapped past
		// 0xFFFFFFFF: the id space is exhausted.
		if dp.nextPacketID == 0 || dp.nextPacketID > dp.maxPacketID {
			return out, tunerr.New(tunerr.DataPathOverflow, nil)
		}
		pid := dp.nextPacketID

		var header []byte
		if havePeerID {
			hdr := packet.HeaderDataV2(key, peerID)
			header = hdr[:]
		} else {
			header = []byte{packet.HeaderShort(packet.DataV1, key)}
		}

		envelope, err := dp.encrypter.Encrypt(pid, payload, header)
		if err != nil {
			if dp.log != nil {
				dp.log.Warnf("encrypt pid=%d: %v", pid, err)
			}
			return out, tunerr.New(tunerr.CryptoBoxEncryption, err)
		}

		// Assemble the framed packet in the reusable send scratch buffer,
		// then hand the caller an owned copy.
		dp.sendScratch.RemoveUntil(dp.sendScratch.Count())
		dp.sendScratch.Append(securebuffer.NewFromBytes(header))
		dp.sendScratch.Append(securebuffer.NewFromBytes(envelope))
		framed := append([]byte(nil), dp.sendScratch.Bytes()...)

		out = append(out, framed)
		dp.nextPacketID++
	}
	return out, nil
}

// DecryptPackets authenticates, decrypts, and replay-checks each packet in
// packets. The returned payloads list omits keepalive pings (reported via
// the keepalive return value) and any packet dropped for authentication
// failure, peer-id mismatch, or replay; those are policy-level drops, not
// batch-aborting errors, and the returned error is always nil.
func (dp *DataPath) DecryptPackets(packets [][]byte) (payloads [][]byte, keepalive bool, err error) {
	dp.recvMu.Lock()
	defer dp.recvMu.Unlock()

	if dp.maxPackets > 0 && len(packets) > dp.maxPackets {
		if dp.log != nil {
			dp.log.Warnf("batch of %d packets truncated to max_packets=%d", len(packets), dp.maxPackets)
		}
		packets = packets[:dp.maxPackets]
	}

	havePeerID, configuredPeerID := dp.peerIDConfig()

	payloads = make([][]byte, 0, len(packets))

	for _, pkt := range packets {
		if len(pkt) < 1 {
			continue
		}
		op, _ := packet.ParseShort(pkt[0])
		if op != packet.DataV1 && op != packet.DataV2 {
			continue
		}

		var header []byte
		var body []byte
		if op == packet.DataV2 {
			if len(pkt) < packet.DataV2HeaderSize {
				continue
			}
			peerID := packet.ParseDataV2PeerID(pkt[:packet.DataV2HeaderSize])
			if !havePeerID || peerID != configuredPeerID {
				// Peer-id mismatch drops this packet only; per spec.md §4.H
				// failure semantics this never aborts the batch, so it is
				// logged, not surfaced through the call's returned error.
				if dp.log != nil {
					dp.log.Warnf("peer-id mismatch: got %#x", peerID)
				}
				continue
			}
			header = pkt[:packet.DataV2HeaderSize]
			body = pkt[packet.DataV2HeaderSize:]
		} else {
			if havePeerID {
				// A peer-id is installed but this packet carries the short
				// DataV1 header: reject it the same way a DataV2 packet
				// with the wrong peer-id is rejected.
				if dp.log != nil {
					dp.log.Warnf("dropped DataV1 packet: peer-id %#x is installed", configuredPeerID)
				}
				continue
			}
			header = pkt[:packet.ShortHeaderSize]
			body = pkt[packet.ShortHeaderSize:]
		}

		pid, payload, derr := dp.decrypter.Decrypt(body, header)
		if derr != nil {
			if dp.log != nil {
				dp.log.Warnf("decrypt dropped: %v", derr)
			}
			continue
		}

		if pid == 0 {
			continue
		}

		if dp.replayWindow != nil && dp.replayWindow.IsReplayed(pid) {
			continue
		}

		if isPingSentinel(payload) {
			keepalive = true
			continue
		}

		// Stage the decrypted payload through the reusable receive scratch
		// buffer, then hand the caller an owned copy.
		dp.recvScratch.RemoveUntil(dp.recvScratch.Count())
		dp.recvScratch.Append(securebuffer.NewFromBytes(payload))
		payloads = append(payloads, append([]byte(nil), dp.recvScratch.Bytes()...))
	}

	return payloads, keepalive, err
}

// peerIDConfig returns the installed peer id and whether one has been set.
func (dp *DataPath) peerIDConfig() (bool, uint32) {
	dp.cfgMu.Lock()
	defer dp.cfgMu.Unlock()
	return dp.havePeerID, dp.peerID
}

func isPingSentinel(payload []byte) bool {
	if len(payload) != len(packet.PingSentinel) {
		return false
	}
	for i := range payload {
		if payload[i] != packet.PingSentinel[i] {
			return false
		}
	}
	return true
}
