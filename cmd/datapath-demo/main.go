// datapath-demo exercises the data path end to end: it configures a cipher
// from flags, encrypts a few sample payloads, prints the framed packets as
// hex, then decrypts them back and reports what came out the other side.
//
// This is a demonstration of wiring, not a tunnel client: key material is
// generated locally rather than installed by a handshake.
//
// Usage:
//
//	datapath-demo [options]
//
// Options:
//
//	-cipher   Cipher name: AES-128-CBC, AES-256-CBC, BF-CBC, AES-128-GCM,
//	          AES-256-GCM (default: AES-256-GCM)
//	-digest   HMAC digest for CBC ciphers: SHA1, SHA256, SHA512
//	          (default: SHA256, ignored for GCM ciphers)
//	-peer-id  24-bit peer id in hex; if set, frames use the DataV2 header
//	-verbose  Give the data path a pion/logging logger, which it uses to
//	          report truncated batches and dropped packets
//
// Example:
//
//	datapath-demo -cipher AES-128-CBC -digest SHA1 -peer-id 112233
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pion/logging"

	"github.com/pia-foss/tunnel-core/pkg/crypto"
	"github.com/pia-foss/tunnel-core/pkg/datapath"
	"github.com/pia-foss/tunnel-core/pkg/prng"
)

func main() {
	cipherName := flag.String("cipher", "AES-256-GCM", "cipher name")
	digestName := flag.String("digest", "SHA256", "HMAC digest (CBC ciphers only)")
	peerIDHex := flag.String("peer-id", "", "24-bit peer id in hex")
	verbose := flag.Bool("verbose", false, "give the data path a logger")
	flag.Parse()

	if !prng.Prepare(randomSeed(32), 32) {
		log.Fatalf("prng.Prepare failed: %v", prng.Err())
	}

	var loggerFactory logging.LoggerFactory
	if *verbose {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	enc, dec, keySize, err := buildCodec(*cipherName, *digestName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	dp := datapath.New(datapath.Config{
		Encrypter:            enc,
		Decrypter:            dec,
		UsesReplayProtection: true,
		LoggerFactory:        loggerFactory,
	})

	if *peerIDHex != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(*peerIDHex, "0x"), 16, 32)
		if err != nil {
			log.Fatalf("invalid -peer-id: %v", err)
		}
		dp.SetPeerID(uint32(v))
	}

	payloads := [][]byte{
		[]byte("hello"),
		[]byte("from the data path demo"),
		[]byte(fmt.Sprintf("cipher=%s keysize=%d", *cipherName, keySize)),
	}

	framed, err := dp.EncryptPackets(payloads, 0)
	if err != nil {
		log.Fatalf("EncryptPackets: %v", err)
	}
	for i, pkt := range framed {
		fmt.Printf("packet[%d]: %x\n", i, pkt)
	}

	out, keepalive, err := dp.DecryptPackets(framed)
	if err != nil {
		log.Fatalf("DecryptPackets: %v", err)
	}
	for i, p := range out {
		fmt.Printf("decrypted[%d]: %s\n", i, p)
	}
	fmt.Printf("keepalive: %v\n", keepalive)
}

// buildCodec constructs an Encrypter/Decrypter pair sharing freshly drawn
// key material, returning the cipher key size for display purposes.
func buildCodec(cipherName, digestName string) (crypto.Encrypter, crypto.Decrypter, int, error) {
	if strings.HasSuffix(cipherName, "-GCM") {
		a, err := crypto.NewAEAD(cipherName)
		if err != nil {
			return nil, nil, 0, err
		}
		keySize := 32
		if cipherName == "AES-128-GCM" {
			keySize = 16
		}
		cipherKey := randomSeed(keySize)
		hmacKey := randomSeed(16)
		enc, err := a.ConfigureEncryption(cipherKey, hmacKey)
		if err != nil {
			return nil, nil, 0, err
		}
		dec, err := a.ConfigureDecryption(cipherKey, hmacKey)
		if err != nil {
			return nil, nil, 0, err
		}
		return enc, dec, keySize, nil
	}

	cbc, err := crypto.NewCBC(cipherName, digestName)
	if err != nil {
		return nil, nil, 0, err
	}
	keySize := 16
	if cipherName == "AES-256-CBC" {
		keySize = 32
	}
	cipherKey := randomSeed(keySize)
	hmacKey := randomSeed(32)
	enc, err := cbc.ConfigureEncryption(cipherKey, hmacKey)
	if err != nil {
		return nil, nil, 0, err
	}
	dec, err := cbc.ConfigureDecryption(cipherKey, hmacKey)
	if err != nil {
		return nil, nil, 0, err
	}
	return enc, dec, keySize, nil
}

func randomSeed(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("rand.Read: %v", err)
	}
	return b
}
