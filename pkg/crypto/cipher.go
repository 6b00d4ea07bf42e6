// Package crypto implements the authenticated-encryption constructions used
// by the data path: CBC-with-HMAC (Encrypt-then-MAC) and AEAD (AES-GCM).
//
// Both constructions satisfy the same small capability set so the data path
// can be generic over the choice of cipher: construct with a cipher (and, for
// CBC, digest) name, install key material once per direction, then encrypt or
// decrypt individual packet bodies.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/blowfish"
)

// CompressionNone is the only compression marker this core emits or accepts
// ("no compression"); any other value found on decrypt is rejected.
const CompressionNone byte = 0xFA

// PIDSize is the wire width of a packet id.
const PIDSize = 4

// Errors returned by this package. The data path maps these onto the stable
// numeric taxonomy in pkg/tunerr; these sentinels stay importable on their
// own so pkg/crypto has no dependency on the higher layer.
var (
	ErrUnknownCipher  = fmt.Errorf("crypto: unknown cipher or digest name")
	ErrInvalidKeySize = fmt.Errorf("crypto: invalid key size for cipher")
	ErrAuthentication = fmt.Errorf("crypto: authentication failed")
	ErrBadCompression = fmt.Errorf("crypto: unsupported compression marker")
	ErrEnvelopeShort  = fmt.Errorf("crypto: envelope too short")
)

// blockCipherSpec describes the key size and block constructor for a named
// block cipher usable in CBC mode.
type blockCipherSpec struct {
	keySize int
	newBlock func(key []byte) (cipher.Block, error)
}

var blockCiphers = map[string]blockCipherSpec{
	"AES-128-CBC": {16, aes.NewCipher},
	"AES-256-CBC": {32, aes.NewCipher},
	"BF-CBC":      {16, blowfish.NewCipher},
}

// aeadKeySizes maps a GCM cipher name to its key size.
var aeadKeySizes = map[string]int{
	"AES-128-GCM": 16,
	"AES-256-GCM": 32,
}

// digestSpec describes a selectable HMAC digest.
type digestSpec struct {
	size   int
	newFn  func() hash.Hash
}

var digests = map[string]digestSpec{
	"SHA1":   {sha1.Size, sha1.New},
	"SHA256": {sha256.Size, sha256.New},
	"SHA512": {sha512.Size, sha512.New},
}

// Cipher is the capability every concrete construction (CBC+HMAC, AEAD)
// reports, independent of whether it has been configured for encryption or
// decryption yet.
type Cipher interface {
	// OverheadLength is the worst-case number of bytes this construction adds
	// to a packet (IV/tag/padding/HMAC).
	OverheadLength() int

	// ExtraLength is the number of caller-provided trailer bytes associated
	// with a packet outside the ciphertext itself (the packet id, for AEAD).
	// Zero for CBC.
	ExtraLength() int
}

// Encrypter authenticates and encrypts one packet body.
//
// pid is folded into the plaintext for CBC and used (with the configured
// implicit IV) to build the AEAD nonce; it is never itself secret. aad is
// ignored by CBC and used as associated data by AEAD — normally the packet's
// wire header bytes, per the data path's framing.
type Encrypter interface {
	Cipher
	Encrypt(pid uint32, payload, aad []byte) ([]byte, error)
}

// Decrypter authenticates and decrypts one packet envelope, returning the
// embedded packet id and the raw payload with its compression marker
// validated and stripped.
type Decrypter interface {
	Cipher
	Decrypt(envelope, aad []byte) (pid uint32, payload []byte, err error)
}
