package crypto

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/pia-foss/tunnel-core/pkg/prng"
)

// CBC is an unconfigured CBC-with-HMAC construction: it knows the block
// cipher and digest to use but holds no key material. Call ConfigureEncryption
// or ConfigureDecryption to bind a direction's keys, mirroring the teacher's
// NewAESCCM(key)-then-Seal/Open shape but split into a naming step and a
// keying step, per the data path's configure_encryption/configure_decryption
// contract.
type CBC struct {
	cipherSpec blockCipherSpec
	digest     digestSpec
}

// NewCBC constructs a CBC-with-HMAC descriptor for the given cipher
// ("AES-128-CBC", "AES-256-CBC", "BF-CBC") and digest ("SHA1", "SHA256",
// "SHA512") names.
func NewCBC(cipherName, digestName string) (*CBC, error) {
	cs, ok := blockCiphers[cipherName]
	if !ok {
		return nil, ErrUnknownCipher
	}
	ds, ok := digests[digestName]
	if !ok {
		return nil, ErrUnknownCipher
	}
	return &CBC{cipherSpec: cs, digest: ds}, nil
}

func (c *CBC) blockSize() int {
	// Probe with a zero key of the right size purely to read BlockSize();
	// the block itself is discarded.
	key := make([]byte, c.cipherSpec.keySize)
	b, err := c.cipherSpec.newBlock(key)
	if err != nil {
		// All registered ciphers accept a correctly sized all-zero key.
		panic(err)
	}
	return b.BlockSize()
}

// OverheadLength is hmac_len + block_size (IV) + block_size (worst-case
// PKCS#7 padding).
func (c *CBC) OverheadLength() int {
	bs := c.blockSize()
	return c.digest.size + bs + bs
}

// ExtraLength is always zero for CBC: the packet id travels inside the
// encrypted plaintext, not as a separate trailer.
func (c *CBC) ExtraLength() int { return 0 }

// ConfigureEncryption installs the encryption-direction keys and returns a
// bound Encrypter. cipherKey sizes the block cipher; hmacKey is used as-is
// with the configured digest.
func (c *CBC) ConfigureEncryption(cipherKey, hmacKey []byte) (Encrypter, error) {
	block, err := c.newBlock(cipherKey)
	if err != nil {
		return nil, err
	}
	return &cbcEncrypter{cbc: c, block: block, hmacKey: append([]byte(nil), hmacKey...)}, nil
}

// ConfigureDecryption installs the decryption-direction keys and returns a
// bound Decrypter.
func (c *CBC) ConfigureDecryption(cipherKey, hmacKey []byte) (Decrypter, error) {
	block, err := c.newBlock(cipherKey)
	if err != nil {
		return nil, err
	}
	return &cbcDecrypter{cbc: c, block: block, hmacKey: append([]byte(nil), hmacKey...)}, nil
}

func (c *CBC) newBlock(key []byte) (cipher.Block, error) {
	if len(key) != c.cipherSpec.keySize {
		return nil, ErrInvalidKeySize
	}
	return c.cipherSpec.newBlock(key)
}

type cbcEncrypter struct {
	cbc     *CBC
	block   cipher.Block
	hmacKey []byte
}

func (e *cbcEncrypter) OverheadLength() int { return e.cbc.OverheadLength() }
func (e *cbcEncrypter) ExtraLength() int    { return 0 }

// Encrypt builds the plaintext block pid(4) ∥ CompressionNone ∥ payload,
// draws a fresh IV, CBC-encrypts under PKCS#7 padding, and MACs IV∥C.
// aad is unused: CBC authenticates only the IV and ciphertext it produces.
func (e *cbcEncrypter) Encrypt(pid uint32, payload, _ []byte) ([]byte, error) {
	bs := e.block.BlockSize()

	plain := make([]byte, PIDSize+1+len(payload))
	binary.BigEndian.PutUint32(plain[0:PIDSize], pid)
	plain[PIDSize] = CompressionNone
	copy(plain[PIDSize+1:], payload)

	padded := pkcs7Pad(plain, bs)

	iv := make([]byte, bs)
	if _, err := io.ReadFull(prng.Reader(), iv); err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(e.cbc.digest.newFn, e.hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	tag := mac.Sum(nil)

	envelope := make([]byte, len(tag)+bs+len(ciphertext))
	n := copy(envelope, tag)
	n += copy(envelope[n:], iv)
	copy(envelope[n:], ciphertext)

	return envelope, nil
}

type cbcDecrypter struct {
	cbc     *CBC
	block   cipher.Block
	hmacKey []byte
}

func (d *cbcDecrypter) OverheadLength() int { return d.cbc.OverheadLength() }
func (d *cbcDecrypter) ExtraLength() int    { return 0 }

// Decrypt verifies T = HMAC(IV∥C) in constant time, CBC-decrypts C, strips
// PKCS#7 padding, then parses pid(4) ∥ comp(1) ∥ payload from the result.
// aad is unused for CBC.
func (d *cbcDecrypter) Decrypt(envelope, _ []byte) (uint32, []byte, error) {
	bs := d.block.BlockSize()
	tagSize := d.cbc.digest.size
	minLen := tagSize + bs + bs // tag + iv + at least one padded block
	if len(envelope) < minLen {
		return 0, nil, ErrEnvelopeShort
	}

	tag := envelope[:tagSize]
	iv := envelope[tagSize : tagSize+bs]
	ciphertext := envelope[tagSize+bs:]

	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return 0, nil, ErrEnvelopeShort
	}

	mac := hmac.New(d.cbc.digest.newFn, d.hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return 0, nil, ErrAuthentication
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(d.block, iv).CryptBlocks(padded, ciphertext)

	plain, err := pkcs7Unpad(padded, bs)
	if err != nil {
		return 0, nil, ErrAuthentication
	}

	if len(plain) < PIDSize+1 {
		return 0, nil, ErrEnvelopeShort
	}

	pid := binary.BigEndian.Uint32(plain[:PIDSize])
	if plain[PIDSize] != CompressionNone {
		return 0, nil, ErrBadCompression
	}

	payload := append([]byte(nil), plain[PIDSize+1:]...)
	return pid, payload, nil
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrAuthentication
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrAuthentication
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrAuthentication
		}
	}
	return data[:len(data)-padLen], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}
