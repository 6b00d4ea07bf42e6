package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// implicitIVSize is the portion of the configured hmac/auth key reused as the
// fixed half of the AEAD nonce (spec: "implicit_iv is the first 8 bytes of
// the hmac subkey installed at configure time").
const implicitIVSize = 8

// nonceSize is the standard AES-GCM nonce length: a 4-byte packet id followed
// by the 8-byte implicit IV.
const nonceSize = PIDSize + implicitIVSize

// tagSize is the AES-GCM authentication tag length.
const tagSize = 16

// AEAD is an unconfigured AES-GCM construction.
type AEAD struct {
	keySize int
}

// NewAEAD constructs an AEAD descriptor for the given cipher name
// ("AES-128-GCM", "AES-256-GCM").
func NewAEAD(cipherName string) (*AEAD, error) {
	ks, ok := aeadKeySizes[cipherName]
	if !ok {
		return nil, ErrUnknownCipher
	}
	return &AEAD{keySize: ks}, nil
}

// OverheadLength is tag_len + packet_id_len.
func (a *AEAD) OverheadLength() int { return tagSize + PIDSize }

// ExtraLength is always 4: the packet id, carried in the clear inside the
// envelope and bound to the ciphertext through the nonce it is built into.
func (a *AEAD) ExtraLength() int { return PIDSize }

// ConfigureEncryption installs the encryption-direction keys. hmacKey need
// only be at least implicitIVSize bytes; only its first 8 bytes are used, to
// build the nonce.
func (a *AEAD) ConfigureEncryption(cipherKey, hmacKey []byte) (Encrypter, error) {
	aead, err := a.newGCM(cipherKey)
	if err != nil {
		return nil, err
	}
	iv, err := implicitIV(hmacKey)
	if err != nil {
		return nil, err
	}
	return &aeadEncrypter{aead: aead, implicitIV: iv}, nil
}

// ConfigureDecryption installs the decryption-direction keys.
func (a *AEAD) ConfigureDecryption(cipherKey, hmacKey []byte) (Decrypter, error) {
	aead, err := a.newGCM(cipherKey)
	if err != nil {
		return nil, err
	}
	iv, err := implicitIV(hmacKey)
	if err != nil {
		return nil, err
	}
	return &aeadDecrypter{aead: aead, implicitIV: iv}, nil
}

func (a *AEAD) newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != a.keySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func implicitIV(hmacKey []byte) ([]byte, error) {
	if len(hmacKey) < implicitIVSize {
		return nil, ErrInvalidKeySize
	}
	return append([]byte(nil), hmacKey[:implicitIVSize]...), nil
}

func buildNonce(pid uint32, implicitIV []byte) []byte {
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[:PIDSize], pid)
	copy(nonce[PIDSize:], implicitIV)
	return nonce
}

type aeadEncrypter struct {
	aead       cipher.AEAD
	implicitIV []byte
}

func (e *aeadEncrypter) OverheadLength() int { return tagSize + PIDSize }
func (e *aeadEncrypter) ExtraLength() int    { return PIDSize }

// Encrypt builds plaintext CompressionNone∥payload, seals it under the nonce
// derived from pid, authenticating aad (normally the wire header bytes), and
// emits tag∥pid_be∥ciphertext (the packet id travels in the clear and is
// authenticated through the nonce rather than placed in the ciphertext; the
// associated data is aad alone).
func (e *aeadEncrypter) Encrypt(pid uint32, payload, aad []byte) ([]byte, error) {
	plain := make([]byte, 1+len(payload))
	plain[0] = CompressionNone
	copy(plain[1:], payload)

	nonce := buildNonce(pid, e.implicitIV)

	// Go's cipher.AEAD.Seal appends ciphertext||tag; the wire format wants
	// tag∥pid∥ciphertext, so split and reorder.
	sealed := e.aead.Seal(nil, nonce, plain, aad)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	envelope := make([]byte, tagSize+PIDSize+len(ciphertext))
	n := copy(envelope, tag)
	binary.BigEndian.PutUint32(envelope[n:], pid)
	n += PIDSize
	copy(envelope[n:], ciphertext)

	return envelope, nil
}

type aeadDecrypter struct {
	aead       cipher.AEAD
	implicitIV []byte
}

func (d *aeadDecrypter) OverheadLength() int { return tagSize + PIDSize }
func (d *aeadDecrypter) ExtraLength() int    { return PIDSize }

// Decrypt reads tag∥pid∥ciphertext, rebuilds the nonce from pid, authenticates
// aad plus the ciphertext, and returns the packet id with the decrypted
// compression marker validated and stripped.
func (d *aeadDecrypter) Decrypt(envelope, aad []byte) (uint32, []byte, error) {
	if len(envelope) < tagSize+PIDSize {
		return 0, nil, ErrEnvelopeShort
	}

	tag := envelope[:tagSize]
	pid := binary.BigEndian.Uint32(envelope[tagSize : tagSize+PIDSize])
	ciphertext := envelope[tagSize+PIDSize:]

	nonce := buildNonce(pid, d.implicitIV)

	// Reassemble the ciphertext||tag layout Go's cipher.AEAD.Open expects.
	sealed := make([]byte, len(ciphertext)+tagSize)
	copy(sealed, ciphertext)
	copy(sealed[len(ciphertext):], tag)

	plain, err := d.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return 0, nil, ErrAuthentication
	}

	if len(plain) < 1 {
		return 0, nil, ErrEnvelopeShort
	}
	if plain[0] != CompressionNone {
		return 0, nil, ErrBadCompression
	}

	return pid, append([]byte(nil), plain[1:]...), nil
}
