package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex.DecodeString(%q): %v", s, err)
	}
	return b
}

// TestCBCDecryptKnownEnvelope builds a CBC+HMAC envelope independently with
// crypto/cipher and crypto/hmac (not via the package under test) and checks
// that CBC.Decrypt recovers the packet id and payload it was built from.
func TestCBCDecryptKnownEnvelope(t *testing.T) {
	cipherKey := hexBytes(t, "2b7e151628aed2a6abf7158809cf4f3c")
	hmacKey := hexBytes(t, "000102030405060708090a0b0c0d0e0f1011121314")
	iv := hexBytes(t, "000102030405060708090a0b0c0d0e0f")

	pid := uint32(7)
	payload := []byte("known-answer")

	plain := make([]byte, PIDSize+1+len(payload))
	binary.BigEndian.PutUint32(plain[0:PIDSize], pid)
	plain[PIDSize] = CompressionNone
	copy(plain[PIDSize+1:], payload)

	padded := pkcs7Pad(plain, aes.BlockSize)

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha1.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	tag := mac.Sum(nil)

	envelope := append(append(append([]byte{}, tag...), iv...), ciphertext...)

	cbc, err := NewCBC("AES-128-CBC", "SHA1")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	dec, err := cbc.ConfigureDecryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureDecryption: %v", err)
	}

	gotPID, gotPayload, err := dec.Decrypt(envelope, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if gotPID != pid {
		t.Fatalf("pid = %d, want %d", gotPID, pid)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload = %q, want %q", gotPayload, payload)
	}
}

// TestCBCEncryptProducesVerifiableMAC checks, independently of Decrypt, that
// Encrypt's output tag is exactly HMAC(hmacKey, iv||ciphertext) under the
// configured digest.
func TestCBCEncryptProducesVerifiableMAC(t *testing.T) {
	cipherKey := hexBytes(t, "000102030405060708090a0b0c0d0e0f")
	hmacKey := hexBytes(t, "101112131415161718191a1b1c1d1e1f2021222324252627")

	cbc, err := NewCBC("AES-128-CBC", "SHA256")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	enc, err := cbc.ConfigureEncryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureEncryption: %v", err)
	}

	envelope, err := enc.Encrypt(1, []byte("payload"), nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tagSize := 32 // SHA256
	bs := aes.BlockSize
	tag := envelope[:tagSize]
	iv := envelope[tagSize : tagSize+bs]
	ciphertext := envelope[tagSize+bs:]

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	expected := mac.Sum(nil)

	if !bytes.Equal(tag, expected) {
		t.Fatalf("tag = %x, want %x", tag, expected)
	}
}

// TestCBCRoundTripAllCombinations covers testable property #1 across every
// supported (cipher, digest) pair.
func TestCBCRoundTripAllCombinations(t *testing.T) {
	ciphers := []struct {
		name    string
		keySize int
	}{
		{"AES-128-CBC", 16},
		{"AES-256-CBC", 32},
		{"BF-CBC", 16},
	}
	digests := []string{"SHA1", "SHA256", "SHA512"}

	for _, c := range ciphers {
		for _, d := range digests {
			t.Run(c.name+"/"+d, func(t *testing.T) {
				cipherKey := make([]byte, c.keySize)
				for i := range cipherKey {
					cipherKey[i] = byte(i + 1)
				}
				hmacKey := make([]byte, 32)
				for i := range hmacKey {
					hmacKey[i] = byte(i + 100)
				}

				cbc, err := NewCBC(c.name, d)
				if err != nil {
					t.Fatalf("NewCBC: %v", err)
				}
				enc, err := cbc.ConfigureEncryption(cipherKey, hmacKey)
				if err != nil {
					t.Fatalf("ConfigureEncryption: %v", err)
				}
				dec, err := cbc.ConfigureDecryption(cipherKey, hmacKey)
				if err != nil {
					t.Fatalf("ConfigureDecryption: %v", err)
				}

				payload := []byte("the quick brown fox")
				envelope, err := enc.Encrypt(42, payload, nil)
				if err != nil {
					t.Fatalf("Encrypt: %v", err)
				}
				pid, got, err := dec.Decrypt(envelope, nil)
				if err != nil {
					t.Fatalf("Decrypt: %v", err)
				}
				if pid != 42 {
					t.Fatalf("pid = %d, want 42", pid)
				}
				if !bytes.Equal(got, payload) {
					t.Fatalf("payload = %q, want %q", got, payload)
				}
			})
		}
	}
}

// TestCBCSharedKeysCrossDecrypt covers testable property #2: ciphertexts
// from one encrypter decrypt correctly under an independently configured
// decrypter sharing the same keys.
func TestCBCSharedKeysCrossDecrypt(t *testing.T) {
	cipherKey := hexBytes(t, "00112233445566778899aabbccddeeff")[:16]
	hmacKey := hexBytes(t, "0102030405060708090a0b0c0d0e0f10")

	cbc, err := NewCBC("AES-128-CBC", "SHA1")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	encA, err := cbc.ConfigureEncryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureEncryption (A): %v", err)
	}
	decB, err := cbc.ConfigureDecryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureDecryption (B): %v", err)
	}

	envelope, err := encA.Encrypt(5, []byte("cross"), nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pid, payload, err := decB.Decrypt(envelope, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pid != 5 || string(payload) != "cross" {
		t.Fatalf("got (%d, %q), want (5, \"cross\")", pid, payload)
	}
}

// TestCBCTamperDetection covers testable property #3 and spec scenario S6:
// a single-bit flip anywhere in the envelope must fail authentication.
func TestCBCTamperDetection(t *testing.T) {
	cipherKey := hexBytes(t, "000102030405060708090a0b0c0d0e0f")
	hmacKey := hexBytes(t, "101112131415161718191a1b1c1d1e1f")

	cbc, err := NewCBC("AES-128-CBC", "SHA1")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	enc, err := cbc.ConfigureEncryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureEncryption: %v", err)
	}
	dec, err := cbc.ConfigureDecryption(cipherKey, hmacKey)
	if err != nil {
		t.Fatalf("ConfigureDecryption: %v", err)
	}

	envelope, err := enc.Encrypt(1, []byte("X"), nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for _, pos := range []int{0, len(envelope) / 2, len(envelope) - 1} {
		tampered := append([]byte(nil), envelope...)
		tampered[pos] ^= 0xFF
		if _, _, err := dec.Decrypt(tampered, nil); err != ErrAuthentication {
			t.Fatalf("Decrypt with byte %d flipped: err = %v, want ErrAuthentication", pos, err)
		}
	}
}

func TestCBCDecryptRejectsShortEnvelope(t *testing.T) {
	cbc, err := NewCBC("AES-128-CBC", "SHA1")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	dec, err := cbc.ConfigureDecryption(make([]byte, 16), make([]byte, 20))
	if err != nil {
		t.Fatalf("ConfigureDecryption: %v", err)
	}
	if _, _, err := dec.Decrypt([]byte{0x01, 0x02}, nil); err != ErrEnvelopeShort {
		t.Fatalf("err = %v, want ErrEnvelopeShort", err)
	}
}

func TestCBCUnknownCipherOrDigest(t *testing.T) {
	if _, err := NewCBC("DES-CBC", "SHA1"); err != ErrUnknownCipher {
		t.Fatalf("err = %v, want ErrUnknownCipher", err)
	}
	if _, err := NewCBC("AES-128-CBC", "MD5"); err != ErrUnknownCipher {
		t.Fatalf("err = %v, want ErrUnknownCipher", err)
	}
}

func TestCBCOverheadLength(t *testing.T) {
	cbc, err := NewCBC("AES-128-CBC", "SHA256")
	if err != nil {
		t.Fatalf("NewCBC: %v", err)
	}
	// SHA256 digest (32) + IV (16) + worst-case padding (16) = 64.
	if got := cbc.OverheadLength(); got != 64 {
		t.Fatalf("OverheadLength() = %d, want 64", got)
	}
	if got := cbc.ExtraLength(); got != 0 {
		t.Fatalf("ExtraLength() = %d, want 0", got)
	}
}
