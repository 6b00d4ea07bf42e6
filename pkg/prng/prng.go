// Package prng holds the process-wide random source used to draw the random
// CBC IVs for the crypto boxes (AEAD nonces are derived from the packet id,
// not drawn from here). It is grounded on
// github.com/sixafter/aes-ctr-drbg, a NIST SP 800-90A AES-CTR-DRBG: the
// generator draws its own entropy from crypto/rand at construction time and
// accepts a caller personalization string that is folded into that entropy
// during seeding, which is where Prepare's seed bytes go.
//
// Until Prepare succeeds, Reader returns crypto/rand.Reader directly so
// callers never block on seeding that never happens.
package prng

import (
	"crypto/rand"
	"io"
	"sync"
	"sync/atomic"

	ctrdrbg "github.com/sixafter/aes-ctr-drbg"
)

var (
	once    sync.Once
	ready   atomic.Bool
	reader  ctrdrbg.Interface
	lastErr error
)

// Prepare seeds the package-level DRBG from seed, mixing it in as the
// generator's personalization string. length is the number of random bytes
// the caller intends to draw before the next Prepare call and is accepted
// for API symmetry with the data path's startup sequence; the underlying
// DRBG reseeds itself from crypto/rand independently of it. It is safe to
// call from multiple goroutines; only the first call takes effect, matching
// the one-shot seeding contract of that startup sequence.
//
// It reports whether a DRBG is ready for use. A false return (construction
// failed) leaves Reader falling back to crypto/rand.Reader, which remains
// cryptographically sound, just without the caller's seed material mixed
// in.
func Prepare(seed []byte, length int) bool {
	_ = length
	once.Do(func() {
		r, err := ctrdrbg.NewReader(ctrdrbg.WithPersonalization(seed))
		if err != nil {
			lastErr = err
			return
		}
		reader = r
		ready.Store(true)
	})
	return ready.Load()
}

// Err returns the error from a failed Prepare call, if any.
func Err() error {
	return lastErr
}

// Reader returns the current random source: the seeded DRBG once Prepare
// has succeeded, otherwise crypto/rand.Reader.
func Reader() io.Reader {
	if ready.Load() {
		return reader
	}
	return rand.Reader
}
