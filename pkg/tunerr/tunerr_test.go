package tunerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	cause := fmt.Errorf("mac mismatch")
	err := New(CryptoBoxEncryption, cause)

	if !HasCode(err, CryptoBoxEncryption) {
		t.Fatalf("HasCode(err, CryptoBoxEncryption) = false, want true")
	}
	if HasCode(err, DataPathOverflow) {
		t.Fatalf("HasCode(err, DataPathOverflow) = true, want false")
	}

	wrapped := fmt.Errorf("packet 3: %w", err)
	if !HasCode(wrapped, CryptoBoxEncryption) {
		t.Fatalf("HasCode did not see through fmt.Errorf wrapping")
	}
	if !errors.Is(wrapped, New(CryptoBoxEncryption, nil)) {
		t.Fatalf("errors.Is did not match via Error.Is")
	}
}

func TestErrorMessageIncludesCauseAndCode(t *testing.T) {
	err := New(DataPathOverflow, nil)
	want := "DataPathOverflow (301)"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	withCause := New(CryptoBoxEncryption, fmt.Errorf("mac mismatch"))
	wantWithCause := "CryptoBoxEncryption (103): mac mismatch"
	if got := withCause.Error(); got != wantWithCause {
		t.Fatalf("Error() = %q, want %q", got, wantWithCause)
	}
}
