// Package tunerr defines the stable, numeric error taxonomy surfaced to
// callers of this core, matching the per-package errors.go convention the
// teacher uses (pkg/message/errors.go, pkg/session/errors.go,
// pkg/transport/errors.go): grouped sentinel values, here additionally
// carrying the fixed numeric codes external callers may switch on.
package tunerr

import (
	"errors"
	"fmt"
)

// Code is one of the stable numeric error codes a caller of this core may
// observe. Values are part of the external contract and never change.
type Code int

const (
	CryptoBoxRandomGenerator Code = 101
	CryptoBoxHMAC            Code = 102
	CryptoBoxEncryption      Code = 103
	CryptoBoxAlgorithm       Code = 104
	TLSBoxCA                 Code = 201
	TLSBoxHandshake          Code = 202
	TLSBoxGeneric            Code = 203
	DataPathOverflow         Code = 301
	DataPathPeerIDMismatch   Code = 302
)

func (c Code) String() string {
	switch c {
	case CryptoBoxRandomGenerator:
		return "CryptoBoxRandomGenerator"
	case CryptoBoxHMAC:
		return "CryptoBoxHMAC"
	case CryptoBoxEncryption:
		return "CryptoBoxEncryption"
	case CryptoBoxAlgorithm:
		return "CryptoBoxAlgorithm"
	case TLSBoxCA:
		return "TLSBoxCA"
	case TLSBoxHandshake:
		return "TLSBoxHandshake"
	case TLSBoxGeneric:
		return "TLSBoxGeneric"
	case DataPathOverflow:
		return "DataPathOverflow"
	case DataPathPeerIDMismatch:
		return "DataPathPeerIDMismatch"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is a failure carrying one of the stable numeric codes, plus the
// underlying cause where one exists (a crypto/cipher error, an io error, ...).
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %v", e.Code, int(e.Code), e.Err)
	}
	return fmt.Sprintf("%s (%d)", e.Code, int(e.Code))
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, tunerr.New(code, nil)) match any *Error with the
// same Code, regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Code == e.Code
}

// New constructs an *Error for the given code, optionally wrapping cause.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// HasCode reports whether err is, or wraps, a *Error carrying code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
