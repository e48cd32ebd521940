// Package protocol defines the error type returned by every AS2 payload
// extraction failure.
package protocol

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMissingContentType     = errors.New("content type missing")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrUnknownSmimeType       = errors.New("unknown smime-type")
	ErrMissingPrivateKey      = errors.New("private key required for enveloped data")
	ErrNullEntity             = errors.New("entity missing")
	ErrUnsupportedNestedType  = errors.New("unsupported nested entity")
	ErrProtocolFormat         = errors.New("malformed MIME structure")
	ErrDecryption             = errors.New("decryption failed")
	ErrDecompression          = errors.New("decompression failed")
	ErrSignature              = errors.New("signature verification failed")
)

// Error is the single protocol-level error surfaced by parsing and
// extraction. It carries one kind sentinel and, when a lower-level
// failure caused it, the original cause.
type Error struct {
	Kind   error
	Detail string
	Err    error
}

// Errorf builds an Error of the given kind with a formatted detail.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind that preserves cause.
func Wrap(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := "as2: " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind sentinel of err, or nil if err is not an *Error.
func KindOf(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return nil
}
