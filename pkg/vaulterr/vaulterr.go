// Package vaulterr defines the typed error kinds returned by the vault engine.
//
// Every error carries a Kind (what the caller can do about it) and a stable
// Code (what went wrong). Sentinels are matched with errors.Is by code, so a
// detailed error built with With/Wrap still matches its sentinel.
package vaulterr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindValidation is bad caller input. Never retried.
	KindValidation
	// KindFormat is undecodable key or transaction material. Fatal.
	KindFormat
	// KindResource is insufficient funds or a protocol ceiling.
	KindResource
	// KindTransient is a network or indexer failure the caller may retry.
	KindTransient
	// KindTiming is a bounded wait that ran out.
	KindTiming
	// KindUnsupported is an operation the account or chain cannot perform.
	KindUnsupported
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFormat:
		return "format"
	case KindResource:
		return "resource"
	case KindTransient:
		return "transient"
	case KindTiming:
		return "timing"
	case KindUnsupported:
		return "unsupported"
	default:
		return "internal"
	}
}

// Error is a coded engine error with optional UI attributes.
type Error struct {
	Kind   Kind
	Code   string
	Msg    string
	Attrs  map[string]string
	Err    error
	detail string
}

func define(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Sentinel errors.
var (
	ErrInvalidDestination = define(KindValidation, "invalid_destination", "invalid destination address")
	ErrAmountTooSmall     = define(KindValidation, "amount_too_small", "amount is too small")
	ErrBatchNotSupported  = define(KindValidation, "batch_not_supported", "batch transfer is not supported")
	ErrMissingField       = define(KindValidation, "missing_field", "missing required field")
	ErrInvalidFee         = define(KindValidation, "invalid_fee", "invalid fee")
	ErrInvalidAmount      = define(KindValidation, "invalid_amount", "invalid amount")

	ErrInvalidKeyFormat        = define(KindFormat, "invalid_key_format", "invalid private key format")
	ErrUnsupportedAlgorithm    = define(KindFormat, "unsupported_algorithm", "unsupported algorithm")
	ErrUnsupportedTargetFormat = define(KindFormat, "unsupported_target_format", "unsupported target format")
	ErrDeserializationFailed   = define(KindFormat, "deserialization_failed", "transaction does not match any known format")

	ErrInsufficientFunds   = define(KindResource, "insufficient_funds", "insufficient funds")
	ErrUTXOLimitExceeded   = define(KindResource, "utxo_limit_exceeded", "too many inputs for one transaction")
	ErrTransactionTooLarge = define(KindResource, "transaction_too_large", "transaction exceeds protocol size limits")

	ErrIndexerUnavailable = define(KindTransient, "indexer_unavailable", "indexer request failed")
	ErrBroadcastFailed    = define(KindTransient, "broadcast_failed", "broadcast failed")

	ErrCommitTimeout = define(KindTiming, "commit_timeout", "commit transaction was not confirmed in time")
	ErrCommitFailed  = define(KindTiming, "commit_failed", "commit transaction failed")

	ErrSigningNotSupported = define(KindUnsupported, "signing_not_supported", "account cannot sign")
	ErrNotSupported        = define(KindUnsupported, "not_supported", "operation not supported")
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.detail != "" {
		b.WriteString(": ")
		b.WriteString(e.detail)
	}
	if len(e.Attrs) > 0 {
		keys := make([]string, 0, len(e.Attrs))
		for k := range e.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Attrs[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Detail returns the free-form detail set by Newf.
func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) clone() *Error {
	c := *e
	if e.Attrs != nil {
		c.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			c.Attrs[k] = v
		}
	}
	return &c
}

// With returns a copy of e carrying an extra attribute.
func (e *Error) With(key string, value any) *Error {
	c := e.clone()
	if c.Attrs == nil {
		c.Attrs = make(map[string]string)
	}
	c.Attrs[key] = fmt.Sprint(value)
	return c
}

// Attr returns the attribute value for key.
func (e *Error) Attr(key string) (string, bool) {
	v, ok := e.Attrs[key]
	return v, ok
}

// Newf returns a copy of base with a formatted detail message.
func Newf(base *Error, format string, args ...any) *Error {
	c := base.clone()
	c.detail = fmt.Sprintf(format, args...)
	return c
}

// Wrap returns a copy of base wrapping cause.
func Wrap(base *Error, cause error) *Error {
	c := base.clone()
	c.Err = cause
	return c
}

// Field returns ErrMissingField naming the offending field.
func Field(name string) *Error {
	return ErrMissingField.With("field", name)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// Transient wraps err as an indexer failure unless it is already classified.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(ErrIndexerUnavailable, err)
}
