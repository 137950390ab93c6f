package rohc

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind is one of the five error kinds the core reports: spec §7's
// four, with TooManyHeaders and Unsupported kept as separate kinds. The dispatcher
// switches on Kind() rather than on the concrete sentinel so that a
// wrapped error (via github.com/pkg/errors) still reports the right
// kind through errors.As.
type ErrorKind uint8

const (
	// KindMalformedInput: truncated packet, unknown IP version,
	// non-matching static fields, fragmented IPv4. Caller drops the
	// packet; the context is not mutated.
	KindMalformedInput ErrorKind = iota
	// KindProfileMismatch: returned by check_profile/check_context.
	// Tells the dispatcher to try another profile or create a new context.
	KindProfileMismatch
	// KindCrcError: header CRC did not match after parse (and after
	// repair attempts for RFC 3095). The decompressor stays in its
	// current state.
	KindCrcError
	// KindTooManyHeaders: packet exceeds the configured maximum IP-header
	// count.
	KindTooManyHeaders
	// KindUnsupported: packet uses an IPv6 extension chain the
	// implementation does not handle, or another unsupported wire shape.
	KindUnsupported
)

func (sf ErrorKind) String() string {
	switch sf {
	case KindMalformedInput:
		return "malformed-input"
	case KindProfileMismatch:
		return "profile-mismatch"
	case KindCrcError:
		return "crc-error"
	case KindTooManyHeaders:
		return "too-many-headers"
	case KindUnsupported:
		return "unsupported"
	default:
		return "error?"
	}
}

// CoreError is the concrete error type carrying an ErrorKind. All errors
// the core returns satisfy this interface; callers type-assert or use
// errors.As to recover the kind after github.com/pkg/errors wrapping.
type CoreError struct {
	kind ErrorKind
	msg  string
}

// Kind returns which of the five error kinds this error is.
func (e *CoreError) Kind() ErrorKind { return e.kind }

func (e *CoreError) Error() string { return e.msg }

func newError(kind ErrorKind, msg string) error {
	return &CoreError{kind: kind, msg: msg}
}

// Sentinel errors for errors.Is comparisons against the five kinds. Each
// is also reachable through errors.As(*CoreError) after any amount of
// github.com/pkg/errors wrapping, since pkg/errors.Wrap preserves the
// wrapped error's Unwrap chain.
var (
	ErrMalformedInput  = newError(KindMalformedInput, "rohc: malformed input")
	ErrProfileMismatch = newError(KindProfileMismatch, "rohc: profile mismatch")
	ErrCrcError        = newError(KindCrcError, "rohc: crc error")
	ErrTooManyHeaders  = newError(KindTooManyHeaders, "rohc: too many IP headers")
	ErrUnsupported     = newError(KindUnsupported, "rohc: unsupported packet shape")
)

// Malformedf builds a MalformedInput error with a formatted detail,
// wrapped so the sentinel is still reachable via errors.Is/As.
func Malformedf(format string, args ...interface{}) error {
	return pkgerrors.Wrap(ErrMalformedInput, fmt.Sprintf(format, args...))
}

// TooManyHeadersf builds a TooManyHeaders error with a formatted detail.
func TooManyHeadersf(format string, args ...interface{}) error {
	return pkgerrors.Wrap(ErrTooManyHeaders, fmt.Sprintf(format, args...))
}

// Unsupportedf builds an Unsupported error with a formatted detail.
func Unsupportedf(format string, args ...interface{}) error {
	return pkgerrors.Wrap(ErrUnsupported, fmt.Sprintf(format, args...))
}

// KindOf walks err's cause chain (github.com/pkg/errors-aware) and
// reports the ErrorKind of the first CoreError found, or ok=false if err
// does not wrap one of the five sentinel kinds.
func KindOf(err error) (kind ErrorKind, ok bool) {
	for err != nil {
		if ce, match := err.(*CoreError); match {
			return ce.kind, true
		}
		causer, match := err.(interface{ Cause() error })
		if !match {
			break
		}
		err = causer.Cause()
	}
	return 0, false
}
