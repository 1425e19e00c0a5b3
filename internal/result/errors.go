package result

import "fmt"

// ErrorKind is the closed error taxonomy from spec §7. Every protocol
// module maps its own failures onto one of these before returning.
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "InvalidArgument"
	KindTimeout         ErrorKind = "Timeout"
	KindNetwork         ErrorKind = "Network"
	KindUnsupported     ErrorKind = "Unsupported"
	KindProtocolError   ErrorKind = "ProtocolError"
	KindAuthRequired    ErrorKind = "AuthRequired"
	KindAuthFailed      ErrorKind = "AuthFailed"
	KindDenied          ErrorKind = "Denied"
	KindNotFound        ErrorKind = "NotFound"
	KindConflict        ErrorKind = "Conflict"
	KindReadOnly        ErrorKind = "ReadOnly"
	KindRemote          ErrorKind = "Remote"
)

// Error is the typed failure attached to a Result Envelope. ProtocolCode
// carries the peer's own error code verbatim when the kind is Remote (or
// when a more specific kind still has a meaningful wire code attached).
type Error struct {
	Kind         ErrorKind
	Message      string
	ProtocolCode *string
}

func (e *Error) Error() string {
	if e.ProtocolCode != nil {
		return fmt.Sprintf("%s: %s (code=%s)", e.Kind, e.Message, *e.ProtocolCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return newError(KindTimeout, format, args...)
}

func Network(format string, args ...any) *Error {
	return newError(KindNetwork, format, args...)
}

func Unsupported(format string, args ...any) *Error {
	return newError(KindUnsupported, format, args...)
}

func ProtocolError(format string, args ...any) *Error {
	return newError(KindProtocolError, format, args...)
}

func AuthRequired(format string, args ...any) *Error {
	return newError(KindAuthRequired, format, args...)
}

func AuthFailed(format string, args ...any) *Error {
	return newError(KindAuthFailed, format, args...)
}

func Denied(format string, args ...any) *Error {
	return newError(KindDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func ReadOnly(format string, args ...any) *Error {
	return newError(KindReadOnly, format, args...)
}

// Remote wraps a peer-supplied error code/message that doesn't map
// cleanly onto a more specific kind.
func Remote(code, message string) *Error {
	return &Error{Kind: KindRemote, Message: message, ProtocolCode: &code}
}

// AsError unwraps err into a *Error if it (or something it wraps) is
// one; otherwise it falls back to Network, since an unclassified error
// surfacing from the transport/codec layers is almost always an I/O or
// framing fault rather than a caller mistake.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e
	}
	return Network(err.Error())
}

func asError(err error, target **Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
