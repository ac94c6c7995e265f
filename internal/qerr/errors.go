// Package qerr defines the small set of connection-fatal error conditions
// the transmission core can raise. Everything else (malformed frames,
// duplicate or unknown-packet acks) is handled locally and never surfaces
// as an error value; see the core's error handling policy.
package qerr

import "fmt"

// ErrorCode mirrors the QUIC transport error code space, trimmed to the
// values the transmission core can itself originate.
type ErrorCode uint64

const (
	// InternalError covers local invariant violations: a non-ack frame
	// reaching the ack processor, an unsent encryption level, etc.
	InternalError ErrorCode = 0x1
	// ProtocolViolation covers ack frames that misbehave in a way the
	// peer is responsible for, e.g. acknowledging a packet number that
	// was never sent.
	ProtocolViolation ErrorCode = 0xa
)

func (e ErrorCode) String() string {
	switch e {
	case InternalError:
		return "INTERNAL_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	default:
		return fmt.Sprintf("ERROR_CODE_%#x", uint64(e))
	}
}

// TransportError is a connection-fatal condition raised by the core.
type TransportError struct {
	Code   ErrorCode
	Reason string
}

func New(code ErrorCode, reason string) *TransportError {
	return &TransportError{Code: code, Reason: reason}
}

func (e *TransportError) Error() string {
	if e.Reason == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}
