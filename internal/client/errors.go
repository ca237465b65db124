package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed remote call
type Kind int

const (
	KindTransport Kind = iota // connection refused, reset, DNS...
	KindTimeout               // no answer within the configured timeout
	KindStatus                // non-2xx answer
	KindDecode                // 2xx answer we could not turn into typed data
	KindUnavailable           // circuit open, request not sent
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the only error shape remote clients return
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: remote returned HTTP %d", e.Op, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a remote *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var remoteErr *Error
	return errors.As(err, &remoteErr) && remoteErr.Kind == kind
}

// StatusCode returns the HTTP status of a KindStatus error, or 0
func StatusCode(err error) int {
	var remoteErr *Error
	if errors.As(err, &remoteErr) && remoteErr.Kind == KindStatus {
		return remoteErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether repeating the same call later may succeed
func IsRetryable(err error) bool {
	var remoteErr *Error
	if !errors.As(err, &remoteErr) {
		return false
	}
	switch remoteErr.Kind {
	case KindTransport, KindTimeout, KindUnavailable:
		return true
	case KindStatus:
		return remoteErr.StatusCode >= 500 || remoteErr.StatusCode == 429
	default:
		return false
	}
}

func transportError(op string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Op: op, Kind: KindTimeout, Err: err}
	}
	return &Error{Op: op, Kind: KindTransport, Err: err}
}
