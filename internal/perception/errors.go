package perception

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout matches any *RequestError of kind KindTimeout via errors.Is.
var ErrTimeout = errors.New("inference request timed out")

// ErrorKind categorizes transport failures for programmatic handling.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"    // deadline exceeded
	KindConnection ErrorKind = "connection" // service unreachable
	KindStatus     ErrorKind = "status"     // non-2xx response
	KindDecode     ErrorKind = "decode"     // response body not understood
	KindCanceled   ErrorKind = "canceled"   // caller canceled the context
)

// RequestError provides structured error information for inference calls.
type RequestError struct {
	Kind       ErrorKind
	Op         string // "generate" or "list_models"
	Model      string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Kind)
	if e.Model != "" {
		msg += fmt.Sprintf(" (model %s)", e.Model)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTimeout) hold for timeout errors.
func (e *RequestError) Is(target error) bool {
	return target == ErrTimeout && e.Kind == KindTimeout
}

// Retryable reports whether another attempt could succeed.
func (e *RequestError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// IsTimeout reports whether err is (or wraps) a timed-out inference call.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// KindOf returns the kind of a wrapped *RequestError, or "" for other errors.
func KindOf(err error) ErrorKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// classify turns a transport error into a *RequestError. ctx is the
// per-call context so deadline expiry can be told apart from caller
// cancellation.
func classify(ctx context.Context, op, model string, err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	kind := KindConnection
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &RequestError{Kind: kind, Op: op, Model: model, Err: err}
}
