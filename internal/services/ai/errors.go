package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed translation call.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindServer
	KindRateLimited
	KindAuth
	KindRequest
	KindMalformed
	KindCancelled
)

var (
	ErrTransport         = errors.New("connection to translation service failed")
	ErrTimeout           = errors.New("translation request timed out")
	ErrServer            = errors.New("translation service unavailable")
	ErrRateLimited       = errors.New("translation service rate limited the request")
	ErrUnauthorized      = errors.New("translation service rejected the api key")
	ErrBadRequest        = errors.New("translation service rejected the request")
	ErrMalformedResponse = errors.New("malformed response from translation service")
	ErrCancelled         = errors.New("translation cancelled")
)

var kindSentinels = map[ErrorKind]error{
	KindTransport:   ErrTransport,
	KindTimeout:     ErrTimeout,
	KindServer:      ErrServer,
	KindRateLimited: ErrRateLimited,
	KindAuth:        ErrUnauthorized,
	KindRequest:     ErrBadRequest,
	KindMalformed:   ErrMalformedResponse,
	KindCancelled:   ErrCancelled,
}

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindMalformed:
		return "malformed"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// APIError is returned by the translation client. errors.Is matches it
// against the sentinel of its kind.
type APIError struct {
	Kind       ErrorKind
	Status     int
	Message    string
	RetryAfter time.Duration
	Attempts   int
	Err        error
}

func (e *APIError) Error() string {
	msg := kindSentinels[e.Kind].Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Transient reports whether retrying may succeed.
func (e *APIError) Transient() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindServer, KindRateLimited:
		return true
	}
	return false
}

// Cancelled builds the error returned when the caller gave up.
func Cancelled(cause error) *APIError {
	return &APIError{Kind: KindCancelled, Err: cause}
}

// KindOf returns the kind of err, and false when err is not an *APIError.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}
