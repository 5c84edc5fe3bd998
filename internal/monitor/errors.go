package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a request to the backend failed.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindHTTP      ErrorKind = "http"
)

// TimeoutMessage is the normalized message shown when a request hits its deadline.
const TimeoutMessage = "Request timeout"

// CheckError describes a failed backend request.
type CheckError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CheckError) Error() string {
	return e.Message()
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Message returns the text stored in ConnectivityState.ErrorMessage.
func (e *CheckError) Message() string {
	switch e.Kind {
	case KindTimeout:
		return TimeoutMessage
	case KindHTTP:
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	default:
		if e.Err == nil {
			return "Connection failed"
		}
		return e.Err.Error()
	}
}

func classifyError(ctx context.Context, err error) *CheckError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &CheckError{Kind: KindTimeout, Err: err}
	}
	return &CheckError{Kind: KindTransport, Err: err}
}

func statusError(code int) *CheckError {
	return &CheckError{Kind: KindHTTP, StatusCode: code}
}
