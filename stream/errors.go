package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ConnectErrorKind classifies why a connection attempt failed.
type ConnectErrorKind string

// Connection failure kinds.
const (
	// ConnectBadStatus means the server answered with a non-2xx status.
	ConnectBadStatus ConnectErrorKind = "bad_status"
	// ConnectNoContentType means the response had no Content-Type header.
	ConnectNoContentType ConnectErrorKind = "no_content_type"
	// ConnectNoBoundary means the Content-Type had no boundary attribute.
	ConnectNoBoundary ConnectErrorKind = "no_boundary"
	// ConnectEmptyBoundary means the boundary attribute was empty.
	ConnectEmptyBoundary ConnectErrorKind = "empty_boundary"
	// ConnectTransport means the request itself failed (DNS, TCP, TLS).
	ConnectTransport ConnectErrorKind = "transport"
)

// ConnectError is returned by Connector.Open.
type ConnectError struct {
	// Kind is the failure classification.
	Kind ConnectErrorKind
	// StatusCode is the HTTP status code (ConnectBadStatus only).
	StatusCode int
	// Status is the HTTP status line text, e.g. "500 Internal Server Error".
	Status string
	// Err is the underlying transport error (ConnectTransport only).
	Err error
}

func (e *ConnectError) Error() string {
	switch e.Kind {
	case ConnectBadStatus:
		return "connect: unexpected status " + e.statusText()
	case ConnectTransport:
		return fmt.Sprintf("connect: %v", e.Err)
	default:
		return "connect: " + string(e.Kind)
	}
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// StatusText returns the message shown to the user for this failure.
func (e *ConnectError) StatusText() string {
	switch e.Kind {
	case ConnectBadStatus:
		return "Connection failed with status: " + e.statusText()
	case ConnectNoContentType:
		return "Missing Content-Type header"
	case ConnectNoBoundary:
		return "Boundary not found in Content-Type header"
	case ConnectEmptyBoundary:
		return "Empty boundary in Content-Type header"
	default:
		return fmt.Sprintf("Connection error: %v", e.Err)
	}
}

func (e *ConnectError) statusText() string {
	if e.Status != "" {
		return e.Status
	}
	return strconv.Itoa(e.StatusCode)
}

// StreamErrorKind classifies why an established stream was abandoned.
type StreamErrorKind string

// Stream failure kinds.
const (
	// StreamTransport means a body read failed.
	StreamTransport StreamErrorKind = "transport"
	// StreamEnded means the server closed the body cleanly.
	StreamEnded StreamErrorKind = "ended"
	// StreamOverflow means the buffer grew past its limit without a frame.
	StreamOverflow StreamErrorKind = "overflow"
)

// ErrBufferOverflow is wrapped by StreamError for StreamOverflow.
var ErrBufferOverflow = errors.New("buffer limit exceeded without a frame boundary")

// StreamError describes the end of a Streaming state.
type StreamError struct {
	// Kind is the failure classification.
	Kind StreamErrorKind
	// Err is the underlying error, nil for StreamEnded.
	Err error
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return "stream: " + string(e.Kind)
	}
	return fmt.Sprintf("stream: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// StatusText returns the message shown to the user for this failure.
func (e *StreamError) StatusText() string {
	if e.Kind == StreamEnded {
		return "Stream ended. Reconnecting..."
	}
	return fmt.Sprintf("Stream error: %v", e.Err)
}

// IsConnectError reports whether err is (or wraps) a ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// ConnectErrorKindOf returns the kind of a wrapped ConnectError, or "".
func ConnectErrorKindOf(err error) ConnectErrorKind {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsRetryable reports whether the driver retries after err. Every connection
// and stream failure is retried; only context cancellation is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// StatusText returns the user-facing message for err.
func StatusText(err error) string {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.StatusText()
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.StatusText()
	}
	return err.Error()
}
