package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a failure for propagation decisions.
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindApplication  Kind = "application"
	KindStorage      Kind = "storage"
	KindExhausted    Kind = "exhausted_retry"
	KindQueueFull    Kind = "queue_full"
)

var (
	ErrConnectivity = errors.New("backend unreachable")
	ErrApplication  = errors.New("request rejected")
	ErrStorage      = errors.New("durable storage failure")
	ErrExhausted    = errors.New("retries exhausted")
	ErrQueueFull    = errors.New("offline queue full")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrApplication
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf returns the classification of err. Untagged errors are treated as
// application errors so they surface instead of being retried. A nil error has
// no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrQueueFull):
		return KindQueueFull
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	case errors.Is(err, ErrConnectivity):
		return KindConnectivity
	default:
		return KindApplication
	}
}

// IsConnectivity reports whether err means the backend could not be reached.
func IsConnectivity(err error) bool {
	return KindOf(err) == KindConnectivity
}

// IsTransportFailure reports whether a raw error from a network call belongs to
// the unreachable class: DNS failures, refused or reset connections,
// unreachable hosts, timeouts, and connections dropped mid-response. Caller
// cancellation is not a transport failure.
func IsTransportFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ETIMEDOUT} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
