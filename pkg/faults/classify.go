package faults

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
)

// CategoryOf extracts the fault category. Unclassified transport-level
// errors map to CategoryConnection; everything else unclassified maps to
// CategoryValidation (conservative: don't retry unknown errors).
func CategoryOf(err error) Category {
	var f *Fault
	if errors.As(err, &f) {
		return f.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if isIOError(err) {
		return CategoryConnection
	}
	return CategoryValidation
}

// Retryable reports whether the resilience layer should retry after this
// error. Only connection, timeout and protocol faults qualify.
func Retryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryConnection, CategoryTimeout, CategoryProtocol:
		return true
	default:
		return false
	}
}

// SeverityOf extracts the fault severity, defaulting to medium for
// unclassified errors.
func SeverityOf(err error) Severity {
	var f *Fault
	if errors.As(err, &f) {
		return f.Severity
	}
	return SeverityMedium
}

// isIOError returns true for IO/network-level errors that indicate
// infrastructure problems.
func isIOError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var timeoutErr net.Error
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "deadline exceeded")
}
