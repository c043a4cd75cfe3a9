package faults

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestFaultError(t *testing.T) {
	underlying := errors.New("dial tcp: refused")
	f := Connection("cannot reach device", underlying)

	if !strings.Contains(f.Error(), "cannot reach device") {
		t.Errorf("message missing from Error(): %s", f.Error())
	}
	if !strings.Contains(f.Error(), f.Code) {
		t.Errorf("code missing from Error(): %s", f.Error())
	}
	if !errors.Is(f, underlying) {
		t.Error("fault should unwrap to the underlying error")
	}
}

func TestGeneratedCodeStable(t *testing.T) {
	a := Connection("cannot reach device", nil)
	b := Connection("cannot reach device", nil)
	c := Connection("different message", nil)

	if a.Code != b.Code {
		t.Errorf("equal faults got different codes: %s vs %s", a.Code, b.Code)
	}
	if a.Code == c.Code {
		t.Errorf("different messages got the same code: %s", a.Code)
	}
	if !strings.HasPrefix(a.Code, "CONN-") {
		t.Errorf("connection code should start with CONN-: %s", a.Code)
	}
	if !strings.HasPrefix(Validation("x", nil).Code, "VAL-") {
		t.Error("validation code should start with VAL-")
	}
}

func TestDefaultSeverities(t *testing.T) {
	tests := []struct {
		fault *Fault
		want  Severity
	}{
		{Connection("x", nil), SeverityHigh},
		{Validation("x", nil), SeverityMedium},
		{Authentication("x", nil), SeverityCritical},
		{Timeout("x", nil), SeverityMedium},
		{Protocol("x", nil), SeverityHigh},
		{DataFormat("x", nil), SeverityMedium},
		{Configuration("x", nil), SeverityHigh},
	}
	for _, tt := range tests {
		if tt.fault.Severity != tt.want {
			t.Errorf("%s severity = %s, want %s", tt.fault.Category, tt.fault.Severity, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection fault", Connection("x", nil), true},
		{"timeout fault", Timeout("x", nil), true},
		{"protocol fault", Protocol("x", nil), true},
		{"validation fault", Validation("x", nil), false},
		{"authentication fault", Authentication("x", nil), false},
		{"data-format fault", DataFormat("x", nil), false},
		{"configuration fault", Configuration("x", nil), false},
		{"wrapped connection fault", fmt.Errorf("outer: %w", Connection("x", nil)), true},
		{"plain error", errors.New("something odd"), false},
		{"eof", io.EOF, true},
		{"deadline", context.DeadlineExceeded, true},
		{"refused message", errors.New("dial tcp 10.0.0.1:7547: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextAnnotation(t *testing.T) {
	f := Timeout("fetch took too long", nil).
		WithOperation("extractor", "GetParameterValues").
		WithAttempts(2, 3).
		WithMetadata("batch", 4)

	if f.Context.Component != "extractor" || f.Context.Operation != "GetParameterValues" {
		t.Errorf("operation context not set: %+v", f.Context)
	}
	if f.Context.Attempt != 2 || f.Context.MaxAttempts != 3 {
		t.Errorf("attempt context not set: %+v", f.Context)
	}
	if f.Context.Metadata["batch"] != 4 {
		t.Errorf("metadata not set: %+v", f.Context.Metadata)
	}
}

func TestFormatForUser(t *testing.T) {
	f := Authentication("device rejected credentials", nil)
	out := FormatForUser(f)
	if !strings.Contains(out, "device rejected credentials") {
		t.Errorf("message missing: %s", out)
	}
	if !strings.Contains(out, "suggestion:") {
		t.Errorf("suggestions missing: %s", out)
	}
}
