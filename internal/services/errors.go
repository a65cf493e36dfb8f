package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrFatal         = errors.New("fatal external failure")
	ErrDegraded      = errors.New("degraded step")
	ErrInvalidState  = errors.New("invalid state")
)

const (
	maxStderrBytes   = 2048
	maxMessageRunes  = 1000
	truncationSuffix = "…"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a failed attempt may be repeated. Fatal provider
// responses, configuration problems, invalid state and cancellation stop
// immediately; everything else is worth another attempt.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrFatal), errors.Is(err, ErrConfiguration), errors.Is(err, ErrInvalidState):
		return false
	default:
		return true
	}
}

// IsFatal is the inverse of IsRetryable for non-nil errors.
func IsFatal(err error) bool {
	return err != nil && !IsRetryable(err)
}

// SubprocessError captures a failed external tool invocation.
type SubprocessError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// NewSubprocessError builds a SubprocessError with stderr truncated to a
// readable tail.
func NewSubprocessError(tool string, args []string, exitCode int, stderr []byte, err error) *SubprocessError {
	return &SubprocessError{
		Tool:     tool,
		Args:     append([]string(nil), args...),
		ExitCode: exitCode,
		Stderr:   TruncateStderr(string(stderr)),
		Err:      err,
	}
}

func (e *SubprocessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *SubprocessError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err != nil {
		return []error{ErrExternalTool, e.Err}
	}
	return []error{ErrExternalTool}
}

// HTTPStatusError reports a non-success provider response.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: http status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Service, e.StatusCode, body)
}

// Unwrap maps the status code to a marker so callers can use errors.Is.
func (e *HTTPStatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return ClassifyHTTPStatus(e.StatusCode, e.Body)
}

// ClassifyHTTPStatus maps a provider status code (and body for 429) to
// ErrTransient or ErrFatal. Only rejected credentials and exhausted quota or
// credit are fatal; every other status, 404 included, is worth another attempt.
func ClassifyHTTPStatus(status int, body string) error {
	switch status {
	case 401, 402, 403:
		return ErrFatal
	case 429:
		lower := strings.ToLower(body)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "credit") {
			return ErrFatal
		}
		return ErrTransient
	default:
		return ErrTransient
	}
}

// TruncateStderr keeps the tail of stderr, where tools report the actual failure.
func TruncateStderr(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) <= maxStderrBytes {
		return stderr
	}
	tail := stderr[len(stderr)-maxStderrBytes:]
	for !utf8.ValidString(tail) && len(tail) > 0 {
		tail = tail[1:]
	}
	return truncationSuffix + tail
}

// TruncateMessage bounds a persisted failure message.
func TruncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= maxMessageRunes {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxMessageRunes]) + truncationSuffix
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
