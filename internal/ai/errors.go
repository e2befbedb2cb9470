package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrMissingCredential = errors.New("ai credential is missing")
	ErrInvalidCredential = errors.New("ai credential was rejected")
	ErrUnavailable       = errors.New("ai service is unavailable")
)

// GenerationError is any provider failure that is neither a network problem
// nor a credential rejection.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return "generation error: " + e.Cause.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// genai formats API errors as "Error <code>, Message: ..."
var apiCodePattern = regexp.MustCompile(`Error (\d{3}),`)

// Classify maps a raw provider error onto ErrUnavailable,
// ErrInvalidCredential, ErrMissingCredential or *GenerationError.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrMissingCredential) || errors.As(err, &genErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, err)
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := err.Error()
	if m := apiCodePattern.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		if code == http.StatusBadRequest && isCredentialMessage(msg) {
			return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return classifyStatus(code, err)
	}
	lower := strings.ToLower(msg)
	switch {
	case isCredentialMessage(msg):
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "network is unreachable"),
		strings.Contains(lower, "timeout"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &GenerationError{Cause: err}
}

func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &GenerationError{Cause: err}
}

func isCredentialMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "api key") ||
		strings.Contains(lower, "api_key") ||
		strings.Contains(lower, "permission_denied") ||
		strings.Contains(lower, "unauthenticated")
}

// IsTransient reports whether retrying the call may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
