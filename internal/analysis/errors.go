package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Failure classes reported by the analysis service client. Callers branch
// on them with errors.Is.
var (
	ErrInvalidCredential = errors.New("analysis: invalid credential")
	ErrRateLimited       = errors.New("analysis: rate limit exceeded")
	ErrTransient         = errors.New("analysis: transient failure")
	ErrEmptyResponse     = errors.New("analysis: empty response")
)

// StatusError carries the HTTP status and service message behind a failure.
// RetryAfter is the server's requested back-off, zero when none was sent.
type StatusError struct {
	Class      error
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status=%d: %s", e.Class, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Class }

// classifyStatus maps an HTTP failure to one of the sentinel classes.
func classifyStatus(status int, message string, retryAfter time.Duration) error {
	var class error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		class = ErrInvalidCredential
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key"):
		class = ErrInvalidCredential
	case status == http.StatusTooManyRequests:
		class = ErrRateLimited
	case status >= 500:
		class = ErrTransient
	default:
		return fmt.Errorf("analysis: status=%d: %s", status, message)
	}
	return &StatusError{Class: class, Status: status, Message: message, RetryAfter: retryAfter}
}

// parseRetryAfter reads a Retry-After header in either delay-seconds or
// HTTP-date form. Missing, malformed or past values give zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// RetryAfter reports the back-off the analysis service asked for.
func RetryAfter(err error) (time.Duration, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter, true
	}
	return 0, false
}

// classifyTransport wraps network and timeout failures as transient.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Class returns a short label for metrics: "credential", "rate_limit",
// "transient", "empty" or "other".
func Class(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "credential"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	}
	return "other"
}

// UserMessage maps an analysis failure to text suitable for end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredential):
		return "The analysis API key is invalid or lacks permission. Check GEMINI_API_KEY."
	case errors.Is(err, ErrRateLimited):
		return "The analysis service is rate limiting requests. Try again in a minute."
	case errors.Is(err, ErrTransient):
		return "The analysis service could not be reached. Try again shortly."
	case errors.Is(err, ErrEmptyResponse):
		return "The analysis service returned no usable answer."
	}
	return "Signal generation failed."
}
