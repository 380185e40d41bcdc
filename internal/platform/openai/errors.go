package openai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/careerpath-backend/internal/pkg/httpx"
)

var (
	// ErrRateLimited is matched by errors.Is for 429 responses.
	ErrRateLimited = errors.New("completion service rate limited")
	// ErrQuotaExceeded is matched by errors.Is for 402 responses.
	ErrQuotaExceeded = errors.New("completion service quota exceeded")
	// ErrEmptyBody is returned when a 2xx response carries no usable body.
	ErrEmptyBody = errors.New("completion service returned an empty body")
)

// HTTPError is a non-2xx response from the completion service.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("completion http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (e *HTTPError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusPaymentRequired
	}
	return false
}

// Status is the transport-level outcome of a completion call.
type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
	StatusQuotaExceeded
	StatusTransportError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	case StatusQuotaExceeded:
		return "quota_exceeded"
	default:
		return "transport_error"
	}
}

// Classify maps an error returned by Client into a Status.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrRateLimited):
		return StatusRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return StatusQuotaExceeded
	default:
		return StatusTransportError
	}
}

func statusLabel(err error) string {
	if code := httpx.StatusOf(err); code != 0 {
		return fmt.Sprintf("%d", code)
	}
	return Classify(err).String()
}
