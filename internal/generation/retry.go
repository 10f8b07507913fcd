package generation

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryableStatuses are the statuses the SDK-backed adapters retry on.
var DefaultRetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryPolicy bounds how often and how patiently a request is repeated.
// Build it with NewRetryPolicy and treat it as read-only afterwards.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	statuses    map[int]struct{}
}

// NewRetryPolicy clamps maxAttempts to at least 1 and the backoff to at least 0.
func NewRetryPolicy(maxAttempts int, baseBackoffSeconds float64, retryOnStatus []int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	statuses := make(map[int]struct{}, len(retryOnStatus))
	for _, status := range retryOnStatus {
		statuses[status] = struct{}{}
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseBackoff: Seconds(baseBackoffSeconds),
		statuses:    statuses,
	}
}

// RetriesStatus reports whether status is in the retriable set.
func (p RetryPolicy) RetriesStatus(status int) bool {
	_, ok := p.statuses[status]
	return ok
}

// HasAttemptsAfter reports whether another attempt may follow attempt (1-based).
func (p RetryPolicy) HasAttemptsAfter(attempt int) bool {
	return attempt < p.MaxAttempts
}

// Backoff returns the wait after the given failed attempt: base * 2^(attempt-1).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseBackoff <= 0 || attempt < 1 {
		return 0
	}
	factor := math.Pow(2, float64(attempt-1))
	wait := float64(p.BaseBackoff) * factor
	if wait > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(wait)
}

// RetryDecision describes what to do after a failed attempt.
type RetryDecision struct {
	Retry  bool
	Wait   time.Duration
	Status int // 0 when the failure carried no status
}

// Decide evaluates a failed attempt. status is 0 when unknown and retryAfter
// is the raw Retry-After header value, possibly empty.
func (p RetryPolicy) Decide(attempt, status int, retryAfter string, now time.Time) RetryDecision {
	decision := RetryDecision{Status: status}
	if status == 0 || !p.RetriesStatus(status) || !p.HasAttemptsAfter(attempt) {
		return decision
	}

	decision.Retry = true
	if wait, ok := ParseRetryAfter(retryAfter, now); ok {
		decision.Wait = wait
	} else {
		decision.Wait = p.Backoff(attempt)
	}
	return decision
}

// ParseRetryAfter interprets a Retry-After header value, either a number of
// seconds or an HTTP date. Dates in the past yield 0. Negative numbers and
// unparseable values report false.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, false
		}
		return Seconds(seconds), true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// Seconds converts fractional seconds from configuration to a duration.
// Negative input yields 0.
func Seconds(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// statusCoder and httpStatusCoder are the conventional accessors a client
// error may expose its HTTP status through.
type statusCoder interface{ StatusCode() int }

type httpStatusCoder interface{ HTTPStatusCode() int }

// StatusFromError extracts an HTTP status from err or anything it wraps.
// It returns 0 when none is found.
func StatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var hsc httpStatusCoder
	if errors.As(err, &hsc) {
		return hsc.HTTPStatusCode()
	}
	return 0
}
