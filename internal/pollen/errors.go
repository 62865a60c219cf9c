package pollen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for upstream failures. Which of these a caller sees — and
// which are swallowed — depends on the resource being fetched; see the
// per-method documentation on Client.
var (
	ErrEmptyResponse = errors.New("empty response from API")
	ErrNoItems       = errors.New("no forecast items in response")
	ErrNoPollenTypes = errors.New("no pollen types in response")
	ErrTimeout       = errors.New("request timed out")
	ErrTransport     = errors.New("connection error")
	ErrMalformed     = errors.New("malformed response")
)

// StatusError is returned when the upstream answers with a 4xx/5xx status.
// Body carries the (truncated) response body, which pollenrapporten uses for
// problem details.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.Status, e.Body)
}

// classify maps transport-level failures onto the error taxonomy. Status
// errors are produced separately because the escalation policy differs per
// resource.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// retryable reports whether another attempt could plausibly succeed:
// transport failures, timeouts, rate limiting, and upstream 5xx responses.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrTimeout)
}
