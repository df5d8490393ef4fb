// Package httputil holds the HTTP plumbing shared by the index and fetch
// adapters.
package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.trai.ch/zerr"
)

// ErrNotFound is returned for a 404 response.
var ErrNotFound = zerr.New("resource not found")

// ErrNetwork is returned for transport failures and unexpected statuses.
var ErrNetwork = zerr.New("network request failed")

// RetryableError marks a failure worth another attempt.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times, doubling delay after each retryable
// failure. Other errors end the loop at once.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.As(err, new(*RetryableError)) {
			return err
		}

		if i < attempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				delay *= 2
			}
		}
	}
	return lastErr
}

// Client performs GET requests with retry.
type Client struct {
	http     *http.Client
	attempts int
	delay    time.Duration
}

// NewClient creates a Client. A zero timeout never times out.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
}

// WithRetry returns a copy of c using the given attempt count and first delay.
func (c *Client) WithRetry(attempts int, delay time.Duration) *Client {
	cp := *c
	cp.attempts = attempts
	cp.delay = delay
	return &cp
}

// Get fetches url and hands the body to consume. Transport errors and 5xx
// responses are retried; consume may itself return a RetryableError.
func (c *Client) Get(ctx context.Context, url string, consume func(io.Reader) error) error {
	return Retry(ctx, c.attempts, c.delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "invalid request"), "url", url)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RetryableError{Err: zerr.With(zerr.Wrap(ErrNetwork, err.Error()), "url", url)}
		}
		defer resp.Body.Close() //nolint:errcheck // Body is fully consumed or abandoned

		if err := checkStatus(resp.StatusCode, url); err != nil {
			return err
		}
		return consume(resp.Body)
	})
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return zerr.With(zerr.Wrap(ErrNotFound, "status 404"), "url", url)
	case code >= 500:
		return &RetryableError{Err: zerr.With(zerr.Wrap(ErrNetwork, "status "+strconv.Itoa(code)), "url", url)}
	default:
		return zerr.With(zerr.Wrap(ErrNetwork, "status "+strconv.Itoa(code)), "url", url)
	}
}
