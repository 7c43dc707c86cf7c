// Package netx classifies network failures for the sync engine. Failures
// reported as transient here are wrapped for the retry queue's backoff;
// validation, authentication and authorization errors fail terminally on the
// first attempt instead.
package netx

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/aws/smithy-go"
)

// IsTransientStatus reports whether an HTTP status code indicates a failure
// worth retrying: timeouts, throttling and server-side errors.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}

// IsTransient reports whether err looks like a temporary network failure:
// connection errors, timeouts, or a blob-store API error with a retryable
// code. Context cancellation is not transient; the caller asked to stop.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RequestTimeout", "SlowDown", "ServiceUnavailable", "InternalError",
			"Throttling", "ThrottlingException", "RequestLimitExceeded":
			return true
		}
	}

	return false
}
