// Package providererr classifies failures from embedding and LLM providers.
//
// Transient failures (HTTP 408, 429 and 5xx, client timeouts) are returned
// as *domain.TransientProviderError so the core can retry them. Everything
// else is returned as a plain wrapped error and is never retried.
package providererr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// maxBody bounds how much of an error response is echoed into messages.
const maxBody = 512

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}

// FromStatus builds the error for a non-2xx response.
func FromStatus(provider, op string, status int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	cause := fmt.Errorf("status %d: %s", status, body)

	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewTransientError(provider, op, fmt.Errorf("%w: %w", domain.ErrRateLimited, cause))
	case status == http.StatusRequestTimeout:
		return domain.NewTransientError(provider, op, fmt.Errorf("%w: %w", domain.ErrTimeout, cause))
	case IsTransientStatus(status):
		return domain.NewTransientError(provider, op, cause)
	default:
		return fmt.Errorf("%s %s: %w", provider, op, cause)
	}
}

// FromTransport classifies an error returned before any response arrived.
// Caller cancellation is passed through untouched; deadline and network
// timeouts become transient.
func FromTransport(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsTimeout(err) {
		return domain.NewTransientError(provider, op, fmt.Errorf("%w: %w", domain.ErrTimeout, err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		// Connection refused and resets are usually a restarting local server.
		return domain.NewTransientError(provider, op, err)
	}
	return fmt.Errorf("%s %s: %w", provider, op, err)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
