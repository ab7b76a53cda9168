package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
)

// ProviderError is a failed provider call, annotated with the HTTP status when one is known.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// httpCoder is satisfied by gax apierror.APIError without importing gax directly.
type httpCoder interface {
	HTTPCode() int
}

// wrapProviderError extracts the status code from SDK-specific error types.
func wrapProviderError(provider Provider, err error) error {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode(err),
		Cause:      err,
	}
}

func statusCode(err error) int {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var coder httpCoder
	if errors.As(err, &coder) {
		return coder.HTTPCode()
	}
	return 0
}

// IsTransient reports whether a failed call is worth retrying:
// timeouts, rate limiting, server-side failures and network errors.
// Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.StatusCode != 0 {
		return pErr.StatusCode == http.StatusTooManyRequests ||
			pErr.StatusCode == http.StatusRequestTimeout ||
			pErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
