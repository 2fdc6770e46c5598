package tencentauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the base error type for all tencentauth SDK errors.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("tencentauth: %s", e.Message)
}

// UnauthorizedError indicates an invalid or missing API key (HTTP 401).
type UnauthorizedError struct {
	Message    string
	StatusCode int
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
}

func newUnauthorizedError(message string) *UnauthorizedError {
	if message == "" {
		message = "Invalid API key"
	}
	return &UnauthorizedError{Message: message, StatusCode: 401}
}

// ForbiddenError indicates the API key doesn't match the initiating client (HTTP 403).
type ForbiddenError struct {
	Message    string
	StatusCode int
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
}

func newForbiddenError(message string) *ForbiddenError {
	if message == "" {
		message = "Client mismatch"
	}
	return &ForbiddenError{Message: message, StatusCode: 403}
}

// ExchangeExpiredError indicates the exchange code has expired (HTTP 400).
type ExchangeExpiredError struct {
	Message    string
	StatusCode int
}

func (e *ExchangeExpiredError) Error() string {
	return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
}

func newExchangeExpiredError(message string) *ExchangeExpiredError {
	if message == "" {
		message = "Exchange code expired"
	}
	return &ExchangeExpiredError{Message: message, StatusCode: 400}
}

// ProviderError indicates the upstream provider exchange failed (HTTP 502).
type ProviderError struct {
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
}

func newProviderError(message string) *ProviderError {
	if message == "" {
		message = "Provider exchange failed"
	}
	return &ProviderError{Message: message, StatusCode: 502}
}

// UnavailableError indicates the server gave up on the sign-in, for example
// because the user agent went away mid-handshake (HTTP 503). Starting a new
// sign-in may succeed.
type UnavailableError struct {
	Message    string
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("tencentauth: %s (status %d)", e.Message, e.StatusCode)
}

func newUnavailableError(message string) *UnavailableError {
	if message == "" {
		message = "Sign-in unavailable"
	}
	return &UnavailableError{Message: message, StatusCode: 503}
}

// StatusOf returns the HTTP status a client app should answer its user agent
// with for an SDK error. Bad or expired codes are 400, a 503 from the server
// passes through, and every other redemption failure is 502.
func StatusOf(err error) int {
	var (
		base        *Error
		expired     *ExchangeExpiredError
		unavailable *UnavailableError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &expired):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &base) && base.StatusCode == http.StatusBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
