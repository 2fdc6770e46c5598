package domain

import (
	"errors"
	"fmt"
)

var (
	// Startup errors
	ErrConfiguration = errors.New("invalid configuration")

	// Handshake errors
	ErrProviderDenied     = errors.New("provider denied the authorization request")
	ErrMalformedCallback  = errors.New("malformed callback")
	ErrInvalidState       = errors.New("invalid state token")
	ErrTransport          = errors.New("backchannel transport failure")
	ErrCancelled          = errors.New("handshake cancelled")
	ErrResponseTooLarge   = fmt.Errorf("%w: response body exceeds limit", ErrTransport)
	ErrTokenParse         = errors.New("unrecognized token response")
	ErrProfileParse       = errors.New("unrecognized profile response")
	ErrIdentityIncomplete = errors.New("profile is missing the provider user id")
	ErrEnrichmentRejected = errors.New("login rejected by enrichment hook")

	// State token errors, all of which are reported as ErrInvalidState by the callback
	ErrExpiredState   = fmt.Errorf("%w: expired", ErrInvalidState)
	ErrMalformedState = fmt.Errorf("%w: malformed", ErrInvalidState)
	ErrStateReplayed  = fmt.Errorf("%w: already consumed", ErrInvalidState)

	// Scheme registry errors
	ErrSchemeNotFound  = errors.New("sign-in scheme not found")
	ErrDuplicateScheme = errors.New("duplicate sign-in scheme")

	// Client errors
	ErrClientNotFound     = errors.New("client not found")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrCallbackNotAllowed = errors.New("callback URI not allowed")
	ErrDuplicateClientID  = errors.New("duplicate client ID")

	// Exchange code errors
	ErrInvalidExchangeCode    = errors.New("invalid exchange code")
	ErrExpiredExchangeCode    = errors.New("expired exchange code")
	ErrExchangeClientMismatch = errors.New("exchange code was issued to another client")
)

// ProviderError carries the failure reported by the provider, either on the
// callback query string or inside a token/profile response body.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s: %s", ErrProviderDenied, e.Code, e.Description)
	case e.Description != "":
		return fmt.Sprintf("%s: %s", ErrProviderDenied, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", ErrProviderDenied, e.Code)
	}
	return ErrProviderDenied.Error()
}

// Is makes errors.Is(err, ErrProviderDenied) hold for every ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderDenied
}

// Retryable reports whether the whole attempt may be restarted from the
// beginning. Only transport-class failures qualify; protocol failures do not.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) && !errors.Is(err, ErrResponseTooLarge)
}
