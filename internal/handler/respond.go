package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BlackMission/tencentauth/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handshakeStatus maps a handshake failure onto an HTTP status and a message
// safe to show the user agent. State failures are deliberately opaque.
func handshakeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProviderDenied):
		return http.StatusForbidden, "sign-in was denied by the provider"
	case errors.Is(err, domain.ErrMalformedCallback):
		return http.StatusBadRequest, "malformed callback"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest, "invalid state"
	case errors.Is(err, domain.ErrEnrichmentRejected):
		return http.StatusForbidden, "sign-in was rejected"
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusServiceUnavailable, "sign-in was cancelled"
	case errors.Is(err, domain.ErrTransport),
		errors.Is(err, domain.ErrTokenParse),
		errors.Is(err, domain.ErrProfileParse),
		errors.Is(err, domain.ErrIdentityIncomplete):
		return http.StatusBadGateway, "provider exchange failed"
	default:
		return http.StatusInternalServerError, "sign-in failed"
	}
}

// exchangeStatus maps a failed redemption onto an HTTP status and message.
// Clients detect expiry by the word "expired" in the message.
func exchangeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrExpiredExchangeCode):
		return http.StatusBadRequest, "exchange code expired"
	case errors.Is(err, domain.ErrInvalidExchangeCode):
		return http.StatusBadRequest, "invalid exchange code"
	case errors.Is(err, domain.ErrInvalidAPIKey), errors.Is(err, domain.ErrClientNotFound):
		return http.StatusUnauthorized, "invalid API key"
	case errors.Is(err, domain.ErrExchangeClientMismatch):
		return http.StatusForbidden, "API key does not match the client that initiated the auth flow"
	default:
		return http.StatusInternalServerError, "exchange failed"
	}
}
