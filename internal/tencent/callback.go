package tencent

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Callback is a validated provider callback.
type Callback struct {
	Code  string
	State *domain.StatePayload
}

// ProcessCallback validates the query the provider redirected back with. A
// provider error (error, error_description or QQ's msg) wins over everything
// else; then code and state must be present, and the state must unseal and
// pass the replay guard.
func (h *Handshake) ProcessCallback(ctx context.Context, query url.Values) (*Callback, error) {
	code, desc := query.Get("error"), firstNonEmpty(query.Get("error_description"), query.Get("msg"))
	if code != "" || desc != "" {
		return nil, &domain.ProviderError{Code: code, Description: desc}
	}

	code = query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", domain.ErrMalformedCallback)
	}
	raw := query.Get("state")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing state", domain.ErrMalformedCallback)
	}

	payload, err := h.opts.Sealer.Unseal(raw)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidState) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
		}
		return nil, err
	}

	if h.opts.ReplayGuard != nil {
		if err := h.opts.ReplayGuard.Consume(ctx, payload.Nonce, payload.ExpiresAt); err != nil {
			return nil, err
		}
	}

	return &Callback{Code: code, State: payload}, nil
}
