package tencent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/logger"
	"github.com/BlackMission/tencentauth/internal/state"
)

// AuthorizationURL seals a fresh state for the attempt and returns the
// provider authorization URL the user agent should be redirected to.
func (h *Handshake) AuthorizationURL(ctx context.Context, req domain.AuthorizationRequest) (string, error) {
	if req.CallbackURL == "" {
		return "", fmt.Errorf("%w: callback URL is required", domain.ErrConfiguration)
	}

	nonce, err := state.NewNonce()
	if err != nil {
		return "", err
	}
	attemptID := uuid.NewString()

	sealed, err := h.opts.Sealer.Seal(domain.StatePayload{
		AttemptID:   attemptID,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		Nonce:       nonce,
		Properties:  req.Properties,
	})
	if err != nil {
		return "", fmt.Errorf("sealing state: %w", err)
	}

	cfg := oauth2.Config{
		ClientID:    h.opts.AppID,
		RedirectURL: req.CallbackURL,
		Endpoint:    oauth2.Endpoint{AuthURL: h.opts.Endpoints.AuthorizationEndpoint},
	}
	authURL := cfg.AuthCodeURL(sealed,
		oauth2.SetAuthURLParam("scope", strings.Join(h.opts.Scope, h.opts.ScopeSeparator)),
	)

	h.observe(OutcomeRedirectIssued)
	logger.From(ctx).Debug("authorization redirect issued",
		logger.Component("tencent"),
		logger.AttemptID(attemptID),
		logger.ClientID(req.ClientID),
	)
	return authURL, nil
}
