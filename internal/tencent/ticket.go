package tencent

import (
	"context"
	"fmt"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Standard claim types produced by DefaultClaimMapper.
const (
	ClaimSubject  = "sub"
	ClaimName     = "name"
	ClaimProvider = "provider"
)

// ClaimMapper turns a provider identity into claims.
type ClaimMapper interface {
	MapClaims(identity domain.Identity) domain.Claims
}

// ClaimMapperFunc adapts a function to ClaimMapper.
type ClaimMapperFunc func(identity domain.Identity) domain.Claims

func (f ClaimMapperFunc) MapClaims(identity domain.Identity) domain.Claims {
	return f(identity)
}

// DefaultClaimMapper copies every attribute under its own name, then sets
// sub, provider and, when the profile has a nickname, name.
var DefaultClaimMapper ClaimMapper = ClaimMapperFunc(func(identity domain.Identity) domain.Claims {
	claims := make(domain.Claims, len(identity.Attributes)+3)
	for k, v := range identity.Attributes {
		claims[k] = v
	}
	claims[ClaimSubject] = identity.ProviderID
	claims[ClaimProvider] = domain.ProviderName
	if nick := identity.Attributes["nickname"]; nick != "" {
		claims[ClaimName] = nick
	}
	return claims
})

// EnrichInput is what an Enricher sees. Every map in it is a copy and may be
// modified freely without touching the ticket.
type EnrichInput struct {
	Identity       domain.Identity
	Token          domain.TokenResponse
	Claims         domain.Claims
	RedirectTarget string
	Properties     map[string]string
}

// Enrichment is an Enricher's verdict. A nil Claims keeps the mapped claims
// and an empty RedirectTarget keeps the one from the state.
type Enrichment struct {
	Claims         domain.Claims
	RedirectTarget string
}

// Enricher runs once per successful handshake before the ticket is issued.
// Returning an error rejects the sign-in.
type Enricher interface {
	Enrich(ctx context.Context, in EnrichInput) (Enrichment, error)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, in EnrichInput) (Enrichment, error)

func (f EnricherFunc) Enrich(ctx context.Context, in EnrichInput) (Enrichment, error) {
	return f(ctx, in)
}

// AssembleTicket maps claims, runs the enrichment hook and builds the ticket.
func (h *Handshake) AssembleTicket(ctx context.Context, identity *domain.Identity, token *domain.TokenResponse, st *domain.StatePayload) (*domain.Ticket, error) {
	if identity.ProviderID == "" {
		return nil, domain.ErrIdentityIncomplete
	}

	claims := h.opts.ClaimMapper.MapClaims(*identity)
	redirect := st.RedirectURI

	if h.opts.Enricher != nil {
		in := EnrichInput{
			Identity:       *identity,
			Token:          *token,
			Claims:         claims.Clone(),
			RedirectTarget: redirect,
			Properties:     cloneStrings(st.Properties),
		}
		in.Identity.Attributes = cloneStrings(identity.Attributes)
		in.Token.Raw = cloneStrings(token.Raw)

		out, err := h.opts.Enricher.Enrich(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEnrichmentRejected, err)
		}
		if out.Claims != nil {
			claims = out.Claims
		}
		if out.RedirectTarget != "" {
			redirect = out.RedirectTarget
		}
	}

	now := h.now().UTC()
	ticket := &domain.Ticket{
		Provider:       domain.ProviderName,
		ClientID:       st.ClientID,
		Identity:       *identity,
		AccessToken:    token.AccessToken,
		RedirectTarget: redirect,
		Claims:         claims,
		Properties:     st.Properties,
		IssuedAt:       now,
	}
	if token.ExpiresIn > 0 {
		ticket.ExpiresAt = now.Add(token.ExpiresIn)
	}
	return ticket, nil
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
