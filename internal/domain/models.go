package domain

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ProviderName identifies the upstream identity provider in tickets and claims.
const ProviderName = "tencent"

// StatePayload is the per-attempt data round-tripped through the provider
// inside the sealed state parameter.
type StatePayload struct {
	AttemptID   string            `json:"aid,omitempty"`
	ClientID    string            `json:"cid,omitempty"`
	RedirectURI string            `json:"rdr"`
	Nonce       string            `json:"nce"`
	Properties  map[string]string `json:"prp,omitempty"`
	ExpiresAt   time.Time         `json:"exp"`
}

// AuthorizationRequest carries the per-attempt inputs of the authorization
// redirect.
type AuthorizationRequest struct {
	// CallbackURL is the absolute URL of the scheme's callback path on this
	// host. It is sent as redirect_uri and must be reused verbatim for the
	// code exchange.
	CallbackURL string

	// RedirectURI is where the user lands after a successful sign-in.
	RedirectURI string

	ClientID   string
	Properties map[string]string
}

// TokenResponse is the result of the authorization code exchange.
type TokenResponse struct {
	AccessToken  string
	ExpiresIn    time.Duration
	RefreshToken string
	OpenID       string
	Raw          map[string]string
}

// String never prints the token material.
func (t TokenResponse) String() string {
	return fmt.Sprintf("TokenResponse{AccessToken: [redacted], ExpiresIn: %s}", t.ExpiresIn)
}

// GoString keeps %#v from leaking the token as well.
func (t TokenResponse) GoString() string { return t.String() }

// Identity is the normalized provider profile.
type Identity struct {
	ProviderID string            `json:"provider_id"`
	Attributes map[string]string `json:"attributes"`
}

// Claims maps a claim type to its value.
type Claims map[string]string

// Clone returns an independent copy.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Ticket is the final output of a successful handshake.
type Ticket struct {
	Provider       string            `json:"provider"`
	ClientID       string            `json:"client_id,omitempty"`
	Identity       Identity          `json:"identity"`
	AccessToken    string            `json:"access_token"`
	ExpiresAt      time.Time         `json:"expires_at,omitempty"`
	RedirectTarget string            `json:"redirect_target"`
	Claims         Claims            `json:"claims"`
	Properties     map[string]string `json:"properties,omitempty"`
	IssuedAt       time.Time         `json:"issued_at"`
}

// OAuth2Token exposes the ticket's access token in the shape expected by
// golang.org/x/oauth2 clients, so the embedding app can call provider APIs.
func (t *Ticket) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}
	return tok.WithExtra(map[string]any{"openid": t.Identity.ProviderID})
}

// ExchangePayload is the data encrypted inside an exchange code (AES-GCM).
type ExchangePayload struct {
	ClientID  string    `json:"cid"`
	ExpiresAt time.Time `json:"exp"`
	Ticket    Ticket    `json:"tkt"`
}

// ClientApp represents an application allowed to start logins and redeem tickets.
type ClientApp struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	APIKey           string   `json:"-" yaml:"api_key"`
	AllowedCallbacks []string `json:"allowed_callbacks" yaml:"allowed_callbacks"`
}
