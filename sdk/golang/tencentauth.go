package tencentauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Config holds the configuration for a tencentauth client.
type Config struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration
}

// Identity is the normalized QQ profile. ProviderID is the user's openid.
type Identity struct {
	ProviderID string            `json:"provider_id"`
	Attributes map[string]string `json:"attributes"`
}

// Ticket is the signed-in result returned by the exchange endpoint.
type Ticket struct {
	Provider       string            `json:"provider"`
	ClientID       string            `json:"client_id,omitempty"`
	Identity       Identity          `json:"identity"`
	AccessToken    string            `json:"access_token"`
	ExpiresAt      time.Time         `json:"expires_at,omitempty"`
	RedirectTarget string            `json:"redirect_target"`
	Claims         map[string]string `json:"claims"`
	Properties     map[string]string `json:"properties,omitempty"`
	IssuedAt       time.Time         `json:"issued_at"`
}

// Subject returns the "sub" claim.
func (t *Ticket) Subject() string { return t.Claims["sub"] }

// Name returns the "name" claim, the QQ nickname when one was fetched.
func (t *Ticket) Name() string { return t.Claims["name"] }

// Scheme describes a sign-in scheme offered by the server.
type Scheme struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Path    string `json:"path"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	ErrorMsg string `json:"error"`
}

// Client is the tencentauth SDK client.
type Client struct {
	baseURL  string
	clientID string
	apiKey   string
	http     *http.Client
}

// New creates a new tencentauth client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// AuthorizeURL builds the URL that starts a sign-in with the given scheme.
// Extra properties are carried through the handshake and returned on the
// ticket.
func (c *Client) AuthorizeURL(scheme, redirectURI string, properties map[string]string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	for k, v := range properties {
		params.Set("prop_"+k, v)
	}
	return fmt.Sprintf("%s/auth/%s?%s", c.baseURL, url.PathEscape(scheme), params.Encode())
}

// Exchange trades an exchange code for the sign-in ticket (server-to-server).
func (c *Client) Exchange(ctx context.Context, code string) (*Ticket, error) {
	params := url.Values{}
	params.Set("code", code)
	reqURL := fmt.Sprintf("%s/exchange?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to create request: %s", err.Error())}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("network error: %s", err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var ticket Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to decode response: %s", err.Error())}
	}
	return &ticket, nil
}

// Schemes returns the sign-in schemes the server offers.
func (c *Client) Schemes(ctx context.Context) ([]Scheme, error) {
	reqURL := fmt.Sprintf("%s/providers", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to create request: %s", err.Error())}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("network error: %s", err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Message:    fmt.Sprintf("failed to fetch schemes: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	var schemes []Scheme
	if err := json.NewDecoder(resp.Body).Decode(&schemes); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to decode response: %s", err.Error())}
	}
	return schemes, nil
}

// HealthCheck returns true if the tencentauth server is healthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	reqURL := fmt.Sprintf("%s/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var data healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return false
	}
	return data.Status == "ok"
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp errorResponse
	message := http.StatusText(resp.StatusCode)
	if json.Unmarshal(body, &errResp) == nil && errResp.ErrorMsg != "" {
		message = errResp.ErrorMsg
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(message), "expired") {
			return newExchangeExpiredError(message)
		}
		return &Error{Message: message, StatusCode: 400}
	case http.StatusUnauthorized:
		return newUnauthorizedError(message)
	case http.StatusForbidden:
		return newForbiddenError(message)
	case http.StatusBadGateway:
		return newProviderError(message)
	case http.StatusServiceUnavailable:
		return newUnavailableError(message)
	default:
		return &Error{Message: message, StatusCode: resp.StatusCode}
	}
}
