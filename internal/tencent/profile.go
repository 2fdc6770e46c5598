package tencent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// FetchProfile resolves the signed-in user. The user information endpoint
// must return the id field; when a user profile endpoint is configured its
// fields are merged in without overriding what the first call returned.
func (h *Handshake) FetchProfile(ctx context.Context, token *domain.TokenResponse) (*domain.Identity, error) {
	attrs, err := h.getProfile(ctx, endpointUserInfo, h.opts.Endpoints.UserInfoEndpoint, token.AccessToken, nil)
	if err != nil {
		return nil, err
	}

	id := attrs[h.opts.IDField]
	if id == "" {
		return nil, fmt.Errorf("%w: field %q absent", domain.ErrIdentityIncomplete, h.opts.IDField)
	}

	if endpoint := h.opts.Endpoints.UserProfileEndpoint; endpoint != "" {
		extra := url.Values{
			"oauth_consumer_key": {h.opts.AppID},
			"openid":             {id},
		}
		more, err := h.getProfile(ctx, endpointUserProfile, endpoint, token.AccessToken, extra)
		if err != nil {
			return nil, err
		}
		for k, v := range more {
			if _, ok := attrs[k]; !ok {
				attrs[k] = v
			}
		}
	}

	return &domain.Identity{ProviderID: id, Attributes: attrs}, nil
}

func (h *Handshake) getProfile(ctx context.Context, label, endpoint, accessToken string, extra url.Values) (map[string]string, error) {
	req, err := h.profileRequest(endpoint, accessToken, extra)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(ctx, label, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s endpoint returned status %d", domain.ErrTransport, label, resp.StatusCode)
	}

	attrs, err := parseProfile(resp.Body)
	if err != nil {
		return nil, err
	}
	if perr := profileFailure(attrs); perr != nil {
		return nil, perr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s endpoint returned status %d", domain.ErrProfileParse, label, resp.StatusCode)
	}
	return attrs, nil
}

func (h *Handshake) profileRequest(endpoint, accessToken string, extra url.Values) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: profile endpoint: %v", domain.ErrConfiguration, err)
	}

	q := u.Query()
	for k, v := range extra {
		q[k] = v
	}
	if h.opts.AccessTokenPlacement == PlacementQuery {
		q.Set("access_token", accessToken)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	if h.opts.AccessTokenPlacement == PlacementHeader {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseProfile keeps every top-level field of the (possibly JSONP wrapped)
// profile object.
func parseProfile(body []byte) (map[string]string, error) {
	b := stripCallbackEnvelope(body)
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", domain.ErrProfileParse)
	}
	attrs, err := flattenObject(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileParse, err)
	}
	return attrs, nil
}

// profileFailure recognizes both error shapes: {"error":..,"error_description":..}
// from the OAuth endpoints and {"ret":..,"msg":..} from the open API.
func profileFailure(attrs map[string]string) error {
	if failed(attrs["error"]) {
		return &domain.ProviderError{
			Code:        attrs["error"],
			Description: firstNonEmpty(attrs["error_description"], attrs["msg"]),
		}
	}
	if failed(attrs["ret"]) {
		return &domain.ProviderError{Code: attrs["ret"], Description: attrs["msg"]}
	}
	return nil
}
