package tencent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// ExchangeCode redeems an authorization code at the token endpoint. The
// provider may answer with JSON, a form-encoded body, or either wrapped in a
// JSONP envelope; all are accepted.
func (h *Handshake) ExchangeCode(ctx context.Context, code, callbackURL string) (*domain.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {h.opts.AppID},
		"client_secret": {h.opts.AppSecret},
		"code":          {code},
		"redirect_uri":  {callbackURL},
	}

	req, err := h.tokenRequest(form)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(ctx, endpointToken, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: token endpoint returned status %d", domain.ErrTransport, resp.StatusCode)
	}

	token, err := parseTokenResponse(resp.Body)
	switch {
	case errors.Is(err, domain.ErrProviderDenied):
		return nil, err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: token endpoint returned status %d", domain.ErrTokenParse, resp.StatusCode)
	case err != nil:
		return nil, err
	}
	return token, nil
}

func (h *Handshake) tokenRequest(form url.Values) (*http.Request, error) {
	endpoint := h.opts.Endpoints.TokenEndpoint

	var req *http.Request
	var err error
	if h.opts.TokenRequestMethod == http.MethodGet {
		u, perr := url.Parse(endpoint)
		if perr != nil {
			return nil, fmt.Errorf("%w: token endpoint: %v", domain.ErrConfiguration, perr)
		}
		q := u.Query()
		for k, v := range form {
			q[k] = v
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequest(http.MethodGet, u.String(), nil)
	} else {
		req, err = http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/x-www-form-urlencoded;q=0.9, */*;q=0.5")
	return req, nil
}

// parseTokenResponse detects the body shape and builds a TokenResponse.
// Identical fields in JSON and form encoding produce identical results.
func parseTokenResponse(body []byte) (*domain.TokenResponse, error) {
	b := stripCallbackEnvelope(body)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrTokenParse)
	}

	var fields map[string]string
	if b[0] == '{' {
		var err error
		if fields, err = flattenObject(b); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenParse, err)
		}
	} else {
		values, err := url.ParseQuery(string(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenParse, err)
		}
		_, hasToken := values["access_token"]
		_, hasError := values["error"]
		if !hasToken && !hasError {
			return nil, fmt.Errorf("%w: neither JSON nor form encoded", domain.ErrTokenParse)
		}
		fields = make(map[string]string, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
	}

	if failed(fields["error"]) {
		return nil, &domain.ProviderError{
			Code:        fields["error"],
			Description: firstNonEmpty(fields["error_description"], fields["msg"]),
		}
	}

	accessToken := fields["access_token"]
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", domain.ErrTokenParse)
	}

	var expiresIn time.Duration
	if v := strings.TrimSpace(fields["expires_in"]); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("%w: invalid expires_in", domain.ErrTokenParse)
		}
		expiresIn = time.Duration(secs) * time.Second
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		ExpiresIn:    expiresIn,
		RefreshToken: fields["refresh_token"],
		OpenID:       fields["openid"],
		Raw:          fields,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
