package tencent

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackMission/tencentauth/internal/domain"
)

func TestParseTokenResponse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantToken   string
		wantExpires time.Duration
		wantErr     error
	}{
		{"form", "access_token=abc123&expires_in=7200&refresh_token=r1", "abc123", 2 * time.Hour, nil},
		{"json", `{"access_token":"abc123","expires_in":7200}`, "abc123", 2 * time.Hour, nil},
		{"json string expiry", `{"access_token":"abc123","expires_in":"7200"}`, "abc123", 2 * time.Hour, nil},
		{"jsonp", `callback( {"access_token":"abc123","expires_in":7200} );`, "abc123", 2 * time.Hour, nil},
		{"no expiry", "access_token=abc123", "abc123", 0, nil},
		{"json error", `{"error":100019,"error_description":"code to access token error"}`, "", 0, domain.ErrProviderDenied},
		{"jsonp error", `callback( {"error":100020,"error_description":"code is reused error"} );`, "", 0, domain.ErrProviderDenied},
		{"form error", "error=invalid_grant&error_description=expired", "", 0, domain.ErrProviderDenied},
		{"plain text", "not a token", "", 0, domain.ErrTokenParse},
		{"html", "<html><body>oops</body></html>", "", 0, domain.ErrTokenParse},
		{"empty", "", "", 0, domain.ErrTokenParse},
		{"broken json", `{"access_token":`, "", 0, domain.ErrTokenParse},
		{"missing token", `{"expires_in":7200}`, "", 0, domain.ErrTokenParse},
		{"bad expiry", "access_token=abc123&expires_in=soon", "", 0, domain.ErrTokenParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := parseTokenResponse([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, tok.AccessToken)
			assert.Equal(t, tt.wantExpires, tok.ExpiresIn)
		})
	}
}

func TestParseTokenResponse_EncodingsAgree(t *testing.T) {
	form, err := parseTokenResponse([]byte("access_token=abc123&expires_in=7200&openid=U42"))
	require.NoError(t, err)
	jsonTok, err := parseTokenResponse([]byte(`{"access_token":"abc123","expires_in":7200,"openid":"U42"}`))
	require.NoError(t, err)
	jsonp, err := parseTokenResponse([]byte(`callback({"access_token":"abc123","expires_in":7200,"openid":"U42"});`))
	require.NoError(t, err)

	assert.Equal(t, form, jsonTok)
	assert.Equal(t, jsonTok, jsonp)
	assert.Equal(t, "U42", form.OpenID)
}

func TestParseTokenResponse_ProviderErrorDetails(t *testing.T) {
	_, err := parseTokenResponse([]byte(`{"error":100019,"error_description":"code to access token error"}`))

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "100019", perr.Code)
	assert.Equal(t, "code to access token error", perr.Description)
}

func TestStripCallbackEnvelope(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`callback( {"a":1} );`, `{"a":1}`},
		{`callback({"a":1})`, `{"a":1}`},
		{"  cb_1 ( {\"a\":1} ) ;\n", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"access_token=a(b)", "access_token=a(b)"},
		{"(x)", "(x)"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, string(stripCallbackEnvelope([]byte(tt.in))), tt.in)
	}
}

func TestExchangeCode_PostForm(t *testing.T) {
	p := newFakeProvider(t)
	h := newHandshake(t, providerOptions(p, newSealer(t)))

	tok, err := h.ExchangeCode(context.Background(), "codeX", testCallbackURL)
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok.AccessToken)
	assert.Equal(t, 7200*time.Second, tok.ExpiresIn)
	assert.Equal(t, "ref1", tok.RefreshToken)

	req := p.LastRequest(t)
	form := req.Form
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "app1", form.Get("client_id"))
	assert.Equal(t, "secret1", form.Get("client_secret"))
	assert.Equal(t, "codeX", form.Get("code"))
	assert.Equal(t, testCallbackURL, form.Get("redirect_uri"))
}

func TestExchangeCode_Get(t *testing.T) {
	p := newFakeProvider(t)
	opts := providerOptions(p, newSealer(t))
	opts.TokenRequestMethod = http.MethodGet
	opts.Endpoints.TokenEndpoint += "?fmt=json"
	p.Token = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok1","expires_in":"7200"}`))
	}
	h := newHandshake(t, opts)

	tok, err := h.ExchangeCode(context.Background(), "codeX", testCallbackURL)
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok.AccessToken)

	req := p.LastRequest(t)
	assert.Equal(t, http.MethodGet, req.Method)
	q := req.URL.Query()
	assert.Equal(t, "json", q.Get("fmt"))
	assert.Equal(t, "codeX", q.Get("code"))
	assert.Equal(t, testCallbackURL, q.Get("redirect_uri"))
}

func TestExchangeCode_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		retryable bool
	}{
		{"server error", http.StatusBadGateway, "upstream down", domain.ErrTransport, true},
		{"client error with provider error", http.StatusBadRequest, `{"error":"invalid_grant"}`, domain.ErrProviderDenied, false},
		{"client error without body", http.StatusBadRequest, "", domain.ErrTokenParse, false},
		{"client error with token", http.StatusUnauthorized, "access_token=tok1", domain.ErrTokenParse, false},
		{"ok but unreadable", http.StatusOK, "<html/>", domain.ErrTokenParse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			p.Token = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}
			h := newHandshake(t, providerOptions(p, newSealer(t)))

			_, err := h.ExchangeCode(context.Background(), "codeX", testCallbackURL)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, domain.Retryable(err))
		})
	}
}

func TestExchangeCode_ErrorDoesNotLeakSecret(t *testing.T) {
	p := newFakeProvider(t)
	p.Token = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}
	h := newHandshake(t, providerOptions(p, newSealer(t)))

	_, err := h.ExchangeCode(context.Background(), "codeX", testCallbackURL)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret1")
	assert.NotContains(t, err.Error(), "codeX")
}
