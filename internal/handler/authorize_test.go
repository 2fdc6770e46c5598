package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/BlackMission/tencentauth/internal/auth"
	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/pkg/testutil"
)

const testBaseURL = "https://login.example.com"

type stubScheme struct {
	name    string
	authURL string
	authErr error

	ticket       *domain.Ticket
	err          error
	lastReq      domain.AuthorizationRequest
	lastQuery    url.Values
	lastCallback string
}

func (s *stubScheme) Name() string { return s.name }
func (s *stubScheme) Caption() string { return "Tencent QQ" }
func (s *stubScheme) CallbackPath() string { return "/signin-" + s.name }
func (s *stubScheme) AuthorizationURL(ctx context.Context, req domain.AuthorizationRequest) (string, error) {
	s.lastReq = req
	if s.authErr != nil {
		return "", s.authErr
	}
	return s.authURL + "?state=sealed", nil
}
func (s *stubScheme) Complete(ctx context.Context, query url.Values, callbackURL string) (*domain.Ticket, error) {
	s.lastQuery = query
	s.lastCallback = callbackURL
	return s.ticket, s.err
}

func testClientRegistry() *client.Registry {
	clients, _ := client.NewRegistry([]domain.ClientApp{
		{
			ID:               "website",
			Name:             "Website",
			APIKey:           "web-key",
			AllowedCallbacks: []string{"https://example.com/callback"},
		},
	})
	return clients
}

func setupAuthorize(scheme *stubScheme) http.Handler {
	schemes := auth.NewRegistry()
	schemes.Register(scheme)

	r := chi.NewRouter()
	r.Get("/auth/{scheme}", Authorize(testClientRegistry(), schemes, testBaseURL))
	return r
}

func TestAuthorize_ValidRequest(t *testing.T) {
	scheme := &stubScheme{name: "tencent", authURL: "https://graph.qq.com/oauth2.0/authorize"}
	handler := setupAuthorize(scheme)

	rr := testutil.DoRequest(t, handler, http.MethodGet,
		"/auth/tencent?client_id=website&redirect_uri=https://example.com/callback", nil)

	testutil.AssertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "https://graph.qq.com/oauth2.0/authorize?state=sealed" {
		t.Errorf("unexpected Location %q", loc)
	}
	if scheme.lastReq.CallbackURL != testBaseURL+"/signin-tencent" {
		t.Errorf("expected callback URL on base URL, got %q", scheme.lastReq.CallbackURL)
	}
	if scheme.lastReq.ClientID != "website" || scheme.lastReq.RedirectURI != "https://example.com/callback" {
		t.Errorf("unexpected authorization request %+v", scheme.lastReq)
	}
	if scheme.lastReq.Properties != nil {
		t.Errorf("expected no properties, got %v", scheme.lastReq.Properties)
	}
}

func TestAuthorize_CarriesProperties(t *testing.T) {
	scheme := &stubScheme{name: "tencent", authURL: "https://graph.qq.com/oauth2.0/authorize"}
	handler := setupAuthorize(scheme)

	rr := testutil.DoRequest(t, handler, http.MethodGet,
		"/auth/tencent?client_id=website&redirect_uri=https://example.com/callback&prop_locale=zh-CN&prop_=x&other=y", nil)

	testutil.AssertStatus(t, rr, http.StatusFound)
	props := scheme.lastReq.Properties
	if len(props) != 1 || props["locale"] != "zh-CN" {
		t.Errorf("expected only locale property, got %v", props)
	}
}

func TestAuthorize_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing client_id", "/auth/tencent?redirect_uri=https://example.com/callback", http.StatusBadRequest},
		{"missing redirect_uri", "/auth/tencent?client_id=website", http.StatusBadRequest},
		{"unknown client", "/auth/tencent?client_id=ghost&redirect_uri=https://example.com/callback", http.StatusBadRequest},
		{"redirect not allowed", "/auth/tencent?client_id=website&redirect_uri=https://evil.com/callback", http.StatusBadRequest},
		{"unknown scheme", "/auth/wechat?client_id=website&redirect_uri=https://example.com/callback", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := setupAuthorize(&stubScheme{name: "tencent", authURL: "https://graph.qq.com/oauth2.0/authorize"})
			rr := testutil.DoRequest(t, handler, http.MethodGet, tt.path, nil)
			testutil.AssertStatus(t, rr, tt.status)
		})
	}
}

func TestAuthorize_SchemeFailure(t *testing.T) {
	handler := setupAuthorize(&stubScheme{name: "tencent", authErr: errors.New("sealer broken")})

	rr := testutil.DoRequest(t, handler, http.MethodGet,
		"/auth/tencent?client_id=website&redirect_uri=https://example.com/callback", nil)
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
}
