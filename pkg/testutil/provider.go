package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Paths served by FakeProvider, mirroring graph.qq.com.
const (
	AuthorizePath   = "/oauth2.0/authorize"
	TokenPath       = "/oauth2.0/token"
	MePath          = "/oauth2.0/me"
	UserProfilePath = "/user/get_user_info"
)

// RecordedRequest is a request observed by FakeProvider, with its form parsed.
type RecordedRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Form   url.Values
}

// FakeProvider emulates the QQ Connect endpoints. By default it issues
// access token "tok1" for any code, reports openid "U42" in a JSONP envelope,
// and returns nickname "Alice". Replace the handler fields before the first
// request to script other answers.
type FakeProvider struct {
	Server *httptest.Server

	Token   http.HandlerFunc
	Me      http.HandlerFunc
	Profile http.HandlerFunc

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeProvider starts a FakeProvider that is closed with the test.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	p := &FakeProvider{
		Token: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("access_token=tok1&expires_in=7200&refresh_token=ref1"))
		},
		Me: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`callback( {"client_id":"app1","openid":"U42"} );`))
		},
		Profile: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ret":0,"msg":"","nickname":"Alice","figureurl_qq_1":"https://q.qlogo.cn/a.png"}`))
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, p.record(func() http.HandlerFunc { return p.Token }))
	mux.HandleFunc(MePath, p.record(func() http.HandlerFunc { return p.Me }))
	mux.HandleFunc(UserProfilePath, p.record(func() http.HandlerFunc { return p.Profile }))
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the absolute URL of path on the fake.
func (p *FakeProvider) URL(path string) string {
	return p.Server.URL + path
}

// Requests returns a copy of every request received so far.
func (p *FakeProvider) Requests() []RecordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RecordedRequest(nil), p.requests...)
}

// LastRequest returns the most recent request, failing the test if none arrived.
func (p *FakeProvider) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()
	reqs := p.Requests()
	if len(reqs) == 0 {
		t.Fatal("fake provider received no requests")
	}
	return reqs[len(reqs)-1]
}

func (p *FakeProvider) record(next func() http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		p.mu.Lock()
		p.requests = append(p.requests, RecordedRequest{
			Method: r.Method,
			URL:    r.URL,
			Header: r.Header.Clone(),
			Form:   r.Form,
		})
		h := next()
		p.mu.Unlock()
		h(w, r)
	}
}
