package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/tencent"
)

var _ Scheme = (*tencent.Handshake)(nil)

type mockScheme struct {
	name string
	path string
}

func (m *mockScheme) Name() string { return m.name }
func (m *mockScheme) Caption() string { return m.name }
func (m *mockScheme) CallbackPath() string { return m.path }
func (m *mockScheme) AuthorizationURL(ctx context.Context, req domain.AuthorizationRequest) (string, error) {
	return "https://example.com/auth", nil
}
func (m *mockScheme) Complete(ctx context.Context, query url.Values, callbackURL string) (*domain.Ticket, error) {
	return nil, nil
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	s := &mockScheme{name: "tencent", path: "/signin-tencent"}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	got, err := r.Get("tencent")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name() != "tencent" {
		t.Errorf("expected 'tencent', got %q", got.Name())
	}
}

func TestUnknownScheme(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("unknown")
	if !errors.Is(err, domain.ErrSchemeNotFound) {
		t.Errorf("expected ErrSchemeNotFound, got %v", err)
	}
}

func TestDuplicateScheme(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&mockScheme{name: "tencent", path: "/signin-tencent"}); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	err := r.Register(&mockScheme{name: "tencent", path: "/signin-qq"})
	if !errors.Is(err, domain.ErrDuplicateScheme) {
		t.Errorf("expected ErrDuplicateScheme, got %v", err)
	}
}

func TestDuplicateCallbackPath(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&mockScheme{name: "tencent", path: "/signin"}); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	err := r.Register(&mockScheme{name: "wechat", path: "/signin"})
	if !errors.Is(err, domain.ErrDuplicateScheme) {
		t.Errorf("expected ErrDuplicateScheme, got %v", err)
	}
}

func TestAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockScheme{name: "wechat", path: "/signin-wechat"})
	r.Register(&mockScheme{name: "tencent", path: "/signin-tencent"})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 schemes, got %d", len(all))
	}
	if all[0].Name() != "tencent" || all[1].Name() != "wechat" {
		t.Errorf("expected [tencent wechat], got [%s %s]", all[0].Name(), all[1].Name())
	}
}
