package exchange

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/BlackMission/tencentauth/internal/domain"
)

var testKey = []byte("01234567890123456789012345678901") // 32 bytes

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testKey)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return c
}

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		Provider: domain.ProviderName,
		ClientID: "website",
		Identity: domain.Identity{
			ProviderID: "U42",
			Attributes: map[string]string{"openid": "U42", "nickname": "Alice"},
		},
		AccessToken:    "tok1",
		ExpiresAt:      time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		RedirectTarget: "https://example.com/home",
		Claims:         domain.Claims{"sub": "U42", "name": "Alice", "provider": "tencent"},
		IssuedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	code, err := c.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	got, err := c.Decode(code)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if got.ClientID != "website" {
		t.Errorf("expected ClientID 'website', got %q", got.ClientID)
	}
	if got.Ticket.Identity.ProviderID != "U42" {
		t.Errorf("expected provider id 'U42', got %q", got.Ticket.Identity.ProviderID)
	}
	if got.Ticket.Claims["name"] != "Alice" {
		t.Errorf("expected name claim 'Alice', got %q", got.Ticket.Claims["name"])
	}
	if got.Ticket.AccessToken != "tok1" {
		t.Errorf("expected access token to survive, got %q", got.Ticket.AccessToken)
	}
	if !got.Ticket.ExpiresAt.Equal(sampleTicket().ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", sampleTicket().ExpiresAt, got.Ticket.ExpiresAt)
	}
}

func TestCodeIsOpaque(t *testing.T) {
	c := newTestCodec(t)

	code, err := c.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	raw, _ := base64.RawURLEncoding.DecodeString(code)
	for _, secret := range []string{"tok1", "Alice", "U42"} {
		if bytes.Contains(raw, []byte(secret)) {
			t.Errorf("exchange code leaks %q", secret)
		}
	}
}

func TestExpiredCode(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	code, err := c.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	// Advance time past 30-second expiry
	c.now = func() time.Time { return now.Add(31 * time.Second) }

	_, err = c.Decode(code)
	if !errors.Is(err, domain.ErrExpiredExchangeCode) {
		t.Errorf("expected ErrExpiredExchangeCode, got %v", err)
	}
}

func TestWrongKey(t *testing.T) {
	c1 := newTestCodec(t)
	c2, err := NewCodec([]byte("different-key-567890123456789012"))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	code, err := c1.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	_, err = c2.Decode(code)
	if !errors.Is(err, domain.ErrInvalidExchangeCode) {
		t.Errorf("expected ErrInvalidExchangeCode, got %v", err)
	}
}

func TestTamperedCiphertext(t *testing.T) {
	c := newTestCodec(t)

	code, err := c.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	raw, _ := base64.RawURLEncoding.DecodeString(code)
	raw[len(raw)-1] ^= 0xFF // flip last byte
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	_, err = c.Decode(tampered)
	if !errors.Is(err, domain.ErrInvalidExchangeCode) {
		t.Errorf("expected ErrInvalidExchangeCode, got %v", err)
	}
}

func TestEveryCharacterBitFlipRejected(t *testing.T) {
	c := newTestCodec(t)

	code, err := c.Encode("website", sampleTicket())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	for pos := 0; pos < len(code); pos++ {
		for bit := 0; bit < 8; bit++ {
			tampered := []byte(code)
			tampered[pos] ^= 1 << bit

			if _, err := c.Decode(string(tampered)); !errors.Is(err, domain.ErrInvalidExchangeCode) {
				t.Fatalf("flip pos=%d bit=%d: expected ErrInvalidExchangeCode, got %v", pos, bit, err)
			}
		}
	}
}

func TestMalformedInput(t *testing.T) {
	c := newTestCodec(t)

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"not base64", "!!!not-valid!!!"},
		{"too short", base64.RawURLEncoding.EncodeToString([]byte("short"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.code)
			if !errors.Is(err, domain.ErrInvalidExchangeCode) {
				t.Errorf("expected ErrInvalidExchangeCode, got %v", err)
			}
		})
	}
}

func TestClientIDPreserved(t *testing.T) {
	c := newTestCodec(t)

	for _, cid := range []string{"website", "admin-panel", "game-launcher"} {
		code, err := c.Encode(cid, sampleTicket())
		if err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		got, err := c.Decode(code)
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if got.ClientID != cid {
			t.Errorf("expected ClientID %q, got %q", cid, got.ClientID)
		}
	}
}

func TestInvalidKeySize(t *testing.T) {
	_, err := NewCodec([]byte("too-short"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for invalid key size, got %v", err)
	}
}
