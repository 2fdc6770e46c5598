// Package state seals the per-attempt StatePayload into the opaque string
// carried by the provider's state parameter, and guards against replays.
package state

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/BlackMission/tencentauth/internal/domain"
)

const (
	// DefaultTTL bounds how long a user may stay on the provider's login page.
	DefaultTTL = 10 * time.Minute
	nonceBytes = 16
)

// Sealer turns a StatePayload into a tamper-evident string and back.
// Unseal must report every failure as an error matching domain.ErrInvalidState.
type Sealer interface {
	Seal(payload domain.StatePayload) (string, error)
	Unseal(token string) (*domain.StatePayload, error)
}

// NewNonce returns a random anti-forgery value.
func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// policy is the expiry rule shared by every sealer.
type policy struct {
	ttl time.Duration
	now func() time.Time
}

func newPolicy() policy {
	return policy{ttl: DefaultTTL, now: time.Now}
}

// SetNow overrides the time function (for testing).
func (p *policy) SetNow(fn func() time.Time) {
	p.now = fn
}

// SetTTL changes how long sealed states stay valid.
func (p *policy) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		p.ttl = ttl
	}
}

func (p *policy) stamp(payload *domain.StatePayload) {
	payload.ExpiresAt = p.now().Add(p.ttl).UTC()
}

func (p *policy) check(payload *domain.StatePayload) error {
	if payload.Nonce == "" {
		return domain.ErrMalformedState
	}
	if p.now().After(payload.ExpiresAt) {
		return domain.ErrExpiredState
	}
	return nil
}

// deriveKey expands the configured secret into a purpose-bound key so the
// same secret never keys two different primitives.
func deriveKey(secret []byte, purpose string, size int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: state signing key is empty", domain.ErrConfiguration)
	}
	key := make([]byte, size)
	r := hkdf.New(sha256.New, secret, nil, []byte("tencentauth/state/"+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", purpose, err)
	}
	return key, nil
}
