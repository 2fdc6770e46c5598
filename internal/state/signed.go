package state

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// SignedSealer produces HMAC-SHA256 signed state tokens: base64url(payload).base64url(mac).
// The payload is readable by anyone holding the token; use AEADSealer to hide it.
type SignedSealer struct {
	policy
	key []byte
}

// NewSignedSealer derives an HMAC key from secret.
func NewSignedSealer(secret []byte) (*SignedSealer, error) {
	key, err := deriveKey(secret, "hmac", sha256.Size)
	if err != nil {
		return nil, err
	}
	return &SignedSealer{policy: newPolicy(), key: key}, nil
}

func (s *SignedSealer) Seal(payload domain.StatePayload) (string, error) {
	s.stamp(&payload)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling state payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	return encoded + "." + s.sign(encoded), nil
}

func (s *SignedSealer) Unseal(token string) (*domain.StatePayload, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return nil, domain.ErrMalformedState
	}

	if !hmac.Equal([]byte(sig), []byte(s.sign(encoded))) {
		return nil, domain.ErrInvalidState
	}

	data, err := base64.RawURLEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrMalformedState
	}

	var payload domain.StatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, domain.ErrMalformedState
	}
	if err := s.check(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (s *SignedSealer) sign(data string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
