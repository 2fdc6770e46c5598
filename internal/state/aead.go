package state

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// stateAAD binds ciphertexts to this use so an exchange code or any other
// blob sealed under a related key is never accepted as state.
var stateAAD = []byte("tencentauth-state-v1")

// AEADSealer encrypts the payload with AES-256-GCM so the return URL and
// properties stay confidential while the token transits the provider.
type AEADSealer struct {
	policy
	aead cipher.AEAD
}

// NewAEADSealer derives an AES-256 key from secret.
func NewAEADSealer(secret []byte) (*AEADSealer, error) {
	key, err := deriveKey(secret, "aead", 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AEADSealer{policy: newPolicy(), aead: aead}, nil
}

func (s *AEADSealer) Seal(payload domain.StatePayload) (string, error) {
	s.stamp(&payload)

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling state payload: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	// nonce || ciphertext+tag
	sealed := s.aead.Seal(nonce, nonce, plaintext, stateAAD)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *AEADSealer) Unseal(token string) (*domain.StatePayload, error) {
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, domain.ErrMalformedState
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, stateAAD)
	if err != nil {
		return nil, domain.ErrInvalidState
	}

	var payload domain.StatePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, domain.ErrMalformedState
	}
	if err := s.check(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
