package state

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// JWTAudience is the audience stamped on state JWTs.
const JWTAudience = "tencent-state"

type stateClaims struct {
	ClientID    string            `json:"cid,omitempty"`
	RedirectURI string            `json:"rdr"`
	Nonce       string            `json:"nonce"`
	Properties  map[string]string `json:"prp,omitempty"`
	jwtv5.RegisteredClaims
}

// JWTSealer signs the payload as an HS256 JWT. Useful when another service
// in the deployment already inspects state values with a JWT library.
type JWTSealer struct {
	policy
	key []byte
}

// NewJWTSealer derives an HS256 key from secret.
func NewJWTSealer(secret []byte) (*JWTSealer, error) {
	key, err := deriveKey(secret, "jwt", 32)
	if err != nil {
		return nil, err
	}
	return &JWTSealer{policy: newPolicy(), key: key}, nil
}

func (s *JWTSealer) Seal(payload domain.StatePayload) (string, error) {
	s.stamp(&payload)
	now := s.now()

	claims := stateClaims{
		ClientID:    payload.ClientID,
		RedirectURI: payload.RedirectURI,
		Nonce:       payload.Nonce,
		Properties:  payload.Properties,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        payload.AttemptID,
			Audience:  jwtv5.ClaimStrings{JWTAudience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(payload.ExpiresAt),
		},
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing state: %w", err)
	}
	return signed, nil
}

func (s *JWTSealer) Unseal(token string) (*domain.StatePayload, error) {
	var claims stateClaims
	_, err := jwtv5.ParseWithClaims(token, &claims,
		func(*jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithAudience(JWTAudience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithStrictDecoding(),
		jwtv5.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return nil, domain.ErrExpiredState
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return nil, domain.ErrMalformedState
	case err != nil:
		return nil, domain.ErrInvalidState
	}

	payload := &domain.StatePayload{
		AttemptID:   claims.ID,
		ClientID:    claims.ClientID,
		RedirectURI: claims.RedirectURI,
		Nonce:       claims.Nonce,
		Properties:  claims.Properties,
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}
	if err := s.check(payload); err != nil {
		return nil, err
	}
	return payload, nil
}
