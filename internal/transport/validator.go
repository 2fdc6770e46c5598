package transport

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// ErrCertificateRejected is returned by validators when the peer is not trusted.
var ErrCertificateRejected = errors.New("backchannel certificate rejected")

// CertificateValidator is an extra trust check applied to every backchannel
// TLS connection, after the standard chain and hostname verification.
type CertificateValidator interface {
	Validate(cs tls.ConnectionState) error
}

// ValidatorFunc adapts a function to CertificateValidator.
type ValidatorFunc func(cs tls.ConnectionState) error

func (f ValidatorFunc) Validate(cs tls.ConnectionState) error { return f(cs) }

// SPKIPinValidator accepts a connection when any certificate in the verified
// chain has a SHA-256 SubjectPublicKeyInfo hash in the pin set.
type SPKIPinValidator struct {
	pins map[string]struct{}
}

// NewSPKIPinValidator takes base64 (standard encoding) SHA-256 SPKI hashes.
func NewSPKIPinValidator(pins ...string) (*SPKIPinValidator, error) {
	v := &SPKIPinValidator{pins: make(map[string]struct{}, len(pins))}
	for _, p := range pins {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(p)
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("%w: invalid SPKI pin %q", domain.ErrConfiguration, p)
		}
		v.pins[p] = struct{}{}
	}
	if len(v.pins) == 0 {
		return nil, fmt.Errorf("%w: at least one SPKI pin is required", domain.ErrConfiguration)
	}
	return v, nil
}

func (v *SPKIPinValidator) Validate(cs tls.ConnectionState) error {
	for _, chain := range cs.VerifiedChains {
		for _, cert := range chain {
			if _, ok := v.pins[SPKIHash(cert.RawSubjectPublicKeyInfo)]; ok {
				return nil
			}
		}
	}
	return ErrCertificateRejected
}

// SPKIHash returns the pin form of a DER encoded SubjectPublicKeyInfo.
func SPKIHash(spki []byte) string {
	sum := sha256.Sum256(spki)
	return base64.StdEncoding.EncodeToString(sum[:])
}
