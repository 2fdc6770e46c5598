package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackMission/tencentauth/internal/domain"
)

func TestSPKIPinValidator_Pinned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	pin := SPKIHash(srv.Certificate().RawSubjectPublicKeyInfo)
	v, err := NewSPKIPinValidator(pin)
	require.NoError(t, err)

	c, err := New(Options{RoundTripper: srv.Client().Transport, Validator: v})
	require.NoError(t, err)

	resp, err := get(t, c, context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestSPKIPinValidator_Mismatch(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	v, err := NewSPKIPinValidator(SPKIHash([]byte("some other key")))
	require.NoError(t, err)

	c, err := New(Options{RoundTripper: srv.Client().Transport, Validator: v})
	require.NoError(t, err)

	_, err = get(t, c, context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, ErrCertificateRejected)
}

func TestNewSPKIPinValidator_InvalidPins(t *testing.T) {
	_, err := NewSPKIPinValidator()
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewSPKIPinValidator("not base64!")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewSPKIPinValidator("c2hvcnQ=")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
