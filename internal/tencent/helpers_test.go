package tencent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/state"
	"github.com/BlackMission/tencentauth/pkg/testutil"
)

const testCallbackURL = "https://login.example.com/signin-tencent"

var testStateSecret = []byte("0123456789abcdef0123456789abcdef")

func newFakeProvider(t *testing.T) *testutil.FakeProvider {
	return testutil.NewFakeProvider(t)
}

func providerOptions(p *testutil.FakeProvider, sealer state.Sealer) Options {
	opts := DefaultOptions()
	opts.AppID = "app1"
	opts.AppSecret = "secret1"
	opts.Sealer = sealer
	opts.BackchannelTimeout = 5 * time.Second
	opts.Endpoints = Endpoints{
		AuthorizationEndpoint: p.URL(testutil.AuthorizePath),
		TokenEndpoint:         p.URL(testutil.TokenPath),
		UserInfoEndpoint:      p.URL(testutil.MePath),
	}
	return opts
}

func newSealer(t *testing.T) *state.SignedSealer {
	t.Helper()
	s, err := state.NewSignedSealer(testStateSecret)
	require.NoError(t, err)
	return s
}

func newHandshake(t *testing.T, opts Options) *Handshake {
	t.Helper()
	h, err := New(opts)
	require.NoError(t, err)
	return h
}

func sealState(t *testing.T, s state.Sealer, redirect string) string {
	t.Helper()
	nonce, err := state.NewNonce()
	require.NoError(t, err)
	sealed, err := s.Seal(domain.StatePayload{
		AttemptID:   "attempt-1",
		ClientID:    "website",
		RedirectURI: redirect,
		Nonce:       nonce,
	})
	require.NoError(t, err)
	return sealed
}

// recordingObserver collects reported outcomes.
type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []string
	endpoints []string
}

func (o *recordingObserver) HandshakeOutcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) BackchannelCall(endpoint string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endpoints = append(o.endpoints, endpoint)
}
