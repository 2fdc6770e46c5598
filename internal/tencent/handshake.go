// Package tencent implements the QQ Connect (Tencent) OAuth2 authorization
// code handshake: the authorization redirect, callback validation, the code
// exchange, profile retrieval and ticket assembly.
//
// A Handshake is immutable after New and may serve any number of concurrent
// sign-in attempts. Each attempt is described entirely by its sealed state
// value and the callback query, so no per-attempt server memory is needed
// unless a ReplayGuard is configured.
package tencent

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/logger"
	"github.com/BlackMission/tencentauth/internal/transport"
)

// Outcome labels the terminal result of one handshake step, as reported to an
// Observer and to the logs.
type Outcome string

const (
	OutcomeRedirectIssued      Outcome = "redirect_issued"
	OutcomeDenied              Outcome = "denied"
	OutcomeMalformedCallback   Outcome = "malformed_callback"
	OutcomeInvalidState        Outcome = "invalid_state"
	OutcomeReplayUnavailable   Outcome = "replay_unavailable"
	OutcomeTokenExchangeFailed Outcome = "token_exchange_failed"
	OutcomeProfileFailed       Outcome = "profile_failed"
	OutcomeRejected            Outcome = "rejected"
	OutcomeCancelled           Outcome = "cancelled"
	OutcomeCompleted           Outcome = "completed"
)

// Observer receives handshake telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	HandshakeOutcome(outcome string)
	BackchannelCall(endpoint string, d time.Duration, err error)
}

// Backchannel endpoint labels.
const (
	endpointToken       = "token"
	endpointUserInfo    = "userinfo"
	endpointUserProfile = "user_profile"
)

// Handshake drives the authorization code flow against the provider.
type Handshake struct {
	opts   Options
	client *transport.Client
	now    func() time.Time
}

// New validates opts and builds the backchannel client. Configuration
// problems are reported as domain.ErrConfiguration.
func New(opts Options) (*Handshake, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	topts := transport.Options{
		Timeout:          opts.BackchannelTimeout,
		MaxResponseBytes: opts.MaxResponseBytes,
		RoundTripper:     opts.Backchannel,
		Validator:        opts.CertificateValidator,
	}
	if opts.Observer != nil {
		topts.Observe = opts.Observer.BackchannelCall
	}
	client, err := transport.New(topts)
	if err != nil {
		return nil, err
	}

	return &Handshake{opts: opts, client: client, now: time.Now}, nil
}

// Name is the scheme name the handshake is registered under.
func (h *Handshake) Name() string { return domain.ProviderName }

// CallbackPath is the path the provider redirects back to.
func (h *Handshake) CallbackPath() string { return h.opts.CallbackPath }

// Caption is the display name for sign-in buttons.
func (h *Handshake) Caption() string { return h.opts.Caption }

// Complete runs every callback-side step: callback validation, code exchange,
// profile retrieval and ticket assembly. callbackURL must be the exact
// redirect_uri that was sent on the authorization request.
func (h *Handshake) Complete(ctx context.Context, query url.Values, callbackURL string) (*domain.Ticket, error) {
	log := logger.From(ctx).With(logger.Component("tencent"))

	cb, err := h.ProcessCallback(ctx, query)
	if err != nil {
		return nil, h.fail(log, "callback", callbackOutcome(err), err)
	}
	log = log.With(logger.AttemptID(cb.State.AttemptID), logger.ClientID(cb.State.ClientID))
	ctx = logger.ToContext(ctx, log)

	token, err := h.ExchangeCode(ctx, cb.Code, callbackURL)
	if err != nil {
		return nil, h.fail(log, "token", OutcomeTokenExchangeFailed, err)
	}

	identity, err := h.FetchProfile(ctx, token)
	if err != nil {
		return nil, h.fail(log, "profile", OutcomeProfileFailed, err)
	}

	ticket, err := h.AssembleTicket(ctx, identity, token, cb.State)
	if err != nil {
		return nil, h.fail(log, "ticket", OutcomeRejected, err)
	}

	h.observe(OutcomeCompleted)
	log.Info("handshake completed",
		logger.OpenID(identity.ProviderID),
		logger.Outcome(string(OutcomeCompleted)),
	)
	return ticket, nil
}

func (h *Handshake) fail(log *zap.Logger, stage string, outcome Outcome, err error) error {
	if errors.Is(err, domain.ErrCancelled) {
		outcome = OutcomeCancelled
	}
	h.observe(outcome)

	fields := []zap.Field{logger.Stage(stage), logger.Outcome(string(outcome)), logger.Err(err)}
	switch outcome {
	case OutcomeDenied, OutcomeCancelled:
		log.Info("handshake ended", fields...)
	case OutcomeInvalidState, OutcomeMalformedCallback, OutcomeRejected:
		log.Warn("handshake rejected", fields...)
	default:
		log.Error("handshake failed", append(fields, zap.Bool("retryable", domain.Retryable(err)))...)
	}
	return err
}

func (h *Handshake) observe(outcome Outcome) {
	if h.opts.Observer != nil {
		h.opts.Observer.HandshakeOutcome(string(outcome))
	}
}

func callbackOutcome(err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrProviderDenied):
		return OutcomeDenied
	case errors.Is(err, domain.ErrMalformedCallback):
		return OutcomeMalformedCallback
	case errors.Is(err, domain.ErrTransport):
		return OutcomeReplayUnavailable
	default:
		return OutcomeInvalidState
	}
}
