package tencent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/state"
	"github.com/BlackMission/tencentauth/internal/transport"
)

// QQ Connect endpoints.
const (
	DefaultAuthorizationEndpoint = "https://graph.qq.com/oauth2.0/authorize"
	DefaultTokenEndpoint         = "https://graph.qq.com/oauth2.0/token"
	DefaultUserInfoEndpoint      = "https://graph.qq.com/oauth2.0/me"

	// DefaultUserProfileEndpoint is not enabled by default. Set
	// Endpoints.UserProfileEndpoint to it to merge nickname, avatar and
	// similar fields into the identity.
	DefaultUserProfileEndpoint = "https://graph.qq.com/user/get_user_info"
)

const (
	DefaultCallbackPath   = "/signin-tencent"
	DefaultScope          = "get_user_info"
	DefaultScopeSeparator = ","
	DefaultIDField        = "openid"
	DefaultCaption        = "Tencent"
)

// TokenPlacement selects how the access token is attached to profile requests.
type TokenPlacement string

const (
	PlacementQuery  TokenPlacement = "query"
	PlacementHeader TokenPlacement = "header"
)

// Endpoints are the provider URLs used during the handshake.
type Endpoints struct {
	AuthorizationEndpoint string `validate:"required,url"`
	TokenEndpoint         string `validate:"required,url"`
	UserInfoEndpoint      string `validate:"required,url"`
	UserProfileEndpoint   string `validate:"omitempty,url"`
}

// Options is the handshake configuration. It is copied by New and never
// mutated afterwards, so one Handshake serves concurrent attempts.
type Options struct {
	AppID     string
	AppSecret string

	// Caption is the display text for sign-in buttons.
	Caption string

	Endpoints Endpoints

	// Scope is joined with ScopeSeparator, "," by QQ convention.
	Scope          []string
	ScopeSeparator string

	CallbackPath string `validate:"startswith=/"`

	// BackchannelTimeout bounds each token and profile call.
	BackchannelTimeout time.Duration `validate:"gte=0"`
	MaxResponseBytes   int64         `validate:"gte=0"`

	// Backchannel replaces the default pooled transport. It must be an
	// *http.Transport when CertificateValidator is set.
	Backchannel          http.RoundTripper
	CertificateValidator transport.CertificateValidator

	// TokenRequestMethod is POST (form body) or GET (query string).
	TokenRequestMethod   string         `validate:"oneof=GET POST"`
	AccessTokenPlacement TokenPlacement `validate:"oneof=query header"`

	// IDField names the profile attribute holding the stable user id.
	IDField string `validate:"required"`

	Sealer      state.Sealer
	ReplayGuard state.ReplayGuard

	ClaimMapper ClaimMapper
	Enricher    Enricher
	Observer    Observer
}

// DefaultOptions returns Options populated with the provider's documented
// endpoints and defaults. AppID, AppSecret and Sealer still need to be set.
func DefaultOptions() Options {
	return Options{
		Caption: DefaultCaption,
		Endpoints: Endpoints{
			AuthorizationEndpoint: DefaultAuthorizationEndpoint,
			TokenEndpoint:         DefaultTokenEndpoint,
			UserInfoEndpoint:      DefaultUserInfoEndpoint,
		},
		Scope:                []string{DefaultScope},
		ScopeSeparator:       DefaultScopeSeparator,
		CallbackPath:         DefaultCallbackPath,
		BackchannelTimeout:   transport.DefaultTimeout,
		MaxResponseBytes:     transport.DefaultMaxResponseBytes,
		TokenRequestMethod:   http.MethodPost,
		AccessTokenPlacement: PlacementQuery,
		IDField:              DefaultIDField,
	}
}

// withDefaults fills zero values so partially populated Options behave like
// DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Caption == "" {
		o.Caption = d.Caption
	}
	if o.Endpoints.AuthorizationEndpoint == "" {
		o.Endpoints.AuthorizationEndpoint = d.Endpoints.AuthorizationEndpoint
	}
	if o.Endpoints.TokenEndpoint == "" {
		o.Endpoints.TokenEndpoint = d.Endpoints.TokenEndpoint
	}
	if o.Endpoints.UserInfoEndpoint == "" {
		o.Endpoints.UserInfoEndpoint = d.Endpoints.UserInfoEndpoint
	}
	if len(o.Scope) == 0 {
		o.Scope = d.Scope
	}
	o.Scope = append([]string(nil), o.Scope...)
	if o.ScopeSeparator == "" {
		o.ScopeSeparator = d.ScopeSeparator
	}
	if o.CallbackPath == "" {
		o.CallbackPath = d.CallbackPath
	}
	if o.BackchannelTimeout == 0 {
		o.BackchannelTimeout = d.BackchannelTimeout
	}
	if o.MaxResponseBytes == 0 {
		o.MaxResponseBytes = d.MaxResponseBytes
	}
	o.TokenRequestMethod = strings.ToUpper(o.TokenRequestMethod)
	if o.TokenRequestMethod == "" {
		o.TokenRequestMethod = d.TokenRequestMethod
	}
	if o.AccessTokenPlacement == "" {
		o.AccessTokenPlacement = d.AccessTokenPlacement
	}
	if o.IDField == "" {
		o.IDField = d.IDField
	}
	if o.ClaimMapper == nil {
		o.ClaimMapper = DefaultClaimMapper
	}
	return o
}

var validate = validator.New()

func (o Options) validate() error {
	if strings.TrimSpace(o.AppID) == "" {
		return fmt.Errorf("%w: AppID must be provided", domain.ErrConfiguration)
	}
	if strings.TrimSpace(o.AppSecret) == "" {
		return fmt.Errorf("%w: AppSecret must be provided", domain.ErrConfiguration)
	}
	if o.Sealer == nil {
		return fmt.Errorf("%w: a state Sealer must be provided", domain.ErrConfiguration)
	}

	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return nil
}
