package auth

import (
	"context"
	"net/url"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Scheme is an external sign-in handshake the server can drive. The Tencent
// handshake is the one implementation.
type Scheme interface {
	Name() string
	Caption() string
	CallbackPath() string
	AuthorizationURL(ctx context.Context, req domain.AuthorizationRequest) (string, error)
	Complete(ctx context.Context, query url.Values, callbackURL string) (*domain.Ticket, error)
}
