package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/exchange"
	"github.com/BlackMission/tencentauth/internal/logger"
)

// Exchange handles GET /exchange.
// A client app redeems the code from its callback for the sign-in ticket,
// authenticating with its API key as a bearer token. Only the client that
// started the sign-in can redeem its code.
func Exchange(clients *client.Registry, codec *exchange.Codec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.From(r.Context())

		code := r.URL.Query().Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, "missing code parameter")
			return
		}

		apiKey, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}

		ticket, err := redeem(clients, codec, apiKey, code)
		if err != nil {
			status, msg := exchangeStatus(err)
			log.Info("exchange rejected", logger.Status(status), logger.Err(err))
			writeError(w, status, msg)
			return
		}

		log.Info("ticket redeemed",
			logger.ClientID(ticket.ClientID),
			logger.OpenID(ticket.Identity.ProviderID),
		)
		writeJSON(w, http.StatusOK, ticket)
	}
}

// redeem opens the code and checks it belongs to the client owning apiKey.
func redeem(clients *client.Registry, codec *exchange.Codec, apiKey, code string) (*domain.Ticket, error) {
	payload, err := codec.Decode(code)
	if err != nil {
		return nil, err
	}

	app, err := clients.GetByAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	if app.ID != payload.ClientID {
		return nil, fmt.Errorf("%w: presented by %q", domain.ErrExchangeClientMismatch, app.ID)
	}
	return &payload.Ticket, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
