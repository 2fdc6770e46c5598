package handler

import (
	"net/http"
	"net/url"

	"github.com/BlackMission/tencentauth/internal/auth"
	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/exchange"
	"github.com/BlackMission/tencentauth/internal/logger"
)

// Callback handles GET on the scheme's callback path.
// It completes the handshake, seals the ticket into an exchange code, and
// redirects back to the client with it.
func Callback(scheme auth.Scheme, clients *client.Registry, codec *exchange.Codec, baseURL string) http.HandlerFunc {
	callbackURL := baseURL + scheme.CallbackPath()

	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.From(r.Context())

		ticket, err := scheme.Complete(r.Context(), r.URL.Query(), callbackURL)
		if err != nil {
			status, msg := handshakeStatus(err)
			writeError(w, status, msg)
			return
		}

		// An enrichment hook may have changed the target; it must still be
		// registered for the client.
		if err := clients.ValidateCallback(ticket.ClientID, ticket.RedirectTarget); err != nil {
			log.Warn("redirect target rejected",
				logger.ClientID(ticket.ClientID),
				logger.Err(err),
			)
			writeError(w, http.StatusForbidden, "redirect target not allowed")
			return
		}

		code, err := codec.Encode(ticket.ClientID, *ticket)
		if err != nil {
			log.Error("sealing exchange code", logger.Err(err))
			writeError(w, http.StatusInternalServerError, "failed to create exchange code")
			return
		}

		redirectURL, err := url.Parse(ticket.RedirectTarget)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "invalid redirect URI")
			return
		}
		q := redirectURL.Query()
		q.Set("code", code)
		redirectURL.RawQuery = q.Encode()

		http.Redirect(w, r, redirectURL.String(), http.StatusFound)
	}
}
