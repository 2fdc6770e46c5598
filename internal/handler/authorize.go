package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BlackMission/tencentauth/internal/auth"
	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/logger"
)

// Authorize handles GET /auth/{scheme}.
// It validates the client and redirect_uri, then redirects to the provider's
// authorization endpoint with a freshly sealed state.
func Authorize(clients *client.Registry, schemes *auth.Registry, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			writeError(w, http.StatusBadRequest, "missing client_id parameter")
			return
		}

		redirectURI := r.URL.Query().Get("redirect_uri")
		if redirectURI == "" {
			writeError(w, http.StatusBadRequest, "missing redirect_uri parameter")
			return
		}

		// Validate client exists
		if _, err := clients.Get(clientID); err != nil {
			writeError(w, http.StatusBadRequest, "unknown client")
			return
		}

		// Validate redirect_uri is allowed
		if err := clients.ValidateCallback(clientID, redirectURI); err != nil {
			writeError(w, http.StatusBadRequest, "redirect_uri not allowed")
			return
		}

		scheme, err := schemes.Get(chi.URLParam(r, "scheme"))
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown sign-in scheme")
			return
		}

		authURL, err := scheme.AuthorizationURL(r.Context(), domain.AuthorizationRequest{
			CallbackURL: baseURL + scheme.CallbackPath(),
			RedirectURI: redirectURI,
			ClientID:    clientID,
			Properties:  properties(r.URL.Query()),
		})
		if err != nil {
			logger.From(r.Context()).Error("building authorization URL", logger.Err(err))
			writeError(w, http.StatusInternalServerError, "failed to generate auth URL")
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// propertyPrefix marks query parameters that are carried through the
// handshake and echoed on the ticket.
const propertyPrefix = "prop_"

func properties(q url.Values) map[string]string {
	var props map[string]string
	for k, v := range q {
		name, ok := strings.CutPrefix(k, propertyPrefix)
		if !ok || name == "" || len(v) == 0 {
			continue
		}
		if props == nil {
			props = make(map[string]string)
		}
		props[name] = v[0]
	}
	return props
}
