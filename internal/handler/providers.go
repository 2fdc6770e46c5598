package handler

import (
	"net/http"

	"github.com/BlackMission/tencentauth/internal/auth"
)

type schemeInfo struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Path    string `json:"path"`
}

// Providers handles GET /providers, listing the sign-in schemes a client can
// send users to.
func Providers(schemes *auth.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := schemes.All()
		out := make([]schemeInfo, 0, len(all))
		for _, s := range all {
			out = append(out, schemeInfo{Name: s.Name(), Caption: s.Caption(), Path: "/auth/" + s.Name()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
