package tencentauth

import "net/http"

// CallbackHandler serves the client app's callback URL. It redeems the "code"
// query parameter for a ticket and hands it to onSuccess.
//
// When onError is nil, failures are answered with StatusOf(err) and the
// error text.
func CallbackHandler(
	client *Client,
	onSuccess func(ticket *Ticket, w http.ResponseWriter, r *http.Request),
	onError func(err error, w http.ResponseWriter, r *http.Request),
) http.HandlerFunc {
	if onError == nil {
		onError = defaultOnError
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			onError(&Error{Message: "missing code parameter", StatusCode: http.StatusBadRequest}, w, r)
			return
		}

		ticket, err := client.Exchange(r.Context(), code)
		if err != nil {
			onError(err, w, r)
			return
		}

		onSuccess(ticket, w, r)
	}
}

func defaultOnError(err error, w http.ResponseWriter, _ *http.Request) {
	http.Error(w, err.Error(), StatusOf(err))
}
