package apiclient

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"peelojuice-staff/internal/sessionstore"
)

const requestIDHeader = "X-Request-ID"

// bearerTransport looks the access token up in the session store on every
// request; nothing is cached so a cleared store takes effect immediately.
type bearerTransport struct {
	store  sessionstore.Store
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	values, err := t.store.Get(req.Context(), []string{sessionstore.KeyAccessToken})
	if err != nil {
		t.logger.Warn("session store unreadable; sending request without token", "error", err)
		return t.next.RoundTrip(req)
	}

	token := values[sessionstore.KeyAccessToken]
	if token == "" {
		return t.next.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(authed)
	return t.next.RoundTrip(authed)
}
