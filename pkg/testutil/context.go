package testutil

import (
	"net/http"

	id "kudose/pkg/domain"
	"kudose/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context, the
// way the auth middleware would. Invalid ids are silently ignored.
func WithPrincipal(req *http.Request, principalID, email string) *http.Request {
	parsed, err := id.ParsePrincipalID(principalID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), parsed, email))
}
