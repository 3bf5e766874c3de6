package testutil

import (
	"net/http"
	"time"

	"genkan/pkg/domain"
	"genkan/pkg/requestcontext"
)

// WithRole attaches an actor role to the request context, simulating what the
// role middleware does for incoming requests.
func WithRole(req *http.Request, r domain.Role) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), r))
}

// WithTime pins the request time, so handlers under test observe a fixed
// clock instead of time.Now.
func WithTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
