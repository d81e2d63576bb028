// Package api implements the Ansuz REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// accessTokenParam carries the token on the event stream, where EventSource
// clients cannot set headers.
const accessTokenParam = "access_token"

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return tokenAuth{enabled: enabled, token: token}.middleware(false)
}

// StreamAuthMiddleware is AuthMiddleware that also accepts the token as the
// access_token query parameter.
func StreamAuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return tokenAuth{enabled: enabled, token: token}.middleware(true)
}

type tokenAuth struct {
	enabled bool
	token   string
}

func (a tokenAuth) middleware(allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.enabled || a.authorized(r, allowQuery) {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		})
	}
}

func (a tokenAuth) authorized(r *http.Request, allowQuery bool) bool {
	if got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return a.matches(got)
	}
	if allowQuery {
		if got := r.URL.Query().Get(accessTokenParam); got != "" {
			return a.matches(got)
		}
	}
	return false
}

func (a tokenAuth) matches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) == 1
}
