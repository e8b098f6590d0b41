// ABOUTME: Pre-shared credential check for administrative endpoints
// ABOUTME: Accepts the token via header or query parameter, compared in constant time

package server

import (
	"crypto/subtle"
	"net/http"
)

// tokenHeader is the header carrying the administrative credential.
const tokenHeader = "X-Auth-Token"

// requireToken wraps a handler with the pre-shared credential check. The
// token may arrive in the X-Auth-Token header or the token query parameter.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get(tokenHeader)
		if supplied == "" {
			supplied = r.URL.Query().Get("token")
		}
		if supplied == "" {
			s.sendJSONError(w, http.StatusUnauthorized, "missing credential")
			return
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.Admin.Token)) != 1 {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid credential")
			return
		}

		next(w, r)
	}
}
