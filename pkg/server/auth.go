package server

import (
	"crypto/subtle"
	"net/http"
)

// authorized reports whether r carries the configured shared secret. An
// empty secret disables the check.
func (s *Server) authorized(r *http.Request) bool {
	if s.sharedSecret == "" {
		return true
	}
	given := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.sharedSecret)) == 1
}
