package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"fincal/pkg/logger"
)

// AuthMiddleware checks a static bearer token
type AuthMiddleware struct {
	token []byte
	log   *logger.Logger
}

// NewAuthMiddleware creates a new auth middleware. An empty token rejects every request.
func NewAuthMiddleware(token string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		token: []byte(token),
		log:   log.With("middleware", "auth"),
	}
}

// Handler wraps next with bearer token authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || len(m.token) == 0 || subtle.ConstantTimeCompare([]byte(provided), m.token) != 1 {
			m.log.Warnw("Rejected admin request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"has_header", ok,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="fincal"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
