package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"coursedrive/internal/auth"
	"coursedrive/internal/httputil"
)

// AuthOptions configures where the session token is read from
type AuthOptions struct {
	// CookieName is the session cookie checked when no Authorization header is sent
	CookieName string
	// PublicPaths are served without a session (exact path match)
	PublicPaths []string
}

// Auth verifies the session token and stores the user id (the sub claim) in the
// request context. Requests without a valid token get a 401 problem response.
func Auth(verifier auth.JWTVerifier, opts AuthOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(opts.PublicPaths))
	for _, p := range opts.PublicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r, opts.CookieName)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("session rejected",
					"path", r.URL.Path,
					"request_id", httputil.GetRequestID(r),
				)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

// extractToken reads a Bearer token, falling back to the session cookie
func extractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}
