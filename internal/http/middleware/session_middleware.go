package middleware

import (
	"context"
	"net/http"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
)

type sessionIDKey struct{}

// SessionParser validates the signed session cookie.
type SessionParser interface {
	Parse(raw string) (*security.SessionClaims, error)
}

// RequireSession lets requests through only with a valid session cookie and
// stores the session id in the request context. Browsers without one are
// sent to the login page.
func RequireSession(tokens SessionParser, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			if raw == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			ctx := context.WithValue(r.Context(), sessionIDKey{}, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey{}).(string)
	return sid, ok && sid != ""
}

// WithSessionID is used by tests and by handlers that mint a session.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sid)
}
