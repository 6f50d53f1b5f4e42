package middleware

import (
	"context"
	"net/http"

	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/httpext"
	"github.com/regscout/regscout/pkg/logger"
)

type contextKey string

const (
	sessionKey contextKey = "session"
)

// RequireSession resolves the session cookie and stores the session in the
// request context. Requests without a live session get a 401.
func RequireSession(sessionService *session.Service) func(http.Handler) http.Handler {
	log := logger.For(logger.MIDDLEWARE)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionService.ValidateSession(r)
			if err != nil {
				if session.IsNotFound(err) {
					httpext.JsonError(w, "No active session", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to resolve session")
				httpext.JsonError(w, "Failed to load session", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*session.Session)
	return sess, ok && sess != nil
}
