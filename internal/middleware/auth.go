package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/model"
)

// SessionCookieName holds the session id issued after a magic-link login.
const SessionCookieName = "kody_session"

type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*model.User, error)
}

// RequireAuth resolves the session cookie to a user and stores it in the
// request context. Unknown and expired sessions get 401 and the cookie is
// cleared.
func RequireAuth(sessions SessionResolver, rec metrics.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				rec.SessionResolved("missing")
				unauthorized(w, "Please log in.")
				return
			}

			user, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				kind := auth.KindOf(err)
				rec.SessionResolved(kind.String())
				switch kind {
				case auth.KindSessionNotFound, auth.KindSessionExpired:
					ClearSessionCookie(w)
					unauthorized(w, auth.UserMessage(err))
				default:
					logger.Error("resolve session", "error", err)
					writeError(w, http.StatusInternalServerError, auth.UserMessage(err))
				}
				return
			}
			rec.SessionResolved("ok")

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{User: user, SessionID: cookie.Value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
