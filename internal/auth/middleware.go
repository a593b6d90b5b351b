package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
)

// CookieName is the session cookie set on every browser.
const CookieName = "wellness_session"

// contextKey is unexported so only this package can read or write the
// session id stored in a request context.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// Sessions makes sure every request carries a session id.
//
// A valid cookie yields its id. A missing, expired or forged cookie gets a
// brand-new id and a fresh cookie; the old one is simply replaced. The
// middleware never rejects a request: "not logged in" is decided later by
// whether a UserRecord exists for the id.
//
// The cookie has no Max-Age, so browsers drop it when they close. The server
// side record expires on its own TTL. With trustProxy set, X-Forwarded-Proto
// decides whether the cookie is marked Secure.
func Sessions(tokens *TokenService, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				sessionID = xid.New().String()

				token, err := tokens.Generate(sessionID)
				if err != nil {
					logger.Error("issuing session token", slog.String("error", err.Error()))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				setSessionCookie(w, token, IsSecureRequest(r, trustProxy))
				logger.Debug("new session issued", slog.String("session", sessionID))
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// SessionIDFromContext returns the id placed by Sessions.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithSessionID stores a session id in ctx. Handlers get it from Sessions;
// tests call it directly.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}

func setSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsSecureRequest reports whether the client reached us over HTTPS, either
// directly or, when trustProxy is set, through a proxy that sets
// X-Forwarded-Proto.
func IsSecureRequest(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && r.Header.Get("X-Forwarded-Proto") == "https"
}
