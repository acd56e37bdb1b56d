package auth

import (
	"context"
	"net/http"
)

// contextKey is package-private so no other package can read or shadow
// the userID we stash in request contexts.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth gates API routes: it reads the session cookie, validates
// the JWT, and stores the userID in the request context. Missing or
// invalid token → 401 and the chain stops.
//
// Use this for /api/* routes, where the caller is fetch() and a JSON 401
// is the right answer. Page routes use RequireAuthPage instead.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireAuthPage gates browser-facing pages: same session check as
// RequireAuth, but an absent or invalid session marker redirects to
// loginURL instead of returning 401.
//
// This is the playground's access guard — a visitor with no session is
// silently sent to the login page before the view (and any chance to
// trigger a run) ever renders. It's a guard clause, not an error: the
// redirect is the normal experience for signed-out visitors.
func RequireAuthPage(tokens *TokenService, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying the given user ID. Handlers get
// it from the middleware in production; tests call this directly.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's ID, or ("", false)
// for an anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads and validates the session cookie.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie — anonymous, not a failure.
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
