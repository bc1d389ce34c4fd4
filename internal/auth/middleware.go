package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/HabitLens/internal/util"
)

const (
	// GuestCookieName holds the guest identifier of unauthenticated visitors.
	GuestCookieName   = "habitlens_guest"
	guestCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext returns the user id stored by Middleware, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware identifies the caller. A valid "Authorization: Bearer" token wins; an invalid one
// is rejected with 401. Without a token the guest cookie is reused or issued. secure controls
// the cookie's Secure flag.
func Middleware(secret []byte, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok && len(secret) > 0 {
				userID, err := ParseToken(secret, token)
				if err != nil {
					slog.Debug("auth.Middleware: rejected token", "error", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"status":"error","message":"invalid token"}`))
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
				return
			}

			userID := guestID(w, r, secure)
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

// guestID returns the cookie's guest id, issuing a new one when absent or malformed.
// The cookie is refreshed on every request.
func guestID(w http.ResponseWriter, r *http.Request, secure bool) string {
	id := ""
	if c, err := r.Cookie(GuestCookieName); err == nil && util.IsGuestID(c.Value) {
		id = c.Value
	} else {
		id = util.GenerateGuestID()
		slog.Debug("auth.Middleware: issued guest id", "userID", id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(guestCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(guestCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id
}
