package delivery

import (
	"context"
	"net/http"
	"strconv"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserMiddleware trusts the authenticating proxy in front of the service:
// every request must carry the caller's numeric id in X-User-ID.
func UserMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				http.Error(w, "missing user", http.StatusUnauthorized)
				return
			}

			userID, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid user", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the caller id placed in the context by UserMiddleware.
func UserID(r *http.Request) (int, bool) {
	id, ok := r.Context().Value(userIDKey).(int)
	return id, ok
}
