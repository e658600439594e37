package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const requesterKey contextKey = "requester"

// Requester extracts the authenticated user from the X-User-ID header set
// by the upstream gateway and stores it on the request context. Requests
// without it are rejected; this service never sees anonymous traffic.
func Requester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			writeEnvelope(w, http.StatusUnauthorized, "UNAUTHENTICATED", "X-User-ID header required")
			return
		}

		ctx := context.WithValue(r.Context(), requesterKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequesterID returns the user stored by Requester. It is empty only on
// routes not behind the middleware.
func RequesterID(r *http.Request) string {
	id, _ := r.Context().Value(requesterKey).(string)
	return id
}
