package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimit returns middleware enforcing a per-user fixed-window limit on
// mutating requests. Reads are never limited. A Redis outage must not take
// writes down with it, so the limiter fails open.
func RateLimit(client *redis.Client, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			requester := RequesterID(r)
			if requester == "" {
				next.ServeHTTP(w, r)
				return
			}

			// One counter per user per minute; the minute stamp in the key
			// is the window, the TTL just garbage-collects old counters
			key := fmt.Sprintf("ratelimit:%s:%s", requester, time.Now().UTC().Format("200601021504"))
			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				log.Printf("Warning: rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(r.Context(), key, 2*time.Minute)
			}

			if count > int64(perMinute) {
				writeEnvelope(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
