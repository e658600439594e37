package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"groupcast/internal/testutil"
)

// newLimitedHandler builds the middleware chain the server uses: Requester
// first, then the limiter, around a trivial handler.
func newLimitedHandler(client *redis.Client, perMinute int) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Requester(RateLimit(client, perMinute)(inner))
}

func doLimited(handler http.Handler, method, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/groups", nil)
	req.Header.Set("X-User-ID", user)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestRateLimit_UnderLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := newLimitedHandler(client, 5)
	for i := 0; i < 5; i++ {
		resp := doLimited(handler, "POST", testutil.TestOwner)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := newLimitedHandler(client, 2)
	doLimited(handler, "POST", testutil.TestOwner)
	doLimited(handler, "POST", testutil.TestOwner)

	resp := doLimited(handler, "POST", testutil.TestOwner)
	testutil.AssertStatusCode(t, resp, http.StatusTooManyRequests)
	testutil.AssertContains(t, resp.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_ReadsNeverLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := newLimitedHandler(client, 1)
	for i := 0; i < 10; i++ {
		resp := doLimited(handler, "GET", testutil.TestOwner)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	}
}

func TestRateLimit_CountsPerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := newLimitedHandler(client, 1)

	testutil.AssertStatusCode(t, doLimited(handler, "POST", "user_a"), http.StatusOK)
	testutil.AssertStatusCode(t, doLimited(handler, "POST", "user_a"), http.StatusTooManyRequests)

	// A different user has their own window
	testutil.AssertStatusCode(t, doLimited(handler, "POST", "user_b"), http.StatusOK)
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.Close()

	// Writes must keep working through a Redis outage
	handler := newLimitedHandler(client, 1)
	for i := 0; i < 3; i++ {
		resp := doLimited(handler, "POST", testutil.TestOwner)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := newLimitedHandler(client, 0)
	for i := 0; i < 3; i++ {
		resp := doLimited(handler, "POST", testutil.TestOwner)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	}

	// The limiter never touched Redis
	if got := len(mr.Keys()); got != 0 {
		t.Fatalf("Expected no rate limit keys, found %d", got)
	}
}
