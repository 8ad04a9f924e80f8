package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(max int, window time.Duration) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimit(RateLimitConfig{Max: max, Window: window})(ok)
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := newLimitedHandler(3, time.Minute)

	for i := range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_SeparateClients(t *testing.T) {
	h := newLimitedHandler(1, time.Minute)

	r1 := httptest.NewRequest(http.MethodGet, "/", nil)
	r1.RemoteAddr = "10.0.0.1:1111"
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.RemoteAddr = "10.0.0.2:2222"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r1)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r2)
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own budget")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r1)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_WindowRotation(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: defaultKeyFunc})
	now := time.Now()

	_, _, ok := rl.allow("client", now)
	require.True(t, ok)
	_, _, ok = rl.allow("client", now.Add(time.Second))
	require.False(t, ok)

	// A fresh window restores the budget.
	_, _, ok = rl.allow("client", now.Add(time.Minute+time.Second))
	assert.True(t, ok)
}

func TestRateLimit_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: defaultKeyFunc})
	now := time.Now()
	rl.allow("a", now)
	rl.allow("b", now)

	rl.cleanup(now.Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.windows)
}
